package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userIDKey is the echo context key under which JWTAuth stores the
// authenticated user id (uint64).
const userIDKey = "user_id"

// UserID returns the authenticated user id placed on the context by JWTAuth.
// ok is false on routes that are not behind JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(userIDKey).(uint64)
	return id, ok && id != 0
}

// SetUserID attaches an authenticated user id to the context.
func SetUserID(c echo.Context, id uint64) { c.Set(userIDKey, id) }

// currentUserID renders the caller for rate-limit keys and logs; "anon"
// when unauthenticated.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
