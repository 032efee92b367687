package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-backend/internal/httperr"
)

// RequireSameUser only lets a request through when the authenticated user is
// the one named by the given path parameter.  It must run after JWTAuth.
// A malformed parameter is a validation error; a mismatch or a missing
// identity answers 401.
func RequireSameUser(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			pathID, err := httperr.PathID(c, param)
			if err != nil {
				return err
			}
			uid, ok := UserID(c)
			if !ok || uid != pathID {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized: user id missing or mismatched"})
			}
			return next(c)
		}
	}
}
