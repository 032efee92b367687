package middleware // middleware contains reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/blog-backend/internal/auth"
	"github.com/iliyamo/blog-backend/internal/metrics"
)

// JWTAuth returns an Echo middleware that authenticates the bearer token in
// the Authorization header and stores its user id on the context (see
// UserID).  The checks run in a fixed order:
//
//  1. no token                        -> 401 "access token required"
//  2. token in the revocation set     -> 403 "token is no longer valid"
//  3. expired                         -> 401 "token expired"
//     bad signature/alg or malformed  -> 403 "invalid token"
//
// Revocation is looked up before any signature work, so a revoked token is
// rejected the same way whether or not it would still verify.
func JWTAuth(issuer *auth.Issuer, blacklist auth.Blacklist, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c.Request())
			if raw == "" {
				metrics.AuthVerifications.WithLabelValues(metrics.VerifyMissing).Inc()
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access token required"})
			}

			revoked, err := blacklist.Contains(c.Request().Context(), raw)
			if err != nil {
				metrics.AuthVerifications.WithLabelValues(metrics.VerifyError).Inc()
				log.Error("revocation lookup failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
			}
			if revoked {
				metrics.AuthVerifications.WithLabelValues(metrics.VerifyRevoked).Inc()
				return c.JSON(http.StatusForbidden, echo.Map{"error": "token is no longer valid"})
			}

			claims, err := issuer.Verify(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					metrics.AuthVerifications.WithLabelValues(metrics.VerifyExpired).Inc()
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				}
				metrics.AuthVerifications.WithLabelValues(metrics.VerifyInvalid).Inc()
				log.Debug("token rejected", zap.Error(err))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid token"})
			}

			metrics.AuthVerifications.WithLabelValues(metrics.VerifyOK).Inc()
			SetUserID(c, claims.UserID)
			return next(c)
		}
	}
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively; anything else yields "".
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization)), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
