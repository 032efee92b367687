package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/blog-backend/internal/httperr"
)

// ErrorHandler renders every error that reaches echo as
// {"error": msg, "details": {...}}.  Validation failures become 422,
// *echo.HTTPError keeps its status, anything else is logged and hidden
// behind a generic 500.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			code = http.StatusInternalServerError
			body = echo.Map{"error": "Internal Server Error"}
		)

		var verr *httperr.ValidationError
		var herr *echo.HTTPError
		switch {
		case errors.As(err, &verr):
			code = http.StatusUnprocessableEntity
			body = echo.Map{"error": "Validation Failed", "details": verr.Fields}
		case errors.As(err, &herr):
			code = herr.Code
			if msg, ok := herr.Message.(string); ok {
				body = echo.Map{"error": msg}
			} else {
				body = echo.Map{"error": http.StatusText(code)}
			}
		default:
			log.Error("unhandled error",
				zap.Error(err),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, body)
		}
		if werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}
