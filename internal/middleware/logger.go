package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger logs every request once it has been handled, at Error for
// 5xx, Warn for 4xx and Info otherwise.  Handler errors are rendered here
// through the echo error handler so the logged status is the one the client
// saw.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", res.Status),
				zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
				zap.String("remote_ip", c.RealIP()),
			}
			if rid := res.Header().Get(echo.HeaderXRequestID); rid != "" {
				fields = append(fields, zap.String("request_id", rid))
			}
			if uid, ok := UserID(c); ok {
				fields = append(fields, zap.Uint64("user_id", uid))
			}

			switch {
			case res.Status >= 500:
				log.Error("HTTP request", fields...)
			case res.Status >= 400:
				log.Warn("HTTP request", fields...)
			default:
				log.Info("HTTP request", fields...)
			}
			return nil
		}
	}
}
