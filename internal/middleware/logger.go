package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Logger logs one line per request with status, latency, method, path,
// client ip and request id.  5xx responses are logged at error level.
func Logger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo's error handler write the response so the
				// logged status matches what the client sees
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []zap.Field{
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("client_ip", c.RealIP()),
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			if uid := currentUserID(c); uid != "anon" {
				fields = append(fields, zap.String("user_id", uid))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			switch {
			case res.Status >= 500:
				log.Error("request", fields...)
			case res.Status >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		}
	}
}
