package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Health is the liveness probe: the process is up and serving.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Check pings one dependency.
type Check func(ctx context.Context) error

const readyTimeout = 2 * time.Second

// Ready runs every check and answers 503 if any of them fails.  The body
// names each dependency with "ok" or "down"; error text stays in the logs.
func Ready(checks map[string]Check, log *zap.Logger) echo.HandlerFunc {
	log = orNop(log)
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
		defer cancel()

		status := http.StatusOK
		out := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
				out[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		return c.JSON(status, out)
	}
}
