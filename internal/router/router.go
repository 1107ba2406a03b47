package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/handler"
	"github.com/iliyamo/timeslot-booking/internal/middleware"
)

// New builds the Echo instance with the process-wide middleware: panic
// recovery, a uuid request id echoed in X-Request-ID, and zap request
// logging.
func New(log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.Logger(log))
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// liveness on /healthz and dependency readiness on /readyz.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check, log *zap.Logger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(checks, log))
}

// RegisterAuth registers the token endpoints under /api/auth.  Register,
// token and refresh are public; /me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/register/", a.Register)
	g.POST("/token/", a.Token)
	g.POST("/token/refresh/", a.Refresh)

	g.GET("/me/", a.Me, middleware.JWTAuth(jwtSecret))
}
