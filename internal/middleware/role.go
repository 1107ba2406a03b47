package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

// RequireRole returns a middleware that lets the request through only when
// the "role" value set by JWTAuth is one of roles; otherwise it answers
// 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireAdmin is RequireRole(model.RoleAdmin).
func RequireAdmin() echo.MiddlewareFunc { return RequireRole(model.RoleAdmin) }
