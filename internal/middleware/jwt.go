package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timeslot-booking/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the caller's identity in the request context.  Handlers read
// it back with IdentityFrom; "user_id" and "role" are also set for the
// rate limiter and RequireRole.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			who, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(identityKey, who)
			c.Set("user_id", who.UserID)
			c.Set("role", who.Role())
			return next(c)
		}
	}
}
