package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timeslot-booking/internal/handler"
	"github.com/iliyamo/timeslot-booking/internal/middleware"
)

// RegisterAdmin registers catalog management under /api/admin.  All routes
// require a valid JWT and the ADMIN role.  Category writes pass through
// invalidate so cached category listings are dropped.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, invalidate echo.MiddlewareFunc) {
	g := e.Group(
		"/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireAdmin(),
	)

	// ---- Time slots ----
	g.GET("/timeslots/", a.ListSlots)
	g.POST("/timeslots/", a.CreateSlot)
	g.PUT("/timeslots/:id/", a.UpdateSlot)
	g.DELETE("/timeslots/:id/", a.DeleteSlot)

	// ---- Categories ----
	g.GET("/categories/", a.ListCategories)
	g.POST("/categories/", a.CreateCategory, invalidate)
	g.PUT("/categories/:id/", a.RenameCategory, invalidate)
	g.DELETE("/categories/:id/", a.DeleteCategory, invalidate)
}
