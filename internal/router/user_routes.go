package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timeslot-booking/internal/handler"
	"github.com/iliyamo/timeslot-booking/internal/middleware"
)

// UserHandlers groups the handlers mounted for any authenticated user.
type UserHandlers struct {
	Categories  *handler.CategoryHandler
	Preferences *handler.PreferenceHandler
	TimeSlots   *handler.TimeSlotHandler
}

// RegisterUser registers the user-facing endpoints under /api.  All routes
// require a valid JWT.  The category listing goes through the response
// cache; booking and unbooking go through the rate limiter.
func RegisterUser(e *echo.Echo, h UserHandlers, jwtSecret string, cache, limiter echo.MiddlewareFunc) {
	g := e.Group("/api", middleware.JWTAuth(jwtSecret))

	g.GET("/categories/", h.Categories.List, cache)

	g.GET("/preferences/", h.Preferences.Get)
	g.PUT("/preferences/", h.Preferences.Put)
	g.PATCH("/preferences/", h.Preferences.Patch)

	g.GET("/timeslots/", h.TimeSlots.List)
	g.POST("/book/:id/", h.TimeSlots.Book, limiter)
	g.POST("/unbook/:id/", h.TimeSlots.Unbook, limiter)
}
