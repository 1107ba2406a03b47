package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

// SlotQuery answers the availability listing.
type SlotQuery interface {
	ListVisible(ctx context.Context, who model.Identity, weekParam, categoryParam string) ([]model.TimeSlot, error)
}

// Booker books and releases slots.
type Booker interface {
	Book(ctx context.Context, slotID uint64, who model.Identity) (*model.TimeSlot, error)
	Unbook(ctx context.Context, slotID uint64, who model.Identity) (*model.TimeSlot, error)
}

// TimeSlotHandler serves the user-facing slot endpoints.
type TimeSlotHandler struct {
	Query   SlotQuery
	Booking Booker
	Loc     *time.Location
	Log     *zap.Logger
}

func NewTimeSlotHandler(q SlotQuery, b Booker, loc *time.Location, log *zap.Logger) *TimeSlotHandler {
	return &TimeSlotHandler{Query: q, Booking: b, Loc: loc, Log: orNop(log)}
}

// List handles GET /api/timeslots/?week=YYYY-MM-DD&category=ID.
func (h *TimeSlotHandler) List(c echo.Context) error {
	who, ok, err := identity(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	slots, err := h.Query.ListVisible(ctx, who, c.QueryParam("week"), c.QueryParam("category"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toSlotList(slots, h.Loc))
}

// Book handles POST /api/book/:id/.
func (h *TimeSlotHandler) Book(c echo.Context) error {
	return h.mutate(c, h.Booking.Book)
}

// Unbook handles POST /api/unbook/:id/.
func (h *TimeSlotHandler) Unbook(c echo.Context) error {
	return h.mutate(c, h.Booking.Unbook)
}

func (h *TimeSlotHandler) mutate(c echo.Context, op func(context.Context, uint64, model.Identity) (*model.TimeSlot, error)) error {
	who, ok, err := identity(c)
	if !ok {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "time slot not found"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	ts, err := op(ctx, id, who)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toSlotJSON(*ts, h.Loc))
}
