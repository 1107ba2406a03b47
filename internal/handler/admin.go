package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/model"
	"github.com/iliyamo/timeslot-booking/internal/repository"
	"github.com/iliyamo/timeslot-booking/internal/service"
)

// SlotCatalog is the admin view of slot storage.  It never touches the
// holder column.
type SlotCatalog interface {
	List(ctx context.Context, f repository.SlotFilter) ([]model.TimeSlot, error)
	Create(ctx context.Context, ts *model.TimeSlot) error
	Update(ctx context.Context, ts *model.TimeSlot) error
	Delete(ctx context.Context, id uint64) error
}

// CategoryCatalog is the admin view of category storage.
type CategoryCatalog interface {
	ListAll(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Rename(ctx context.Context, id uint64, name string) error
	Delete(ctx context.Context, id uint64) error
}

// AdminHandler serves /api/admin/*.  Routes are guarded by RequireAdmin.
type AdminHandler struct {
	Slots      SlotCatalog
	Categories CategoryCatalog
	Loc        *time.Location
	Log        *zap.Logger
}

func NewAdminHandler(slots SlotCatalog, cats CategoryCatalog, loc *time.Location, log *zap.Logger) *AdminHandler {
	return &AdminHandler{Slots: slots, Categories: cats, Loc: loc, Log: orNop(log)}
}

type slotReq struct {
	Category  uint64    `json:"category" validate:"required,gt=0"`
	Title     string    `json:"title" validate:"max=200"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

func (r slotReq) toModel() model.TimeSlot {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = model.DefaultSlotTitle
	}
	return model.TimeSlot{
		CategoryID: r.Category,
		Title:      title,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
	}
}

type categoryReq struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ListSlots handles GET /api/admin/timeslots/.  An optional week parameter
// restricts the listing to that week; otherwise every slot is returned.
func (h *AdminHandler) ListSlots(c echo.Context) error {
	var f repository.SlotFilter
	if week := c.QueryParam("week"); week != "" {
		f.From, f.To = service.WeekWindow(week, time.Now(), h.Loc)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	slots, err := h.Slots.List(ctx, f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toSlotList(slots, h.Loc))
}

// CreateSlot handles POST /api/admin/timeslots/.
func (h *AdminHandler) CreateSlot(c echo.Context) error {
	var req slotReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	ts := req.toModel()
	if err := h.Slots.Create(ctx, &ts); err != nil {
		return writeError(c, h.Log, err)
	}
	h.Log.Info("slot created", zap.Uint64("slot_id", ts.ID), zap.Uint64("category_id", ts.CategoryID))
	return c.JSON(http.StatusCreated, toSlotJSON(ts, h.Loc))
}

// UpdateSlot handles PUT /api/admin/timeslots/:id/.
func (h *AdminHandler) UpdateSlot(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "time slot not found"})
	}
	var req slotReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	ts := req.toModel()
	ts.ID = id
	if err := h.Slots.Update(ctx, &ts); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toSlotJSON(ts, h.Loc))
}

// DeleteSlot handles DELETE /api/admin/timeslots/:id/.
func (h *AdminHandler) DeleteSlot(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "time slot not found"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Slots.Delete(ctx, id); err != nil {
		return writeError(c, h.Log, err)
	}
	h.Log.Info("slot deleted", zap.Uint64("slot_id", id))
	return c.NoContent(http.StatusNoContent)
}

// ListCategories handles GET /api/admin/categories/.
func (h *AdminHandler) ListCategories(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	cats, err := h.Categories.ListAll(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cats)
}

// CreateCategory handles POST /api/admin/categories/.
func (h *AdminHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	cat := model.Category{Name: name}
	if err := h.Categories.Create(ctx, &cat); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

// RenameCategory handles PUT /api/admin/categories/:id/.
func (h *AdminHandler) RenameCategory(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}
	var req categoryReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Categories.Rename(ctx, id, name); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, model.Category{ID: id, Name: name})
}

// DeleteCategory handles DELETE /api/admin/categories/:id/.  The
// category's slots are deleted with it.
func (h *AdminHandler) DeleteCategory(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeError(c, h.Log, err)
	}
	h.Log.Info("category deleted", zap.Uint64("category_id", id))
	return c.NoContent(http.StatusNoContent)
}
