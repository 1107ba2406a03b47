package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

// CategoryLister lists categories.
type CategoryLister interface {
	ListAll(ctx context.Context) ([]model.Category, error)
}

// CategoryHandler serves the public category listing.
type CategoryHandler struct {
	Categories CategoryLister
	Log        *zap.Logger
}

func NewCategoryHandler(cats CategoryLister, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{Categories: cats, Log: orNop(log)}
}

// List handles GET /api/categories/.
func (h *CategoryHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	cats, err := h.Categories.ListAll(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cats)
}
