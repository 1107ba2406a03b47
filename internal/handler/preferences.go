package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

// PreferenceStore reads and writes a user's preferred categories.
type PreferenceStore interface {
	GetOrCreate(ctx context.Context, userID uint64) (*model.UserPreference, error)
	ReplaceCategories(ctx context.Context, userID uint64, categoryIDs []uint64) (*model.UserPreference, error)
}

// PreferenceHandler serves /api/preferences/.
type PreferenceHandler struct {
	Prefs PreferenceStore
	Log   *zap.Logger
}

func NewPreferenceHandler(p PreferenceStore, log *zap.Logger) *PreferenceHandler {
	return &PreferenceHandler{Prefs: p, Log: orNop(log)}
}

type putPreferenceReq struct {
	Categories *[]uint64 `json:"categories" validate:"required,dive,gt=0"`
}

type patchPreferenceReq struct {
	Categories *[]uint64 `json:"categories" validate:"omitempty,dive,gt=0"`
}

// Get returns the caller's preferences, creating an empty set on first use.
func (h *PreferenceHandler) Get(c echo.Context) error {
	who, ok, err := identity(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.Prefs.GetOrCreate(ctx, who.UserID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Put replaces the whole category set.  "categories" is required; an empty
// list clears it.
func (h *PreferenceHandler) Put(c echo.Context) error {
	var req putPreferenceReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	return h.replace(c, req.Categories)
}

// Patch replaces the category set when "categories" is present and is a
// no-op otherwise.
func (h *PreferenceHandler) Patch(c echo.Context) error {
	var req patchPreferenceReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	return h.replace(c, req.Categories)
}

func (h *PreferenceHandler) replace(c echo.Context, ids *[]uint64) error {
	who, ok, err := identity(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	var p *model.UserPreference
	if ids == nil {
		p, err = h.Prefs.GetOrCreate(ctx, who.UserID)
	} else {
		p, err = h.Prefs.ReplaceCategories(ctx, who.UserID, *ids)
	}
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}
