package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/config"
	"github.com/iliyamo/timeslot-booking/internal/model"
	"github.com/iliyamo/timeslot-booking/internal/repository"
	"github.com/iliyamo/timeslot-booking/internal/utils"
)

// UserStore is the user persistence used by AuthHandler.
type UserStore interface {
	Create(ctx context.Context, u repository.NewUser, cost int) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Prefs  PreferenceStore
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, p PreferenceStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Prefs: p, Log: orNop(log)}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type tokenReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	Refresh string `json:"refresh" validate:"required"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type meResp struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff"`
}

// Register creates a regular user together with an empty preference set.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username already exists"})
		}
		h.Log.Error("create user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	// the preference row is also created lazily on first read
	if _, err := h.Prefs.GetOrCreate(ctx, uid); err != nil {
		h.Log.Warn("create preference failed", zap.Uint64("user_id", uid), zap.Error(err))
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":       uid,
		"username": req.Username,
		"email":    req.Email,
	})
}

// Token verifies credentials and returns a new access/refresh pair.
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.Log.Error("load user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := h.issue(ctx, u)
	if err != nil {
		h.Log.Error("issue tokens failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new pair.  The old token is
// revoked before anything is issued, so it works at most once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.Refresh))

	ctx, cancel := requestCtx(c)
	defer cancel()

	userID, err := h.Tokens.ConsumeRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		h.Log.Error("consume refresh failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		h.Log.Error("load user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	pair, err := h.issue(ctx, u)
	if err != nil {
		h.Log.Error("issue tokens failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	who, ok, err := identity(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, who.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		h.Log.Error("load user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, meResp{ID: u.ID, Username: u.Username, Email: u.Email, IsStaff: u.IsAdmin})
}

func (h *AuthHandler) issue(ctx context.Context, u model.User) (tokenPair, error) {
	who := model.Identity{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, who, h.Cfg.AccessTTLMin)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenPair{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return tokenPair{}, err
	}
	return tokenPair{Access: access.Token, Refresh: refresh.Raw}, nil
}
