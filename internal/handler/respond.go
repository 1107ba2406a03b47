package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/middleware"
	"github.com/iliyamo/timeslot-booking/internal/model"
	"github.com/iliyamo/timeslot-booking/internal/repository"
	"github.com/iliyamo/timeslot-booking/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindAndValidate decodes the body into dst and runs struct validation.  On
// failure it has already written the 400 response and returns false.
func bindAndValidate(c echo.Context, dst interface{}) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields})
	}
	return true, nil
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// identity returns the caller set by the JWT middleware or writes 401.
func identity(c echo.Context) (model.Identity, bool, error) {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return who, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return who, true, nil
}

// pathID parses the :id path parameter as a positive integer.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// writeError maps service and repository errors to HTTP responses.
// Anything unrecognised is logged and reported as 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrSlotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "time slot not found"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "This slot is already booked"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "You did not book this slot"})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrCategoryNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category not found"})
	case errors.Is(err, repository.ErrNameExists):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category name already exists"})
	}
	log.Error("request failed",
		zap.Error(err),
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
