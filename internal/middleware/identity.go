package middleware

// identity.go holds the helpers that move the authenticated caller between
// middleware and handlers.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

const identityKey = "identity"

// IdentityFrom returns the caller stored by JWTAuth.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	who, ok := c.Get(identityKey).(model.Identity)
	return who, ok && who.UserID != 0
}

// currentUserID returns the caller id as a string, or "anon" on public
// routes.
func currentUserID(c echo.Context) string {
	if who, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(who.UserID, 10)
	}
	return "anon"
}
