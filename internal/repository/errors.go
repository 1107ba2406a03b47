// Package repository is the persistence layer.  It owns every SQL statement
// the service runs against MySQL and exposes sentinel errors that handlers
// and services translate into HTTP responses.  No booking rules live here;
// the repository only offers the primitives (row locks, filtered listing,
// cascading deletes) the services build on.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrSlotNotFound is returned when no time slot row matches the id.
	ErrSlotNotFound = errors.New("time slot not found")
	// ErrCategoryNotFound is returned when a category id does not exist,
	// including foreign key failures on insert.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrUserNotFound is returned when a user lookup matches no row.
	ErrUserNotFound = errors.New("user not found")
	// ErrNameExists signals a duplicate category name.
	ErrNameExists = errors.New("name already exists")
	// ErrUsernameExists signals a duplicate username at registration.
	ErrUsernameExists = errors.New("username already exists")
	// ErrRefreshInvalid covers unknown, expired, revoked and already
	// exchanged refresh tokens.
	ErrRefreshInvalid = errors.New("refresh token invalid")
)

// MySQL server error numbers we translate.
const (
	errDupEntry     = 1062
	errNoReferenced = 1452
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}
