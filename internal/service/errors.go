// Package service holds the booking rules: the coordinator that hands out
// time slots under row locks, and the availability query that decides which
// slots a user sees for a week.
package service

import "errors"

var (
	// ErrNotFound means the referenced slot does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the slot already has a holder.
	ErrConflict = errors.New("this slot is already booked")
	// ErrForbidden means the caller does not hold the slot.
	ErrForbidden = errors.New("you did not book this slot")
	// ErrValidation wraps malformed caller input.
	ErrValidation = errors.New("validation error")
)
