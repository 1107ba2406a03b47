package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

// SlotTx is a transaction that serialises access to individual slot rows.
// LockSlot takes an exclusive row lock that is held until Commit or
// Rollback, so two transactions can never both observe the same slot as
// free.  Implementations must be used by a single goroutine.
type SlotTx interface {
	// LockSlot reads the slot row with SELECT ... FOR UPDATE.  It returns
	// ErrSlotNotFound when no row exists.
	LockSlot(ctx context.Context, id uint64) (*model.TimeSlot, error)
	// SetHolder writes booked_by; nil clears it.
	SetHolder(ctx context.Context, id uint64, holder *uint64) error
	// Annotate fills CategoryName and BookedByUsername without taking
	// further locks.
	Annotate(ctx context.Context, ts *model.TimeSlot) error
	Commit() error
	Rollback() error
}

// BeginSlotTx starts a transaction for booking operations.
func (r *TimeSlotRepo) BeginSlotTx(ctx context.Context) (SlotTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &mysqlSlotTx{tx: tx}, nil
}

type mysqlSlotTx struct {
	tx *sql.Tx
}

// LockSlot only touches the timeslots row; joining categories or users
// here would lock those rows as well.
func (t *mysqlSlotTx) LockSlot(ctx context.Context, id uint64) (*model.TimeSlot, error) {
	const q = `SELECT id, category_id, title, start_time, end_time, booked_by
	           FROM timeslots WHERE id = ? FOR UPDATE`
	var (
		ts       model.TimeSlot
		bookedBy sql.NullInt64
	)
	err := t.tx.QueryRowContext(ctx, q, id).Scan(&ts.ID, &ts.CategoryID, &ts.Title, &ts.StartTime, &ts.EndTime, &bookedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if bookedBy.Valid {
		holder := uint64(bookedBy.Int64)
		ts.BookedBy = &holder
	}
	return &ts, nil
}

func (t *mysqlSlotTx) SetHolder(ctx context.Context, id uint64, holder *uint64) error {
	var arg any
	if holder != nil {
		arg = *holder
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE timeslots SET booked_by = ? WHERE id = ?`, arg, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (t *mysqlSlotTx) Annotate(ctx context.Context, ts *model.TimeSlot) error {
	if err := t.tx.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, ts.CategoryID).Scan(&ts.CategoryName); err != nil {
		return err
	}
	ts.BookedByUsername = nil
	if ts.BookedBy == nil {
		return nil
	}
	var username string
	if err := t.tx.QueryRowContext(ctx, `SELECT username FROM users WHERE id = ?`, *ts.BookedBy).Scan(&username); err != nil {
		return err
	}
	ts.BookedByUsername = &username
	return nil
}

func (t *mysqlSlotTx) Commit() error   { return t.tx.Commit() }
func (t *mysqlSlotTx) Rollback() error { return t.tx.Rollback() }
