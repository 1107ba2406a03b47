package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

// TimeSlotRepo provides data access to the timeslots table.  All
// timestamps are stored and compared in UTC; callers convert to the
// presentation zone.
type TimeSlotRepo struct {
	db *sql.DB
}

// NewTimeSlotRepo returns a new TimeSlotRepo bound to the provided database.
func NewTimeSlotRepo(db *sql.DB) *TimeSlotRepo { return &TimeSlotRepo{db: db} }

// SlotFilter narrows List.  From/To bound start_time as a half-open
// interval [From, To) when non-zero.  An empty CategoryIDs applies no
// category filter.
type SlotFilter struct {
	From        time.Time
	To          time.Time
	CategoryIDs []uint64
}

const slotSelect = `SELECT t.id, t.category_id, c.name, t.title, t.start_time, t.end_time, t.booked_by, u.username
	FROM timeslots t
	JOIN categories c ON c.id = t.category_id
	LEFT JOIN users u ON u.id = t.booked_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(s rowScanner) (*model.TimeSlot, error) {
	var (
		ts       model.TimeSlot
		bookedBy sql.NullInt64
		username sql.NullString
	)
	if err := s.Scan(&ts.ID, &ts.CategoryID, &ts.CategoryName, &ts.Title, &ts.StartTime, &ts.EndTime, &bookedBy, &username); err != nil {
		return nil, err
	}
	if bookedBy.Valid {
		id := uint64(bookedBy.Int64)
		ts.BookedBy = &id
	}
	if username.Valid {
		name := username.String
		ts.BookedByUsername = &name
	}
	return &ts, nil
}

// List returns slots matching the filter ordered by start time.  It takes
// no locks.
func (r *TimeSlotRepo) List(ctx context.Context, f SlotFilter) ([]model.TimeSlot, error) {
	where := []string{}
	args := []any{}
	if !f.From.IsZero() {
		where = append(where, "t.start_time >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "t.start_time < ?")
		args = append(args, f.To.UTC())
	}
	if len(f.CategoryIDs) > 0 {
		where = append(where, "t.category_id IN (?"+strings.Repeat(", ?", len(f.CategoryIDs)-1)+")")
		for _, id := range f.CategoryIDs {
			args = append(args, id)
		}
	}
	q := slotSelect
	if len(where) > 0 {
		q += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	q += "\n\tORDER BY t.start_time ASC, t.id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TimeSlot, 0)
	for rows.Next() {
		ts, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ts)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches one slot with its category name and holder username.
func (r *TimeSlotRepo) GetByID(ctx context.Context, id uint64) (*model.TimeSlot, error) {
	ts, err := scanSlot(r.db.QueryRowContext(ctx, slotSelect+"\n\tWHERE t.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return ts, nil
}

// Create inserts a new, unbooked slot and reloads it so the caller gets the
// category name.  An unknown category yields ErrCategoryNotFound.
func (r *TimeSlotRepo) Create(ctx context.Context, ts *model.TimeSlot) error {
	const q = `INSERT INTO timeslots (category_id, title, start_time, end_time) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, ts.CategoryID, ts.Title, ts.StartTime.UTC(), ts.EndTime.UTC())
	if err != nil {
		if isMySQLError(err, errNoReferenced) {
			return ErrCategoryNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	loaded, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*ts = *loaded
	return nil
}

// Update changes the catalog fields of a slot (category, title, times).
// The holder is never touched here; only the booking transaction writes it.
func (r *TimeSlotRepo) Update(ctx context.Context, ts *model.TimeSlot) error {
	const q = `UPDATE timeslots SET category_id = ?, title = ?, start_time = ?, end_time = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, ts.CategoryID, ts.Title, ts.StartTime.UTC(), ts.EndTime.UTC(), ts.ID)
	if err != nil {
		if isMySQLError(err, errNoReferenced) {
			return ErrCategoryNotFound
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSlotNotFound
	}
	loaded, err := r.GetByID(ctx, ts.ID)
	if err != nil {
		return err
	}
	*ts = *loaded
	return nil
}

// Delete removes a slot by id.
func (r *TimeSlotRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timeslots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// Count returns the number of slots; the seed command uses it to stay
// idempotent.
func (r *TimeSlotRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timeslots`).Scan(&n)
	return n, err
}
