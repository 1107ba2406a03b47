package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

// PreferenceRepo persists each user's set of preferred categories.
type PreferenceRepo struct {
	db *sql.DB
}

// NewPreferenceRepo returns a PreferenceRepo bound to the given database.
func NewPreferenceRepo(db *sql.DB) *PreferenceRepo { return &PreferenceRepo{db: db} }

// GetOrCreate returns the user's preference row, creating an empty one on
// first access.
func (r *PreferenceRepo) GetOrCreate(ctx context.Context, userID uint64) (*model.UserPreference, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT IGNORE INTO user_preferences (user_id) VALUES (?)`, userID); err != nil {
		return nil, err
	}
	p := &model.UserPreference{UserID: userID}
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM user_preferences WHERE user_id = ?`, userID).Scan(&p.ID); err != nil {
		return nil, err
	}
	ids, err := r.CategoryIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Categories = ids
	return p, nil
}

// CategoryIDs returns the categories a user prefers.  A user that never
// saved preferences gets an empty slice; no row is created.
func (r *PreferenceRepo) CategoryIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	const q = `SELECT upc.category_id
	           FROM user_preference_categories upc
	           JOIN user_preferences p ON p.id = upc.preference_id
	           WHERE p.user_id = ?
	           ORDER BY upc.category_id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceCategories overwrites the user's category set in one transaction.
// Duplicates are dropped; an unknown category id rolls everything back with
// ErrCategoryNotFound.
func (r *PreferenceRepo) ReplaceCategories(ctx context.Context, userID uint64, categoryIDs []uint64) (p *model.UserPreference, err error) {
	ids := dedupeIDs(categoryIDs)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT IGNORE INTO user_preferences (user_id) VALUES (?)`, userID); err != nil {
		return nil, err
	}
	p = &model.UserPreference{UserID: userID, Categories: ids}
	if err = tx.QueryRowContext(ctx, `SELECT id FROM user_preferences WHERE user_id = ? FOR UPDATE`, userID).Scan(&p.ID); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM user_preference_categories WHERE preference_id = ?`, p.ID); err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		q := `INSERT INTO user_preference_categories (preference_id, category_id) VALUES (?, ?)` +
			strings.Repeat(", (?, ?)", len(ids)-1)
		args := make([]any, 0, len(ids)*2)
		for _, id := range ids {
			args = append(args, p.ID, id)
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			if isMySQLError(err, errNoReferenced) {
				err = ErrCategoryNotFound
			}
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func dedupeIDs(in []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(in))
	out := make([]uint64, 0, len(in))
	for _, id := range in {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
