package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

// CategoryRepo encapsulates all database queries related to categories.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo constructs a CategoryRepo with the provided DB handle.
func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// Create inserts a new category and populates its ID.  A duplicate name
// yields ErrNameExists.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
	if err != nil {
		if isMySQLError(err, errDupEntry) {
			return ErrNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a category by its ID.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListAll returns every category ordered by name.
func (r *CategoryRepo) ListAll(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Rename changes a category's display name.  The DSN sets clientFoundRows
// so RowsAffected counts matched rows, not changed ones.
func (r *CategoryRepo) Rename(ctx context.Context, id uint64, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if isMySQLError(err, errDupEntry) {
			return ErrNameExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category.  Its time slots and preference links go with
// it through ON DELETE CASCADE.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
