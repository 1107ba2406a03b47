package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo keeps refresh tokens by their SHA-256 hash.  Each token can be
// exchanged once.
type TokenRepo struct {
	db *sql.DB
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh records a newly issued token for userID.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, exp.UTC())
	return err
}

// ConsumeRefresh revokes a live token and returns its owner.  The check
// and the revoke are one UPDATE, so when two callers race on the same token
// the row lock lets only one of them match; the other gets
// ErrRefreshInvalid, as do unknown, expired and revoked tokens.
func (r *TokenRepo) ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
		tokenHash)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrRefreshInvalid
	}

	var userID uint64
	err = r.db.QueryRowContext(ctx, `SELECT user_id FROM refresh_tokens WHERE token_hash = ?`, tokenHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		// deleted with its user between the two statements
		return 0, ErrRefreshInvalid
	}
	return userID, err
}
