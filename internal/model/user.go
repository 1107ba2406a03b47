package model

import "time"

// User represents an application user record as stored in the
// `users` table.  Administrators manage the slot catalog; everyone else
// books and unbooks slots.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username (unique)
	Email        string    // users.email
	PasswordHash string    // users.password_hash (bcrypt)
	IsAdmin      bool      // users.is_admin
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Identity is the verified caller of a request.  It is resolved by the
// authentication middleware and passed explicitly to every core operation.
type Identity struct {
	UserID   uint64
	Username string
	IsAdmin  bool
}

// Role names carried in the access token's "role" claim.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Role returns the token role for the identity.
func (i Identity) Role() string {
	if i.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is persisted.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
