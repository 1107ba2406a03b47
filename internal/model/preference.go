package model

// UserPreference stores the categories a user wants to see by default.
// An empty Categories slice means "show everything".
type UserPreference struct {
	ID         uint64   `json:"id"`         // user_preferences.id
	UserID     uint64   `json:"user"`       // user_preferences.user_id (unique)
	Categories []uint64 `json:"categories"` // user_preference_categories.category_id
}
