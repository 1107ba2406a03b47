package model

// Category groups time slots (e.g. "Music", "Sports").  Names are unique
// and may be renamed by an administrator; deleting a category removes all
// of its time slots.
type Category struct {
	ID   uint64 `json:"id"`   // categories.id
	Name string `json:"name"` // categories.name (unique)
}
