package model

import "time"

// TimeSlot is a bookable interval tied to a category.  BookedBy is nil
// while the slot is free and holds exactly one user id while booked.
//
// Fields:
//  ID               – primary key identifier.
//  CategoryID       – owning category (cascade on delete).
//  CategoryName     – denormalised name for presentation.
//  Title            – display title, defaults to "Event".
//  StartTime        – when the slot begins.
//  EndTime          – when the slot ends (must be after StartTime).
//  BookedBy         – current holder, nil when free.
//  BookedByUsername – holder's username for presentation, nil when free.
type TimeSlot struct {
	ID               uint64    // timeslots.id
	CategoryID       uint64    // timeslots.category_id
	CategoryName     string    // categories.name
	Title            string    // timeslots.title
	StartTime        time.Time // timeslots.start_time
	EndTime          time.Time // timeslots.end_time
	BookedBy         *uint64   // timeslots.booked_by (nullable)
	BookedByUsername *string   // users.username of the holder
}

// DefaultSlotTitle is used when an administrator creates a slot without a title.
const DefaultSlotTitle = "Event"

// IsBooked reports whether the slot currently has a holder.
func (s *TimeSlot) IsBooked() bool { return s.BookedBy != nil }

// HeldBy reports whether userID is the current holder.
func (s *TimeSlot) HeldBy(userID uint64) bool {
	return s.BookedBy != nil && *s.BookedBy == userID
}
