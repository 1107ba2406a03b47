package handler

import (
	"time"

	"github.com/iliyamo/timeslot-booking/internal/model"
)

// slotJSON is the wire form of a time slot.  Times are RFC 3339 in the
// configured zone.
type slotJSON struct {
	ID               uint64  `json:"id"`
	Category         uint64  `json:"category"`
	CategoryName     string  `json:"category_name"`
	Title            string  `json:"title"`
	StartTime        string  `json:"start_time"`
	EndTime          string  `json:"end_time"`
	BookedBy         *uint64 `json:"booked_by"`
	BookedByUsername *string `json:"booked_by_username"`
}

func toSlotJSON(ts model.TimeSlot, loc *time.Location) slotJSON {
	if loc == nil {
		loc = time.Local
	}
	return slotJSON{
		ID:               ts.ID,
		Category:         ts.CategoryID,
		CategoryName:     ts.CategoryName,
		Title:            ts.Title,
		StartTime:        ts.StartTime.In(loc).Format(time.RFC3339),
		EndTime:          ts.EndTime.In(loc).Format(time.RFC3339),
		BookedBy:         ts.BookedBy,
		BookedByUsername: ts.BookedByUsername,
	}
}

func toSlotList(in []model.TimeSlot, loc *time.Location) []slotJSON {
	out := make([]slotJSON, 0, len(in))
	for _, ts := range in {
		out = append(out, toSlotJSON(ts, loc))
	}
	return out
}
