package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/timeslot-booking/internal/model"
	"github.com/iliyamo/timeslot-booking/internal/repository"
)

// SlotLister reads slots without locking.
type SlotLister interface {
	List(ctx context.Context, f repository.SlotFilter) ([]model.TimeSlot, error)
}

// PreferenceReader returns a user's preferred category ids.  It must not
// create preference rows.
type PreferenceReader interface {
	CategoryIDs(ctx context.Context, userID uint64) ([]uint64, error)
}

// AvailabilityService answers "which slots can this user see this week".
type AvailabilityService struct {
	slots SlotLister
	prefs PreferenceReader
	loc   *time.Location
	now   func() time.Time
}

// NewAvailabilityService builds the query engine.  loc is the zone in which
// weeks start; nil means time.Local.
func NewAvailabilityService(slots SlotLister, prefs PreferenceReader, loc *time.Location) *AvailabilityService {
	if loc == nil {
		loc = time.Local
	}
	return &AvailabilityService{slots: slots, prefs: prefs, loc: loc, now: time.Now}
}

// Location returns the zone used for week windows.
func (s *AvailabilityService) Location() *time.Location { return s.loc }

// ListVisible returns the slots of the requested week ordered by start
// time.  An explicit category overrides the caller's preferences; with no
// category and no preferences every slot of the week is returned.
func (s *AvailabilityService) ListVisible(ctx context.Context, who model.Identity, weekParam, categoryParam string) ([]model.TimeSlot, error) {
	start, end := WeekWindow(weekParam, s.now(), s.loc)
	f := repository.SlotFilter{From: start, To: end}

	if c := strings.TrimSpace(categoryParam); c != "" {
		id, err := strconv.ParseUint(c, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: category must be a positive integer", ErrValidation)
		}
		f.CategoryIDs = []uint64{id}
	} else {
		ids, err := s.prefs.CategoryIDs(ctx, who.UserID)
		if err != nil {
			return nil, fmt.Errorf("load preferences: %w", err)
		}
		f.CategoryIDs = ids
	}

	out, err := s.slots.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return out, nil
}
