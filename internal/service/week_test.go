package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMondayOf(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	cases := map[string]struct {
		in   time.Time
		want time.Time
	}{
		"monday":            {time.Date(2024, 1, 8, 15, 30, 0, 0, loc), time.Date(2024, 1, 8, 0, 0, 0, 0, loc)},
		"wednesday":         {time.Date(2024, 1, 10, 0, 0, 0, 0, loc), time.Date(2024, 1, 8, 0, 0, 0, 0, loc)},
		"sunday":            {time.Date(2024, 1, 14, 23, 59, 0, 0, loc), time.Date(2024, 1, 8, 0, 0, 0, 0, loc)},
		"across month edge": {time.Date(2024, 3, 2, 12, 0, 0, 0, loc), time.Date(2024, 2, 26, 0, 0, 0, 0, loc)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, MondayOf(tc.in))
		})
	}
}

func TestWeekWindow(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) // Wednesday
	current := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	start, end := WeekWindow("", now, time.UTC)
	assert.Equal(t, current, start)
	assert.Equal(t, current.AddDate(0, 0, 7), end)

	start, _ = WeekWindow("2024-01-17", now, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)

	for _, unpadded := range []string{"2024-1-17", "2024-01-17", "2024-1-15", "2024-01-21"} {
		s, _ := WeekWindow(unpadded, now, time.UTC)
		assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), s, unpadded)
	}

	for _, bad := range []string{"bad", "2024-13-01", "2024/01/17", "17-01-2024"} {
		s, e := WeekWindow(bad, now, time.UTC)
		assert.Equal(t, current, s, bad)
		assert.Equal(t, current.AddDate(0, 0, 7), e, bad)
	}
}

func TestWeekWindow_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on Monday is still Sunday evening in UTC-5.
	now := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)

	start, end := WeekWindow("", now, loc)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, loc), end)
}
