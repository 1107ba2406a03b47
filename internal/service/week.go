package service

import "time"

// WeekLayout parses the week query parameter.  Month and day may be one or
// two digits, so "2024-1-8" and "2024-01-08" are the same week.
const WeekLayout = "2006-1-2"

// MondayOf returns local midnight of the Monday on or before t, in t's
// location.
func MondayOf(t time.Time) time.Time {
	days := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-days, 0, 0, 0, 0, t.Location())
}

// WeekWindow resolves the week parameter to a half-open interval
// [start, end) of seven calendar days.  A parameter that does not parse
// with WeekLayout, or an empty one, selects the week containing now.
func WeekWindow(param string, now time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.Local
	}
	ref := now.In(loc)
	if param != "" {
		if d, err := time.ParseInLocation(WeekLayout, param, loc); err == nil {
			ref = d
		}
	}
	start = MondayOf(ref)
	return start, start.AddDate(0, 0, 7)
}
