package service

import (
	"time"
)

// WeekIdentifier returns the Monday on or before date as YYYY-MM-DD, in date's
// own location. Sunday belongs to the week that started six days earlier.
func WeekIdentifier(date time.Time) string {
	return WeekStart(date).Format(time.DateOnly)
}

// WeekStart is midnight of the Monday on or before date.
func WeekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	y, m, d := date.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, date.Location())
}

// startOfDay truncates t to local midnight.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
