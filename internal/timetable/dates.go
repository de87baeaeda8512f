// Package timetable computes revision timetables and the progress derived
// from them. Everything here is pure: no clock, no storage.
package timetable

import (
	"time"

	"github.com/manav03panchal/revise/internal/model"
)

// Midnight returns t truncated to the start of its calendar day in the
// local time zone.
func Midnight(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// AddDays moves t by n calendar days and normalizes to midnight. Calendar
// arithmetic keeps DST transitions from shifting the date.
func AddDays(t time.Time, n int) time.Time {
	return Midnight(Midnight(t).AddDate(0, 0, n))
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	return Midnight(a).Equal(Midnight(b))
}

// FormatDay renders t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return Midnight(t).Format(model.DateLayout)
}

// ParseDay parses a YYYY-MM-DD string at local midnight.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(model.DateLayout, s, time.Local)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	a, b = Midnight(a), Midnight(b)
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
