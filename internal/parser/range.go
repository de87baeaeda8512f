package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/revise/internal/timetable"
)

// DefaultRangeDays is the length of the range used when none is given.
const DefaultRangeDays = 7

// MaxRangeDays bounds ranges so a typo cannot list years of days.
const MaxRangeDays = 366

// DayRange is an inclusive range of calendar days.
type DayRange struct {
	From time.Time
	To   time.Time
}

// Days returns the number of days in the range.
func (r DayRange) Days() int {
	return timetable.DaysBetween(r.From, r.To) + 1
}

// Each calls fn for every day in the range, in order.
func (r DayRange) Each(fn func(day time.Time)) {
	for d := timetable.Midnight(r.From); !d.After(r.To); d = timetable.AddDays(d, 1) {
		fn(d)
	}
}

var (
	periodRegex = regexp.MustCompile(`^(this|next|last)\s+(week|month)$`)
	spanRegex   = regexp.MustCompile(`^(?:next\s+)?(\d+)\s*(?:d|days?)$`)
)

// ParseRange parses a range expression relative to now. The empty string
// means the next DefaultRangeDays days starting today.
func ParseRange(input string, now time.Time) (DayRange, error) {
	expr := strings.ToLower(strings.TrimSpace(input))
	today := timetable.Midnight(now)

	var r DayRange
	switch {
	case expr == "":
		r = DayRange{From: today, To: timetable.AddDays(today, DefaultRangeDays-1)}

	case expr == "today":
		r = DayRange{From: today, To: today}

	case periodRegex.MatchString(expr):
		m := periodRegex.FindStringSubmatch(expr)
		r = period(m[1], m[2], today)

	case spanRegex.MatchString(expr):
		n, err := strconv.Atoi(spanRegex.FindStringSubmatch(expr)[1])
		if err != nil || n < 1 {
			return DayRange{}, NewRangeError(input, "range must cover at least one day")
		}
		r = DayRange{From: today, To: timetable.AddDays(today, n-1)}

	case strings.Contains(expr, ".."):
		fromText, toText, _ := strings.Cut(expr, "..")
		from, err := ParseDay(fromText, now, PreferFuture)
		if err != nil {
			return DayRange{}, err
		}
		to, err := ParseDay(toText, now, PreferFuture)
		if err != nil {
			return DayRange{}, err
		}
		r = DayRange{From: from, To: to}

	default:
		day, err := ParseDay(expr, now, PreferFuture)
		if err != nil {
			return DayRange{}, NewRangeError(input, "could not parse range")
		}
		r = DayRange{From: day, To: day}
	}

	if r.To.Before(r.From) {
		return DayRange{}, NewRangeError(input, "range end is before its start")
	}
	if r.Days() > MaxRangeDays {
		return DayRange{}, NewRangeError(input, "range is longer than a year")
	}
	return r, nil
}

// period returns the Monday-based week or calendar month around today.
func period(which, unit string, today time.Time) DayRange {
	var from time.Time
	var next func(time.Time, int) time.Time

	if unit == "week" {
		offset := (int(today.Weekday()) + 6) % 7
		from = timetable.AddDays(today, -offset)
		next = func(t time.Time, n int) time.Time { return timetable.AddDays(t, 7*n) }
	} else {
		from = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.Local)
		next = func(t time.Time, n int) time.Time { return timetable.Midnight(t.AddDate(0, n, 0)) }
	}

	switch which {
	case "next":
		from = next(from, 1)
	case "last":
		from = next(from, -1)
	}
	return DayRange{From: from, To: timetable.AddDays(next(from, 1), -1)}
}
