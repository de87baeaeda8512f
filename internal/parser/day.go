// Package parser turns the day and range expressions users type on the
// command line into calendar days.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"

	"github.com/manav03panchal/revise/internal/timetable"
)

// Direction resolves ambiguous expressions like "monday".
type Direction int

const (
	// PreferFuture picks the next matching day, for due dates.
	PreferFuture Direction = iota
	// PreferPast picks the previous matching day, for backdating.
	PreferPast
)

var offsetRegex = regexp.MustCompile(`^([+-])(\d+)d?$`)

// ParseDay parses a day expression relative to now and returns local
// midnight of that day.
func ParseDay(input string, now time.Time, dir Direction) (time.Time, error) {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "", "today", "now":
		return timetable.Midnight(now), nil
	case "tomorrow":
		return timetable.AddDays(now, 1), nil
	case "yesterday":
		return timetable.AddDays(now, -1), nil
	}

	if m := offsetRegex.FindStringSubmatch(input); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, NewDayError(input, dir)
		}
		if m[1] == "-" {
			n = -n
		}
		return timetable.AddDays(now, n), nil
	}

	if day, err := timetable.ParseDay(input); err == nil {
		return day, nil
	}

	source := dateparser.Future
	if dir == PreferPast {
		source = dateparser.Past
	}
	cfg := &dateparser.Configuration{
		CurrentTime:         now,
		PreferredDateSource: source,
	}
	result, err := dateparser.Parse(cfg, input)
	if err != nil || result.Time.IsZero() {
		return time.Time{}, NewDayError(input, dir)
	}
	return timetable.Midnight(result.Time), nil
}
