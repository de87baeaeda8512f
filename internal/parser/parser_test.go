package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/manav03panchal/revise/internal/errors"
)

// Saturday.
var now = time.Date(2024, 6, 15, 10, 30, 0, 0, time.Local)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// =============================================================================
// ParseDay Tests
// =============================================================================

func TestParseDay(t *testing.T) {
	tests := []struct {
		input string
		dir   Direction
		want  time.Time
	}{
		{"", PreferFuture, day(2024, 6, 15)},
		{"today", PreferFuture, day(2024, 6, 15)},
		{"  Today ", PreferFuture, day(2024, 6, 15)},
		{"now", PreferPast, day(2024, 6, 15)},
		{"tomorrow", PreferFuture, day(2024, 6, 16)},
		{"yesterday", PreferPast, day(2024, 6, 14)},
		{"+3", PreferFuture, day(2024, 6, 18)},
		{"+3d", PreferFuture, day(2024, 6, 18)},
		{"-7", PreferPast, day(2024, 6, 8)},
		{"+20", PreferFuture, day(2024, 7, 5)},
		{"2024-06-01", PreferPast, day(2024, 6, 1)},
		{"2025-01-31", PreferFuture, day(2025, 1, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDay(tt.input, now, tt.dir)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseDayNaturalLanguage(t *testing.T) {
	tests := []struct {
		input string
		dir   Direction
		want  time.Time
	}{
		{"in 3 days", PreferFuture, day(2024, 6, 18)},
		{"3 days ago", PreferPast, day(2024, 6, 12)},
		{"friday", PreferFuture, day(2024, 6, 21)},
		{"friday", PreferPast, day(2024, 6, 14)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDay(tt.input, now, tt.dir)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseDayReturnsMidnight(t *testing.T) {
	got, err := ParseDay("in 2 days", now, PreferFuture)
	require.NoError(t, err)
	assert.Zero(t, got.Hour())
	assert.Zero(t, got.Minute())
}

func TestParseDayInvalid(t *testing.T) {
	_, err := ParseDay("blorptastic", now, PreferPast)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "day", perr.Field)
	assert.Equal(t, PastDayExamples, perr.Examples)

	var uerr *apperrors.UserError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "Try: yesterday, 3 days ago, last monday", uerr.Suggestion)
}

// =============================================================================
// ParseRange Tests
// =============================================================================

func TestParseRange(t *testing.T) {
	tests := []struct {
		input    string
		from, to time.Time
	}{
		{"", day(2024, 6, 15), day(2024, 6, 21)},
		{"today", day(2024, 6, 15), day(2024, 6, 15)},
		{"this week", day(2024, 6, 10), day(2024, 6, 16)},
		{"next week", day(2024, 6, 17), day(2024, 6, 23)},
		{"last week", day(2024, 6, 3), day(2024, 6, 9)},
		{"this month", day(2024, 6, 1), day(2024, 6, 30)},
		{"next month", day(2024, 7, 1), day(2024, 7, 31)},
		{"last month", day(2024, 5, 1), day(2024, 5, 31)},
		{"next 14 days", day(2024, 6, 15), day(2024, 6, 28)},
		{"3d", day(2024, 6, 15), day(2024, 6, 17)},
		{"1 day", day(2024, 6, 15), day(2024, 6, 15)},
		{"2024-06-01..2024-06-30", day(2024, 6, 1), day(2024, 6, 30)},
		{"today..+2", day(2024, 6, 15), day(2024, 6, 17)},
		{"2024-07-04", day(2024, 7, 4), day(2024, 7, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := ParseRange(tt.input, now)
			require.NoError(t, err)
			assert.True(t, tt.from.Equal(r.From), "from: want %s, got %s", tt.from, r.From)
			assert.True(t, tt.to.Equal(r.To), "to: want %s, got %s", tt.to, r.To)
		})
	}
}

func TestParseRangeInvalid(t *testing.T) {
	tests := map[string]string{
		"2024-06-30..2024-06-01": "range end is before its start",
		"0 days":                 "at least one day",
		"next 400 days":          "longer than a year",
		"blorptastic!!":         "could not parse range",
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseRange(input, now)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Contains(t, err.Error(), want)
		})
	}
}

func TestDayRangeEach(t *testing.T) {
	r := DayRange{From: day(2024, 6, 29), To: day(2024, 7, 2)}
	assert.Equal(t, 4, r.Days())

	var got []string
	r.Each(func(d time.Time) { got = append(got, d.Format("01-02")) })
	assert.Equal(t, []string{"06-29", "06-30", "07-01", "07-02"}, got)
}

// =============================================================================
// ParseError Tests
// =============================================================================

func TestParseErrorFormatWithExamples(t *testing.T) {
	err := NewRangeError("soon", "could not parse range")
	out := err.FormatWithExamples()
	assert.Contains(t, out, "invalid range 'soon': could not parse range")
	assert.Contains(t, out, "  - this week\n")
	assert.Contains(t, out, "two days joined by '..'")
}

func TestParseErrorToUserError(t *testing.T) {
	uerr := NewDayError("someday", PreferFuture).ToUserError()
	assert.Equal(t, "day", uerr.Field)
	assert.Equal(t, "someday", uerr.Value)
	assert.Equal(t, "Try: today, tomorrow, friday", uerr.Suggestion)
}
