package parser

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/revise/internal/errors"
)

// ParseError reports input that is not a recognizable day or range.
type ParseError struct {
	Input      string
	Field      string
	Message    string
	Examples   []string
	Suggestion string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Input, e.Message)
}

// Is matches errors.ErrValidation.
func (e *ParseError) Is(target error) bool {
	return target == errors.ErrValidation
}

// As exposes the error as a UserError for CLI display.
func (e *ParseError) As(target any) bool {
	if t, ok := target.(**errors.UserError); ok {
		*t = e.ToUserError()
		return true
	}
	return false
}

// FormatWithExamples returns the error message followed by examples.
func (e *ParseError) FormatWithExamples() string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Examples) > 0 {
		sb.WriteString("\n\nValid examples:\n")
		for _, ex := range e.Examples {
			sb.WriteString("  - ")
			sb.WriteString(ex)
			sb.WriteString("\n")
		}
	}
	if e.Suggestion != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// ToUserError converts the error to a UserError whose suggestion lists a
// few examples when no explicit suggestion is set.
func (e *ParseError) ToUserError() *errors.UserError {
	suggestion := e.Suggestion
	if suggestion == "" && len(e.Examples) > 0 {
		suggestion = "Try: " + strings.Join(e.Examples[:min(3, len(e.Examples))], ", ")
	}
	return errors.NewUserErrorWithField(e.Field, e.Input, e.Message, suggestion)
}

// DayExamples are accepted day expressions.
var DayExamples = []string{
	"today",
	"tomorrow",
	"friday",
	"next monday",
	"in 3 days",
	"+3",
	"2024-06-15",
}

// PastDayExamples are accepted expressions for days in the past.
var PastDayExamples = []string{
	"yesterday",
	"3 days ago",
	"last monday",
	"-7",
	"2024-06-01",
}

// RangeExamples are accepted range expressions.
var RangeExamples = []string{
	"this week",
	"next week",
	"this month",
	"next 14 days",
	"2024-06-01..2024-06-30",
}

// NewDayError creates a day parse error with standard examples.
func NewDayError(input string, dir Direction) *ParseError {
	examples := DayExamples
	if dir == PreferPast {
		examples = PastDayExamples
	}
	return &ParseError{
		Input:    input,
		Field:    "day",
		Message:  "could not parse day",
		Examples: examples,
	}
}

// NewRangeError creates a range parse error with standard examples.
func NewRangeError(input, message string) *ParseError {
	return &ParseError{
		Input:      input,
		Field:      "range",
		Message:    message,
		Examples:   RangeExamples,
		Suggestion: "Use a period like 'this week' or two days joined by '..'.",
	}
}
