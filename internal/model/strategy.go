package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Strategy is a named, ordered list of day offsets from a topic's creation date.
// Duplicates are allowed and order is significant.
type Strategy struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,max=100"`
	Intervals []int     `json:"intervals"`
	CreatedAt time.Time `json:"created_at"`
}

// SetKey sets the database key for this strategy.
func (s *Strategy) SetKey(key string) {
	s.ID = idFromKey(PrefixStrategy, key)
}

// GetKey returns the database key for this strategy.
func (s *Strategy) GetKey() string {
	return keyFor(PrefixStrategy, s.ID)
}

// EffectiveIntervals returns the positive intervals in their original order.
// Legacy records may hold zero or negative values, which never schedule anything.
func (s *Strategy) EffectiveIntervals() []int {
	out := make([]int, 0, len(s.Intervals))
	for _, n := range s.Intervals {
		if n > 0 {
			out = append(out, n)
		}
	}
	return out
}

// IntervalsText renders the intervals the way a user would type them.
func (s *Strategy) IntervalsText() string {
	parts := make([]string, len(s.Intervals))
	for i, n := range s.Intervals {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// ShortID returns the first 8 characters of the id for display.
func (s *Strategy) ShortID() string {
	if len(s.ID) > 8 {
		return s.ID[:8]
	}
	return s.ID
}

// NewStrategy creates a strategy with a fresh id.
func NewStrategy(name string, intervals []int) *Strategy {
	return &Strategy{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Intervals: intervals,
		CreatedAt: time.Now(),
	}
}

// ParseIntervals parses a comma separated list of day offsets such as
// "1, 3, 7". Entries that are not positive integers are skipped, so
// "1,three,7" yields [1 7]. It never fails; callers decide whether an
// empty result is acceptable.
func ParseIntervals(text string) []int {
	out := []int{}
	for _, field := range strings.Split(text, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}

// DefaultStrategies returns the strategies seeded on first run.
func DefaultStrategies() []*Strategy {
	return []*Strategy{
		NewStrategy("Standard", []int{1, 3, 7, 14, 30, 60}),
		NewStrategy("Short Term", []int{1, 2, 4, 7, 12}),
		NewStrategy("Exam Prep", []int{1, 1, 2, 3, 5, 8}),
	}
}
