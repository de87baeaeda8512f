package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Topic is a named subject of study following one strategy.
//
// NextRevisionDate and IsLearned are derived from RevisionDates,
// LastRevisedDate and the day of the last write. They are stored so that
// listings never need the strategy.
type Topic struct {
	ID               string      `json:"id"`
	Name             string      `json:"name" validate:"required,max=200"`
	CreatedAt        time.Time   `json:"createdAt"`
	StrategyID       string      `json:"strategyId"`
	RevisionDates    []time.Time `json:"revisionDates"`
	LastRevisedDate  *time.Time  `json:"lastRevisedDate"`
	NextRevisionDate *time.Time  `json:"nextRevisionDate"`
	IsLearned        bool        `json:"isLearned"`
}

// UnmarshalJSON decodes a topic and puts every date back at local midnight.
// Dates are calendar days; JSON keeps only the offset, so a decoded value
// would otherwise carry a fixed zone instead of time.Local.
func (t *Topic) UnmarshalJSON(data []byte) error {
	type plain Topic
	if err := json.Unmarshal(data, (*plain)(t)); err != nil {
		return err
	}

	t.CreatedAt = localDay(t.CreatedAt)
	for i, d := range t.RevisionDates {
		t.RevisionDates[i] = localDay(d)
	}
	t.LastRevisedDate = localDayPtr(t.LastRevisedDate)
	t.NextRevisionDate = localDayPtr(t.NextRevisionDate)
	return nil
}

func localDay(d time.Time) time.Time {
	if d.IsZero() {
		return d
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.Local)
}

func localDayPtr(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	v := localDay(*d)
	return &v
}

// SetKey sets the database key for this topic.
func (t *Topic) SetKey(key string) {
	t.ID = idFromKey(PrefixTopic, key)
}

// GetKey returns the database key for this topic.
func (t *Topic) GetKey() string {
	return keyFor(PrefixTopic, t.ID)
}

// ShortID returns the first 8 characters of the id for display.
func (t *Topic) ShortID() string {
	if len(t.ID) > 8 {
		return t.ID[:8]
	}
	return t.ID
}

// HasNextRevision reports whether a revision is still outstanding.
func (t *Topic) HasNextRevision() bool {
	return t.NextRevisionDate != nil
}

// CompletedCount returns how many timetable entries fall on or before the
// last revision.
func (t *Topic) CompletedCount() int {
	if t.LastRevisedDate == nil {
		return 0
	}
	n := 0
	for _, d := range t.RevisionDates {
		if !d.After(*t.LastRevisedDate) {
			n++
		}
	}
	return n
}

// NewTopic creates a topic with a fresh id. Schedule fields are filled in by
// the engine.
func NewTopic(name, strategyID string, createdAt time.Time) *Topic {
	return &Topic{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(name),
		CreatedAt:     createdAt,
		StrategyID:    strategyID,
		RevisionDates: []time.Time{},
	}
}
