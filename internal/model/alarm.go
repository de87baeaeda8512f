package model

import (
	"time"

	"github.com/google/uuid"
)

// Alarm is a pending reminder owned by the notification coordinator. Its id
// is the notification handle stored on a revision instance.
type Alarm struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topic_id"`
	TopicName string    `json:"topic_name"`
	Day       string    `json:"day"`
	FireAt    time.Time `json:"fire_at"`
	Fired     bool      `json:"fired"`
	FiredAt   time.Time `json:"fired_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SetKey sets the database key for this alarm.
func (a *Alarm) SetKey(key string) {
	a.ID = idFromKey(PrefixAlarm, key)
}

// GetKey returns the database key for this alarm.
func (a *Alarm) GetKey() string {
	return keyFor(PrefixAlarm, a.ID)
}

// IsPending returns true if the alarm has not fired.
func (a *Alarm) IsPending() bool {
	return !a.Fired
}

// IsDue returns true if the alarm should fire at now.
func (a *Alarm) IsDue(now time.Time) bool {
	return !a.Fired && !now.Before(a.FireAt)
}

// ShortID returns the first 8 characters of the id for display.
func (a *Alarm) ShortID() string {
	if len(a.ID) > 8 {
		return a.ID[:8]
	}
	return a.ID
}

// NewAlarm creates a pending alarm.
func NewAlarm(topicID, topicName string, day, fireAt time.Time) *Alarm {
	return &Alarm{
		ID:        uuid.New().String(),
		TopicID:   topicID,
		TopicName: topicName,
		Day:       day.Format(DateLayout),
		FireAt:    fireAt,
		CreatedAt: time.Now(),
	}
}
