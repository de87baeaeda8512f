package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RevisionInstance is one scheduled revision session of a topic.
type RevisionInstance struct {
	ID             string     `json:"id"`
	TopicID        string     `json:"topicId"`
	TopicName      string     `json:"topicName"`
	ScheduledDate  string     `json:"scheduledDate"`
	IsCompleted    bool       `json:"isCompleted"`
	CompletedAt    *time.Time `json:"completedAt"`
	NotificationID string     `json:"notificationId,omitempty"`
}

// SetKey sets the database key for this instance.
func (r *RevisionInstance) SetKey(key string) {
	r.ID = idFromKey(PrefixRevision, key)
}

// GetKey returns the database key for this instance.
func (r *RevisionInstance) GetKey() string {
	return keyFor(PrefixRevision, r.ID)
}

// IsOpen reports whether the instance is still awaiting completion.
func (r *RevisionInstance) IsOpen() bool {
	return !r.IsCompleted
}

// Day returns the scheduled date at local midnight.
func (r *RevisionInstance) Day() (time.Time, error) {
	return time.ParseInLocation(DateLayout, r.ScheduledDate, time.Local)
}

// Complete marks the instance done at the given time.
func (r *RevisionInstance) Complete(at time.Time) {
	r.IsCompleted = true
	r.CompletedAt = &at
}

// GenerateRevisionID builds an instance id from the topic id and day. The
// random suffix keeps ids unique when a topic is rescheduled onto the same
// day more than once.
func GenerateRevisionID(topicID string, day time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", topicID, day.Format(DateLayout), suffix)
}

// NewRevisionInstance creates an open instance for the topic on day.
func NewRevisionInstance(topic *Topic, day time.Time) *RevisionInstance {
	return &RevisionInstance{
		ID:            GenerateRevisionID(topic.ID, day),
		TopicID:       topic.ID,
		TopicName:     topic.Name,
		ScheduledDate: day.Format(DateLayout),
	}
}
