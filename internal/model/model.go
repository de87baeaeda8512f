// Package model defines the persisted records of revise.
package model

// Model is the interface that all database models must implement.
type Model interface {
	// SetKey sets the database key for this model.
	SetKey(key string)
	// GetKey returns the database key for this model.
	GetKey() string
}

// KeyPrefix constants for database key generation.
const (
	PrefixStrategy = "strategy"
	PrefixTopic    = "topic"
	PrefixRevision = "revision"
	PrefixAlarm    = "alarm"
)

// DateLayout is the calendar-day format used for scheduled dates and index keys.
const DateLayout = "2006-01-02"

func keyFor(prefix, id string) string {
	return prefix + ":" + id
}

func idFromKey(prefix, key string) string {
	p := prefix + ":"
	if len(key) > len(p) && key[:len(p)] == p {
		return key[len(p):]
	}
	return key
}
