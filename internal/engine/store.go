package engine

import (
	"errors"

	"github.com/manav03panchal/revise/internal/model"
)

// ErrNoRecord is returned by Tx getters when the record does not exist.
var ErrNoRecord = errors.New("record not found")

// Tx is a view of the store inside one transaction. Writes made through an
// update Tx become visible to other readers only when the transaction
// commits, and are discarded if the callback returns an error.
type Tx interface {
	GetStrategy(id string) (*model.Strategy, error)
	ListStrategies() ([]*model.Strategy, error)
	PutStrategy(s *model.Strategy) error
	DeleteStrategy(id string) error

	GetTopic(id string) (*model.Topic, error)
	ListTopics() ([]*model.Topic, error)
	PutTopic(t *model.Topic) error
	DeleteTopic(id string) error

	GetRevision(id string) (*model.RevisionInstance, error)
	// PutRevision writes the instance and its topic and date index entries.
	PutRevision(r *model.RevisionInstance) error
	// DeleteRevision removes the instance and its index entries.
	DeleteRevision(id string) error
	RevisionsByTopic(topicID string) ([]*model.RevisionInstance, error)
	RevisionsByDate(day string) ([]*model.RevisionInstance, error)
	// RevisionsBetween returns instances with from <= date <= to, ordered by date.
	RevisionsBetween(from, to string) ([]*model.RevisionInstance, error)
}

// Store runs callbacks inside read-only or read-write transactions.
type Store interface {
	View(fn func(Tx) error) error
	Update(fn func(Tx) error) error
}
