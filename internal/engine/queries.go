package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/timetable"
)

// QueryDueOn returns the open revision instances scheduled on day, ordered
// by topic name.
func (e *Engine) QueryDueOn(ctx context.Context, day time.Time) ([]*model.RevisionInstance, error) {
	var out []*model.RevisionInstance
	err := e.store.View(func(tx Tx) error {
		rs, err := tx.RevisionsByDate(timetable.FormatDay(day))
		if err != nil {
			return err
		}
		out = make([]*model.RevisionInstance, 0, len(rs))
		for _, r := range rs {
			if r.IsOpen() {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortInstances(out)
	return out, nil
}

// QueryAll returns every topic ordered by next due date, learned topics last.
func (e *Engine) QueryAll(ctx context.Context) ([]*model.Topic, error) {
	var topics []*model.Topic
	err := e.store.View(func(tx Tx) error {
		var err error
		topics, err = tx.ListTopics()
		return err
	})
	if err != nil {
		return nil, err
	}
	sortTopics(topics)
	return topics, nil
}

// QueryOverdue returns topics whose next revision is before today.
func (e *Engine) QueryOverdue(ctx context.Context) ([]*model.Topic, error) {
	all, err := e.QueryAll(ctx)
	if err != nil {
		return nil, err
	}
	today := e.Today()
	var out []*model.Topic
	for _, t := range all {
		if t.NextRevisionDate != nil && t.NextRevisionDate.Before(today) {
			out = append(out, t)
		}
	}
	return out, nil
}

// QueryRange returns all instances, open or completed, scheduled between
// from and to inclusive.
func (e *Engine) QueryRange(ctx context.Context, from, to time.Time) ([]*model.RevisionInstance, error) {
	if timetable.Midnight(to).Before(timetable.Midnight(from)) {
		return nil, apperrors.NewValidationError("range",
			timetable.FormatDay(from)+".."+timetable.FormatDay(to),
			"range end is before its start", "")
	}
	var out []*model.RevisionInstance
	err := e.store.View(func(tx Tx) error {
		var err error
		out, err = tx.RevisionsBetween(timetable.FormatDay(from), timetable.FormatDay(to))
		return err
	})
	if err != nil {
		return nil, err
	}
	sortInstances(out)
	return out, nil
}

// Instances returns a topic's revision history ordered by date.
func (e *Engine) Instances(ctx context.Context, topicID string) ([]*model.RevisionInstance, error) {
	var out []*model.RevisionInstance
	err := e.store.View(func(tx Tx) error {
		if _, err := loadTopic(tx, topicID); err != nil {
			return err
		}
		var err error
		out, err = tx.RevisionsByTopic(topicID)
		return err
	})
	return out, err
}

// GetTopic returns a topic by id.
func (e *Engine) GetTopic(ctx context.Context, topicID string) (*model.Topic, error) {
	var t *model.Topic
	err := e.store.View(func(tx Tx) error {
		var err error
		t, err = loadTopic(tx, topicID)
		return err
	})
	return t, err
}

// FindTopic resolves a user reference: a full id, a unique id prefix, or a
// unique case-insensitive name.
func (e *Engine) FindTopic(ctx context.Context, ref string) (*model.Topic, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperrors.NewValidationError("topic", ref, "topic reference is required", "")
	}

	var found *model.Topic
	err := e.store.View(func(tx Tx) error {
		if t, err := tx.GetTopic(ref); err == nil {
			found = t
			return nil
		} else if !errors.Is(err, ErrNoRecord) {
			return err
		}
		topics, err := tx.ListTopics()
		if err != nil {
			return err
		}
		var byPrefix, byName []*model.Topic
		for _, t := range topics {
			if strings.HasPrefix(t.ID, ref) {
				byPrefix = append(byPrefix, t)
			}
			if strings.EqualFold(t.Name, ref) {
				byName = append(byName, t)
			}
		}
		for _, matches := range [][]*model.Topic{byPrefix, byName} {
			switch len(matches) {
			case 0:
				continue
			case 1:
				found = matches[0]
				return nil
			default:
				verr := apperrors.NewValidationError("topic", ref,
					"more than one topic matches", "")
				verr.Cause = apperrors.ErrAmbiguousMatch
				return verr
			}
		}
		return apperrors.NewNotFoundError("topic", ref)
	})
	return found, err
}
