package engine

import (
	"context"
	"time"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/timetable"
	"github.com/manav03panchal/revise/internal/validate"
)

// CreateOptions adjusts topic creation.
type CreateOptions struct {
	// CreatedAt anchors the timetable on a day other than today. Entries
	// that already passed are skipped; a topic whose whole timetable is past
	// starts overdue.
	CreatedAt time.Time
	// LastRevised records a revision already made on that day. It is
	// clamped to [CreatedAt, today] and ignored when CreatedAt is after
	// today.
	LastRevised time.Time
}

// CreateTopic creates a topic following strategyID, anchored today, and
// opens its first revision instance.
func (e *Engine) CreateTopic(ctx context.Context, name, strategyID string, opts ...CreateOptions) (*model.Topic, error) {
	name, err := validate.TopicName(name)
	if err != nil {
		return nil, err
	}

	today := e.Today()
	anchor := today
	var revised *time.Time
	for _, o := range opts {
		if !o.CreatedAt.IsZero() {
			anchor = timetable.Midnight(o.CreatedAt)
		}
		if !o.LastRevised.IsZero() {
			d := timetable.Midnight(o.LastRevised)
			revised = &d
		}
	}
	switch {
	case revised == nil:
	case anchor.After(today):
		revised = nil
	case revised.After(today):
		revised = &today
	case revised.Before(anchor):
		revised = &anchor
	}

	topic := model.NewTopic(name, strategyID, anchor)
	topic.LastRevisedDate = revised
	unlock := e.locks.Lock(topic.ID)
	defer unlock()

	fx := &sideEffects{}
	err = e.store.Update(func(tx Tx) error {
		s, err := loadStrategy(tx, strategyID)
		if err != nil {
			return err
		}
		applyProgress(topic, s, today)
		if err := tx.PutTopic(topic); err != nil {
			return err
		}
		return e.reconcile(ctx, tx, topic, fx)
	})
	e.finish(ctx, fx, err)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("topic created",
		logging.KeyTopicID, topic.ID,
		logging.KeyStrategyID, strategyID,
		"revisions", len(topic.RevisionDates))
	return topic, nil
}

// CreateTopicWithDefault creates a topic on the first available strategy.
func (e *Engine) CreateTopicWithDefault(ctx context.Context, name string, opts ...CreateOptions) (*model.Topic, error) {
	if _, err := validate.TopicName(name); err != nil {
		return nil, err
	}
	strategies, err := e.ListStrategies(ctx)
	if err != nil {
		return nil, err
	}
	if len(strategies) == 0 {
		return nil, apperrors.NewStrategyNotFoundError("")
	}
	return e.CreateTopic(ctx, name, strategies[0].ID, opts...)
}

// ChangeStrategy moves a topic to another strategy. The timetable is
// recomputed from the original creation day, and past revisions still count.
func (e *Engine) ChangeStrategy(ctx context.Context, topicID, strategyID string) (*model.Topic, error) {
	unlock := e.locks.Lock(topicID)
	defer unlock()

	today := e.Today()
	var topic *model.Topic
	fx := &sideEffects{}
	err := e.store.Update(func(tx Tx) error {
		var err error
		if topic, err = loadTopic(tx, topicID); err != nil {
			return err
		}
		s, err := loadStrategy(tx, strategyID)
		if err != nil {
			return err
		}
		topic.StrategyID = s.ID
		applyProgress(topic, s, today)
		if err := tx.PutTopic(topic); err != nil {
			return err
		}
		return e.reconcile(ctx, tx, topic, fx)
	})
	e.finish(ctx, fx, err)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("strategy changed",
		logging.KeyTopicID, topicID, logging.KeyStrategyID, strategyID)
	return topic, nil
}

// MarkRevised records a revision today. The oldest open instance dated on
// or before today is completed and the next one is opened unless the topic
// is now learned.
func (e *Engine) MarkRevised(ctx context.Context, topicID string) (*model.Topic, error) {
	unlock := e.locks.Lock(topicID)
	defer unlock()

	now := e.clock.Now()
	today := timetable.Midnight(now)
	todayKey := timetable.FormatDay(today)

	var topic *model.Topic
	fx := &sideEffects{}
	err := e.store.Update(func(tx Tx) error {
		var err error
		if topic, err = loadTopic(tx, topicID); err != nil {
			return err
		}
		s, err := loadStrategy(tx, topic.StrategyID)
		if err != nil {
			return err
		}
		if applyProgress(topic, s, today).Learned {
			verr := apperrors.NewValidationError("topic", topic.Name,
				"topic is already learned", "")
			verr.Cause = apperrors.ErrAlreadyLearned
			return verr
		}

		instances, err := tx.RevisionsByTopic(topic.ID)
		if err != nil {
			return err
		}
		for _, r := range instances {
			if r.IsOpen() && r.ScheduledDate <= todayKey {
				r.Complete(now)
				if err := tx.PutRevision(r); err != nil {
					return err
				}
				fx.cancel = append(fx.cancel, r.NotificationID)
				break
			}
		}

		topic.LastRevisedDate = &today
		applyProgress(topic, s, today)
		if err := tx.PutTopic(topic); err != nil {
			return err
		}
		return e.reconcile(ctx, tx, topic, fx)
	})
	e.finish(ctx, fx, err)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("topic revised",
		logging.KeyTopicID, topicID,
		"learned", topic.IsLearned)
	return topic, nil
}

// DeleteTopic removes a topic and every revision instance it owns.
func (e *Engine) DeleteTopic(ctx context.Context, topicID string) error {
	unlock := e.locks.Lock(topicID)
	defer unlock()

	fx := &sideEffects{}
	err := e.store.Update(func(tx Tx) error {
		if _, err := loadTopic(tx, topicID); err != nil {
			return err
		}
		instances, err := tx.RevisionsByTopic(topicID)
		if err != nil {
			return err
		}
		for _, r := range instances {
			if err := tx.DeleteRevision(r.ID); err != nil {
				return err
			}
			fx.cancel = append(fx.cancel, r.NotificationID)
		}
		return tx.DeleteTopic(topicID)
	})
	e.finish(ctx, fx, err)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Info("topic deleted",
		logging.KeyTopicID, topicID, logging.KeyCount, len(fx.cancel))
	return nil
}

// RenameTopic changes a topic's name and the name copied onto its
// instances. Pending reminders are rescheduled under the new name.
func (e *Engine) RenameTopic(ctx context.Context, topicID, name string) (*model.Topic, error) {
	name, err := validate.TopicName(name)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(topicID)
	defer unlock()

	var topic *model.Topic
	fx := &sideEffects{}
	err = e.store.Update(func(tx Tx) error {
		var err error
		if topic, err = loadTopic(tx, topicID); err != nil {
			return err
		}
		topic.Name = name
		if err := tx.PutTopic(topic); err != nil {
			return err
		}
		instances, err := tx.RevisionsByTopic(topicID)
		if err != nil {
			return err
		}
		for _, r := range instances {
			r.TopicName = name
			if r.IsOpen() && r.NotificationID != "" {
				fx.cancel = append(fx.cancel, r.NotificationID)
				r.NotificationID = ""
				e.schedule(ctx, r, fx)
			}
			if err := tx.PutRevision(r); err != nil {
				return err
			}
		}
		return nil
	})
	e.finish(ctx, fx, err)
	if err != nil {
		return nil, err
	}
	return topic, nil
}
