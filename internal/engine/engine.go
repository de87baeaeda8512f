// Package engine implements the revision scheduling engine: it turns
// topics and strategies into timetables, keeps one open revision instance
// per topic, and keeps reminders in step with the stored schedule.
package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/timetable"
	"github.com/manav03panchal/revise/internal/validate"
)

// MaxTopicNameLength bounds topic names.
const MaxTopicNameLength = validate.MaxTopicNameLength

// Engine orchestrates schedule mutations around the pure timetable
// functions. Mutations of one topic are serialized; different topics run
// concurrently.
type Engine struct {
	store    Store
	notifier Notifier
	clock    Clock
	locks    *keyLock
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for "today".
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithNotifier sets the reminder backend. The default schedules nothing.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New creates an engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		notifier: NopNotifier{},
		clock:    SystemClock,
		locks:    newKeyLock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Today returns the current local day at midnight.
func (e *Engine) Today() time.Time {
	return timetable.Midnight(e.clock.Now())
}

// Progress classifies the topic's stored next revision as of today. An
// overdue date stays put until the topic is revised.
func (e *Engine) Progress(t *model.Topic) timetable.Progress {
	return timetable.Evaluate(t.NextRevisionDate, e.Today())
}

// sideEffects collects notifier work to run once the transaction outcome
// is known.
type sideEffects struct {
	scheduled []string // cancelled if the transaction fails
	cancel    []string // cancelled once the transaction commits
}

// finish cancels superseded handles after a commit, or the handles
// scheduled inside a failed transaction. Notification errors are logged.
func (e *Engine) finish(ctx context.Context, fx *sideEffects, txErr error) {
	handles := fx.cancel
	if txErr != nil {
		handles = fx.scheduled
	}
	for _, h := range handles {
		if h == "" {
			continue
		}
		if err := e.notifier.Cancel(ctx, h); err != nil {
			logging.FromContext(ctx).Warn("reminder cancel failed",
				logging.KeyError, apperrors.NewNotificationError("cancel", err),
				"handle", h)
		}
	}
}

// schedule requests a reminder for r. A failure leaves r without a handle.
func (e *Engine) schedule(ctx context.Context, r *model.RevisionInstance, fx *sideEffects) {
	day, err := r.Day()
	if err != nil {
		return
	}
	handle, err := e.notifier.Schedule(ctx, r.TopicName, day, r.TopicID)
	if err != nil {
		logging.FromContext(ctx).Warn("reminder schedule failed",
			logging.KeyError, apperrors.NewNotificationError("schedule", err),
			logging.KeyTopicID, r.TopicID,
			logging.KeyDay, r.ScheduledDate)
		return
	}
	r.NotificationID = handle
	fx.scheduled = append(fx.scheduled, handle)
}

// reconcile makes the topic's open instances match its next due date: at
// most one open instance remains, dated on NextRevisionDate. Stale open
// instances are removed and their reminders queued for cancellation.
func (e *Engine) reconcile(ctx context.Context, tx Tx, t *model.Topic, fx *sideEffects) error {
	instances, err := tx.RevisionsByTopic(t.ID)
	if err != nil {
		return err
	}

	want := ""
	if t.NextRevisionDate != nil {
		want = timetable.FormatDay(*t.NextRevisionDate)
	}

	kept := false
	for _, r := range instances {
		if !r.IsOpen() {
			continue
		}
		if !kept && want != "" && r.ScheduledDate == want {
			kept = true
			continue
		}
		if err := tx.DeleteRevision(r.ID); err != nil {
			return err
		}
		fx.cancel = append(fx.cancel, r.NotificationID)
		logging.FromContext(ctx).Debug("closed stale revision",
			logging.KeyTopicID, t.ID, logging.KeyRevisionID, r.ID)
	}

	if kept || want == "" {
		return nil
	}

	r := model.NewRevisionInstance(t, *t.NextRevisionDate)
	e.schedule(ctx, r, fx)
	return tx.PutRevision(r)
}

// applyProgress recomputes the timetable and derived fields of t.
func applyProgress(t *model.Topic, s *model.Strategy, today time.Time) timetable.Progress {
	t.RevisionDates = timetable.Calculate(t.CreatedAt, s.EffectiveIntervals())
	p := timetable.DeriveProgress(t.RevisionDates, t.LastRevisedDate, today)
	t.NextRevisionDate = p.NextDue
	t.IsLearned = p.Learned
	return p
}

func loadTopic(tx Tx, id string) (*model.Topic, error) {
	t, err := tx.GetTopic(id)
	if errors.Is(err, ErrNoRecord) {
		return nil, apperrors.NewNotFoundError("topic", id)
	}
	return t, err
}

func loadStrategy(tx Tx, id string) (*model.Strategy, error) {
	s, err := tx.GetStrategy(id)
	if errors.Is(err, ErrNoRecord) {
		return nil, apperrors.NewStrategyNotFoundError(id)
	}
	return s, err
}

// sortTopics orders by next due date with learned topics last, then name.
func sortTopics(topics []*model.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		a, b := topics[i], topics[j]
		switch {
		case a.NextRevisionDate == nil && b.NextRevisionDate != nil:
			return false
		case a.NextRevisionDate != nil && b.NextRevisionDate == nil:
			return true
		case a.NextRevisionDate != nil && !a.NextRevisionDate.Equal(*b.NextRevisionDate):
			return a.NextRevisionDate.Before(*b.NextRevisionDate)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

func sortInstances(rs []*model.RevisionInstance) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].ScheduledDate != rs[j].ScheduledDate {
			return rs[i].ScheduledDate < rs[j].ScheduledDate
		}
		return rs[i].TopicName < rs[j].TopicName
	})
}
