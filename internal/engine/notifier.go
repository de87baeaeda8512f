package engine

import (
	"context"
	"time"
)

// Notifier schedules and cancels revision reminders.
//
// Schedule returns an opaque handle, or "" when nothing was scheduled (the
// fire time has passed or reminders are disabled). Cancel is idempotent and
// accepts handles that no longer exist.
type Notifier interface {
	Schedule(ctx context.Context, topicName string, day time.Time, topicID string) (string, error)
	Cancel(ctx context.Context, handle string) error
}

// NopNotifier schedules nothing.
type NopNotifier struct{}

// Schedule returns an empty handle.
func (NopNotifier) Schedule(context.Context, string, time.Time, string) (string, error) {
	return "", nil
}

// Cancel does nothing.
func (NopNotifier) Cancel(context.Context, string) error { return nil }
