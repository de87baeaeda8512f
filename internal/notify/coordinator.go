package notify

import (
	"context"
	"time"

	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/storage"
	"github.com/manav03panchal/revise/internal/timetable"
)

// Coordinator turns revision reminders into stored alarms. The alarm id is
// the handle the engine keeps on a revision instance; the daemon delivers
// alarms when they come due.
type Coordinator struct {
	alarms  *storage.AlarmRepo
	hour    int
	enabled bool
	now     func() time.Time
}

var _ engine.Notifier = (*Coordinator)(nil)

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithFireHour sets the local hour reminders fire on their day.
func WithFireHour(hour int) CoordinatorOption {
	return func(c *Coordinator) { c.hour = hour }
}

// WithEnabled turns scheduling on or off.
func WithEnabled(enabled bool) CoordinatorOption {
	return func(c *Coordinator) { c.enabled = enabled }
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a coordinator firing at 9:00 local time.
func NewCoordinator(alarms *storage.AlarmRepo, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		alarms:  alarms,
		hour:    9,
		enabled: true,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FireTime returns when a reminder for day fires.
func (c *Coordinator) FireTime(day time.Time) time.Time {
	d := timetable.Midnight(day)
	return time.Date(d.Year(), d.Month(), d.Day(), c.hour, 0, 0, 0, time.Local)
}

// Schedule stores an alarm for topicName on day. It returns an empty
// handle when reminders are disabled or the fire time has already passed.
func (c *Coordinator) Schedule(ctx context.Context, topicName string, day time.Time, topicID string) (string, error) {
	if !c.enabled {
		return "", nil
	}
	fireAt := c.FireTime(day)
	if !fireAt.After(c.now()) {
		return "", nil
	}

	alarm := model.NewAlarm(topicID, topicName, timetable.Midnight(day), fireAt)
	if err := c.alarms.Create(alarm); err != nil {
		return "", err
	}

	logging.FromContext(ctx).Debug("alarm scheduled",
		logging.KeyAlarmID, alarm.ID,
		logging.KeyTopicID, topicID,
		"fire_at", fireAt)
	return alarm.ID, nil
}

// Cancel removes the alarm behind handle. Unknown handles are ignored.
func (c *Coordinator) Cancel(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	if err := c.alarms.Delete(handle); err != nil {
		return err
	}
	logging.FromContext(ctx).Debug("alarm cancelled", logging.KeyAlarmID, handle)
	return nil
}

// Pending lists alarms that have not fired yet.
func (c *Coordinator) Pending() ([]*model.Alarm, error) {
	return c.alarms.ListPending()
}
