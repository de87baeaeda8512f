package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
)

// AlarmChecker delivers due alarms. Alarms that should have fired longer
// than staleAfter ago, typically because the machine was asleep, are
// folded into a single catch-up notification instead of one each.
type AlarmChecker struct {
	staleAfter time.Duration
}

// NewAlarmChecker creates a checker.
func NewAlarmChecker(staleAfter time.Duration) *AlarmChecker {
	return &AlarmChecker{staleAfter: staleAfter}
}

// Check sends notifications for every alarm due at now and marks them
// fired. It returns how many were delivered individually and how many
// went out in the catch-up notification.
func (c *AlarmChecker) Check(ctx context.Context, sess *Session, now time.Time) (int, int, error) {
	due, err := sess.Alarms.ListDue(now)
	if err != nil {
		return 0, 0, fmt.Errorf("list due alarms: %w", err)
	}

	var fresh, stale []*model.Alarm
	for _, a := range due {
		if c.staleAfter > 0 && now.Sub(a.FireAt) > c.staleAfter {
			stale = append(stale, a)
		} else {
			fresh = append(fresh, a)
		}
	}

	for _, a := range fresh {
		c.deliver(ctx, sess, RevisionDueNotification(a))
		if err := sess.Alarms.MarkFired(a.ID, now); err != nil {
			return 0, 0, fmt.Errorf("mark alarm %s fired: %w", a.ShortID(), err)
		}
	}

	if len(stale) > 0 {
		c.deliver(ctx, sess, CatchUpNotification(stale))
		for _, a := range stale {
			if err := sess.Alarms.MarkFired(a.ID, now); err != nil {
				return len(fresh), 0, fmt.Errorf("mark alarm %s fired: %w", a.ShortID(), err)
			}
		}
	}
	return len(fresh), len(stale), nil
}

func (c *AlarmChecker) deliver(ctx context.Context, sess *Session, n *model.Notification) {
	for _, r := range sess.Sender.SendNotification(ctx, n) {
		if !r.Success {
			logging.Warn("reminder delivery failed",
				logging.KeyWebhook, r.WebhookName,
				logging.KeyError, r.Error)
		}
	}
}

// RevisionDueNotification builds the reminder for one alarm.
func RevisionDueNotification(a *model.Alarm) *model.Notification {
	return model.NewNotification(
		model.NotifyRevisionDue,
		fmt.Sprintf("Time to revise: %s", a.TopicName),
		"A revision is scheduled for today.",
	).WithField("Topic", a.TopicName).WithField("Day", a.Day)
}

// CatchUpNotification summarizes alarms missed while the daemon was not
// running.
func CatchUpNotification(alarms []*model.Alarm) *model.Notification {
	names := make([]string, 0, len(alarms))
	seen := make(map[string]bool)
	for _, a := range alarms {
		if !seen[a.TopicName] {
			seen[a.TopicName] = true
			names = append(names, a.TopicName)
		}
	}
	title := "1 missed revision reminder"
	if len(alarms) != 1 {
		title = fmt.Sprintf("%d missed revision reminders", len(alarms))
	}
	return model.NewNotification(model.NotifyOverdue, title, "These topics are waiting for you.").
		WithField("Topics", strings.Join(names, ", "))
}
