package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/storage"
)

// digestMarkKey records the last day a digest was considered.
const digestMarkKey = "meta:digest_last"

// DigestGenerator sends one morning digest per day listing what is due
// and what is overdue.
type DigestGenerator struct {
	enabled bool
	hour    int
}

// NewDigestGenerator creates a generator that sends at hour.
func NewDigestGenerator(enabled bool, hour int) *DigestGenerator {
	return &DigestGenerator{enabled: enabled, hour: hour}
}

// Check sends today's digest if it is due and has not gone out yet. Days
// with nothing due are marked without sending.
func (g *DigestGenerator) Check(ctx context.Context, sess *Session, now time.Time) (bool, error) {
	if !g.enabled || now.Hour() < g.hour {
		return false, nil
	}

	today := now.Format(model.DateLayout)
	last, err := g.lastDay(sess.Marks)
	if err != nil {
		return false, err
	}
	if last == today {
		return false, nil
	}

	due, err := sess.Topics.QueryDueOn(ctx, now)
	if err != nil {
		return false, fmt.Errorf("query due: %w", err)
	}
	overdue, err := sess.Topics.QueryOverdue(ctx)
	if err != nil {
		return false, fmt.Errorf("query overdue: %w", err)
	}

	sent := false
	if len(due) > 0 || len(overdue) > 0 {
		sess.Sender.SendNotification(ctx, DigestNotification(due, overdue))
		sent = true
	}

	data, err := json.Marshal(today)
	if err != nil {
		return sent, err
	}
	return sent, sess.Marks.SetBytes(digestMarkKey, data)
}

func (g *DigestGenerator) lastDay(marks Marks) (string, error) {
	data, err := marks.GetBytes(digestMarkKey)
	if storage.IsErrKeyNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read digest mark: %w", err)
	}
	var day string
	if err := json.Unmarshal(data, &day); err != nil {
		return "", nil
	}
	return day, nil
}

// DigestNotification lists today's revisions and overdue topics.
func DigestNotification(due []*model.RevisionInstance, overdue []*model.Topic) *model.Notification {
	n := model.NewNotification(
		model.NotifyDigest,
		"Today's revisions",
		fmt.Sprintf("%d due today, %d overdue", len(due), len(overdue)),
	)
	if len(due) > 0 {
		names := make([]string, len(due))
		for i, r := range due {
			names[i] = r.TopicName
		}
		n.WithField("Due today", strings.Join(names, ", "))
	}
	if len(overdue) > 0 {
		names := make([]string, len(overdue))
		for i, t := range overdue {
			names[i] = t.Name
		}
		n.WithField("Overdue", strings.Join(names, ", "))
	}
	n.WithField("Total", strconv.Itoa(len(due)+len(overdue)))
	return n
}
