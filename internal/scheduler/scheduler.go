// Package scheduler runs the daemon's periodic jobs: delivering revision
// alarms as they come due and sending the morning digest.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/notify"
)

// Alarms is the alarm storage a tick works against.
type Alarms interface {
	ListDue(now time.Time) ([]*model.Alarm, error)
	MarkFired(id string, at time.Time) error
	PruneFired(before time.Time) (int, error)
}

// Topics answers the schedule questions the digest needs.
type Topics interface {
	QueryDueOn(ctx context.Context, day time.Time) ([]*model.RevisionInstance, error)
	QueryOverdue(ctx context.Context) ([]*model.Topic, error)
}

// Sender delivers a notification to every enabled webhook.
type Sender interface {
	SendNotification(ctx context.Context, n *model.Notification) []notify.DispatchResult
}

// Marks stores small pieces of scheduler state between ticks.
type Marks interface {
	GetBytes(key string) ([]byte, error)
	SetBytes(key string, data []byte) error
}

// Session is everything one tick needs. It is opened per tick so that the
// database is only held while work is being done.
type Session struct {
	Alarms Alarms
	Topics Topics
	Sender Sender
	Marks  Marks
}

// OpenFunc opens a session. The returned close function releases it.
type OpenFunc func(ctx context.Context) (*Session, func() error, error)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNow replaces the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithTickHook registers a function called after every scheduled tick.
func WithTickHook(hook func(TickResult, error)) Option {
	return func(s *Scheduler) { s.onTick = hook }
}

// WithConfig replaces the global configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Scheduler) {
		s.cfg = cfg.Scheduler
		s.alarms = NewAlarmChecker(cfg.Scheduler.SleepThreshold)
		s.digest = NewDigestGenerator(cfg.Notify.DigestEnabled, cfg.Notify.DigestHour)
	}
}

// Scheduler runs alarm checks on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	open OpenFunc
	cfg  config.SchedulerConfig
	now  func() time.Time

	alarms *AlarmChecker
	digest *DigestGenerator
	onTick func(TickResult, error)

	mu        sync.Mutex
	lastCheck time.Time
	running   bool
}

// NewScheduler creates a scheduler using the global configuration.
func NewScheduler(open OpenFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		open: open,
		now:  time.Now,
	}
	WithConfig(config.Global)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.lastCheck = s.now()
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.cfg.AlarmSpec, func() { s.tickLogged(ctx) }); err != nil {
		return fmt.Errorf("failed to add alarm check %q: %w", s.cfg.AlarmSpec, err)
	}
	if _, err := s.cron.AddFunc("@hourly", func() { s.pruneLogged(ctx) }); err != nil {
		return fmt.Errorf("failed to add prune job: %w", err)
	}

	s.cron.Start()
	logging.Info("scheduler started", "spec", s.cfg.AlarmSpec)
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logging.Info("scheduler stopped")
}

// TickResult reports what one tick did.
type TickResult struct {
	Delivered int
	CaughtUp  int
	Digest    bool
	Elapsed   time.Duration
}

// Tick runs one alarm check and digest check. Ticks never overlap; a tick
// that finds another one running returns an empty result.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return TickResult{}, nil
	}
	s.running = true
	now := s.now()
	elapsed := now.Sub(s.lastCheck)
	s.lastCheck = now
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	result := TickResult{Elapsed: elapsed}
	if elapsed > s.cfg.SleepThreshold {
		logging.Info("woke after long gap", "elapsed", elapsed.Round(time.Second).String())
	}

	sess, closeFn, err := s.open(ctx)
	if err != nil {
		return result, fmt.Errorf("open session: %w", err)
	}
	defer closeFn()

	result.Delivered, result.CaughtUp, err = s.alarms.Check(ctx, sess, now)
	if err != nil {
		return result, err
	}
	result.Digest, err = s.digest.Check(ctx, sess, now)
	return result, err
}

// Prune removes fired alarms older than the configured retention.
func (s *Scheduler) Prune(ctx context.Context) (int, error) {
	sess, closeFn, err := s.open(ctx)
	if err != nil {
		return 0, fmt.Errorf("open session: %w", err)
	}
	defer closeFn()
	return sess.Alarms.PruneFired(s.now().Add(-s.cfg.PruneAfter))
}

func (s *Scheduler) tickLogged(ctx context.Context) {
	ctx = logging.WithOperation(ctx, logging.SourceDaemon, "")
	log := logging.FromContext(ctx)

	result, err := s.Tick(ctx)
	if s.onTick != nil {
		s.onTick(result, err)
	}
	if err != nil {
		log.Warn("scheduler tick failed", logging.KeyError, err)
		return
	}
	if result.Delivered > 0 || result.CaughtUp > 0 || result.Digest {
		log.Info("scheduler tick",
			"delivered", result.Delivered,
			"caught_up", result.CaughtUp,
			"digest", result.Digest)
	}
}

func (s *Scheduler) pruneLogged(ctx context.Context) {
	ctx = logging.WithOperation(ctx, logging.SourceDaemon, "")
	n, err := s.Prune(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("alarm prune failed", logging.KeyError, err)
		return
	}
	if n > 0 {
		logging.FromContext(ctx).Info("pruned fired alarms", logging.KeyCount, n)
	}
}

// Entries returns all scheduled entries.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// NextRun returns the next scheduled run time for any job.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}
