package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/revise/internal/config"
	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/notify"
	"github.com/manav03panchal/revise/internal/storage"
)

var morning = time.Date(2024, 6, 15, 9, 0, 30, 0, time.Local)

func setupTestDB(t *testing.T) *storage.DB {
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type recordingSender struct {
	mu   sync.Mutex
	sent []*model.Notification
}

func (r *recordingSender) SendNotification(_ context.Context, n *model.Notification) []notify.DispatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return []notify.DispatchResult{{WebhookName: "test", Success: true}}
}

type fakeTopics struct {
	due     []*model.RevisionInstance
	overdue []*model.Topic
	err     error
}

func (f *fakeTopics) QueryDueOn(context.Context, time.Time) ([]*model.RevisionInstance, error) {
	return f.due, f.err
}

func (f *fakeTopics) QueryOverdue(context.Context) ([]*model.Topic, error) {
	return f.overdue, f.err
}

type testEnv struct {
	db     *storage.DB
	alarms *storage.AlarmRepo
	sender *recordingSender
	topics *fakeTopics
	opens  int
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	return &testEnv{
		db:     db,
		alarms: storage.NewAlarmRepo(db),
		sender: &recordingSender{},
		topics: &fakeTopics{},
	}
}

func (e *testEnv) open(context.Context) (*Session, func() error, error) {
	e.opens++
	return &Session{
		Alarms: e.alarms,
		Topics: e.topics,
		Sender: e.sender,
		Marks:  e.db,
	}, func() error { return nil }, nil
}

func (e *testEnv) session() *Session {
	s, _, _ := e.open(context.Background())
	return s
}

func (e *testEnv) addAlarm(t *testing.T, name string, fireAt time.Time) *model.Alarm {
	a := model.NewAlarm("topic-"+name, name, fireAt, fireAt)
	require.NoError(t, e.alarms.Create(a))
	return a
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Notify.DigestEnabled = false
	return cfg
}

// =============================================================================
// Alarm Tests
// =============================================================================

func TestAlarmCheckerDeliversDueAlarms(t *testing.T) {
	env := newTestEnv(t)
	due := env.addAlarm(t, "Graphs", morning.Add(-time.Minute))
	later := env.addAlarm(t, "Trees", morning.Add(time.Hour))

	delivered, caughtUp, err := NewAlarmChecker(time.Hour).Check(context.Background(), env.session(), morning)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Zero(t, caughtUp)

	require.Len(t, env.sender.sent, 1)
	n := env.sender.sent[0]
	assert.Equal(t, model.NotifyRevisionDue, n.Type)
	assert.Equal(t, "Time to revise: Graphs", n.Title)
	assert.Equal(t, "Graphs", n.Fields["Topic"])

	got, err := env.alarms.Get(due.ID)
	require.NoError(t, err)
	assert.True(t, got.Fired)
	got, err = env.alarms.Get(later.ID)
	require.NoError(t, err)
	assert.False(t, got.Fired)
}

func TestAlarmCheckerDoesNotRedeliver(t *testing.T) {
	env := newTestEnv(t)
	env.addAlarm(t, "Graphs", morning.Add(-time.Minute))
	checker := NewAlarmChecker(time.Hour)

	_, _, err := checker.Check(context.Background(), env.session(), morning)
	require.NoError(t, err)
	_, _, err = checker.Check(context.Background(), env.session(), morning.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, env.sender.sent, 1)
}

func TestAlarmCheckerGroupsStaleAlarms(t *testing.T) {
	env := newTestEnv(t)
	env.addAlarm(t, "Graphs", morning.AddDate(0, 0, -2))
	env.addAlarm(t, "Trees", morning.AddDate(0, 0, -1))
	env.addAlarm(t, "Graphs", morning.AddDate(0, 0, -1))
	env.addAlarm(t, "Heaps", morning.Add(-time.Minute))

	delivered, caughtUp, err := NewAlarmChecker(time.Hour).Check(context.Background(), env.session(), morning)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 3, caughtUp)

	require.Len(t, env.sender.sent, 2)
	catchUp := env.sender.sent[1]
	assert.Equal(t, model.NotifyOverdue, catchUp.Type)
	assert.Equal(t, "3 missed revision reminders", catchUp.Title)
	assert.Equal(t, "Graphs, Trees", catchUp.Fields["Topics"])

	pending, err := env.alarms.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCatchUpNotificationSingular(t *testing.T) {
	n := CatchUpNotification([]*model.Alarm{{TopicName: "Graphs"}})
	assert.Equal(t, "1 missed revision reminder", n.Title)
}

// =============================================================================
// Digest Tests
// =============================================================================

func TestDigestSendsOncePerDay(t *testing.T) {
	env := newTestEnv(t)
	env.topics.due = []*model.RevisionInstance{{TopicName: "Graphs"}, {TopicName: "Trees"}}
	env.topics.overdue = []*model.Topic{{Name: "Heaps"}}
	g := NewDigestGenerator(true, 8)

	sent, err := g.Check(context.Background(), env.session(), morning)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = g.Check(context.Background(), env.session(), morning.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, sent)

	require.Len(t, env.sender.sent, 1)
	n := env.sender.sent[0]
	assert.Equal(t, model.NotifyDigest, n.Type)
	assert.Equal(t, "2 due today, 1 overdue", n.Message)
	assert.Equal(t, "Graphs, Trees", n.Fields["Due today"])
	assert.Equal(t, "Heaps", n.Fields["Overdue"])
	assert.Equal(t, "3", n.Fields["Total"])

	sent, err = g.Check(context.Background(), env.session(), morning.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, sent, "next day sends again")
}

func TestDigestWaitsForHour(t *testing.T) {
	env := newTestEnv(t)
	env.topics.overdue = []*model.Topic{{Name: "Heaps"}}

	sent, err := NewDigestGenerator(true, 10).Check(context.Background(), env.session(), morning)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, env.sender.sent)
}

func TestDigestSkipsEmptyDays(t *testing.T) {
	env := newTestEnv(t)
	g := NewDigestGenerator(true, 8)

	sent, err := g.Check(context.Background(), env.session(), morning)
	require.NoError(t, err)
	assert.False(t, sent)

	// The day is marked, so work added later today does not trigger a digest.
	env.topics.overdue = []*model.Topic{{Name: "Heaps"}}
	sent, err = g.Check(context.Background(), env.session(), morning.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestDigestDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.topics.overdue = []*model.Topic{{Name: "Heaps"}}

	sent, err := NewDigestGenerator(false, 0).Check(context.Background(), env.session(), morning)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestDigestQueryError(t *testing.T) {
	env := newTestEnv(t)
	env.topics.err = errors.New("boom")

	_, err := NewDigestGenerator(true, 0).Check(context.Background(), env.session(), morning)
	assert.ErrorContains(t, err, "boom")
}

// =============================================================================
// Scheduler Tests
// =============================================================================

func TestNewScheduler(t *testing.T) {
	env := newTestEnv(t)
	s := NewScheduler(env.open)
	assert.NotNil(t, s.cron)
	assert.Equal(t, config.Global.Scheduler.AlarmSpec, s.cfg.AlarmSpec)
}

func TestSchedulerTick(t *testing.T) {
	env := newTestEnv(t)
	env.addAlarm(t, "Graphs", morning.Add(-time.Minute))

	now := morning
	s := NewScheduler(env.open, WithConfig(testConfig()), WithNow(func() time.Time { return now }))
	s.lastCheck = now.Add(-time.Minute)

	result, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.False(t, result.Digest)
	assert.Equal(t, time.Minute, result.Elapsed)
	assert.Equal(t, 1, env.opens)
}

func TestSchedulerTickOpenError(t *testing.T) {
	s := NewScheduler(func(context.Context) (*Session, func() error, error) {
		return nil, nil, apperrors.ErrLockHeld
	})

	_, err := s.Tick(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrLockHeld)
}

func TestSchedulerPrune(t *testing.T) {
	env := newTestEnv(t)
	old := env.addAlarm(t, "Graphs", morning.AddDate(0, -2, 0))
	require.NoError(t, env.alarms.MarkFired(old.ID, morning.AddDate(0, -2, 0)))
	recent := env.addAlarm(t, "Trees", morning.Add(-time.Hour))
	require.NoError(t, env.alarms.MarkFired(recent.ID, morning.Add(-time.Hour)))

	s := NewScheduler(env.open, WithConfig(testConfig()), WithNow(func() time.Time { return morning }))
	n, err := s.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := env.alarms.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, recent.ID, all[0].ID)
}

func TestSchedulerStartStop(t *testing.T) {
	env := newTestEnv(t)
	s := NewScheduler(env.open, WithConfig(testConfig()))

	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.Entries(), 2)
	assert.False(t, s.NextRun().IsZero())
	s.Stop()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	env := newTestEnv(t)
	cfg := testConfig()
	cfg.Scheduler.AlarmSpec = "not a spec"

	s := NewScheduler(env.open, WithConfig(cfg))
	assert.Error(t, s.Start(context.Background()))
}

func TestNextRunEmpty(t *testing.T) {
	s := NewScheduler(newTestEnv(t).open)
	assert.True(t, s.NextRun().IsZero())
}

func TestSchedulerTickHook(t *testing.T) {
	env := newTestEnv(t)
	env.addAlarm(t, "Graphs", morning.Add(-time.Minute))

	var got []TickResult
	s := NewScheduler(env.open,
		WithConfig(testConfig()),
		WithNow(func() time.Time { return morning }),
		WithTickHook(func(r TickResult, err error) {
			assert.NoError(t, err)
			got = append(got, r)
		}))

	s.tickLogged(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Delivered)
}
