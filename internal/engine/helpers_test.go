package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/storage"
	"github.com/manav03panchal/revise/internal/timetable"
)

// baseNow is mid-morning so that day arithmetic has to normalize.
var baseNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.Local)

func day(offset int) time.Time {
	return timetable.AddDays(baseNow, offset)
}

func dayKey(offset int) string {
	return timetable.FormatDay(day(offset))
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) SetDay(offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = baseNow.AddDate(0, 0, offset)
}

// fakeNotifier records reminder requests.
type fakeNotifier struct {
	mu           sync.Mutex
	seq          int
	active       map[string]string // handle -> topic id
	cancelled    []string
	scheduleErr  error
	cancelErr    error
	scheduledFor []string // days requested, YYYY-MM-DD
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{active: make(map[string]string)}
}

func (n *fakeNotifier) Schedule(_ context.Context, _ string, day time.Time, topicID string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.scheduleErr != nil {
		return "", n.scheduleErr
	}
	n.seq++
	h := fmt.Sprintf("alarm-%d", n.seq)
	n.active[h] = topicID
	n.scheduledFor = append(n.scheduledFor, timetable.FormatDay(day))
	return h, nil
}

func (n *fakeNotifier) Cancel(_ context.Context, handle string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, handle)
	if n.cancelErr != nil {
		return n.cancelErr
	}
	delete(n.active, handle)
	return nil
}

func (n *fakeNotifier) activeFor(topicID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for h, id := range n.active {
		if id == topicID {
			out = append(out, h)
		}
	}
	return out
}

func (n *fakeNotifier) activeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.active)
}

// failingStore commits nothing: every update runs against the real store
// and is then rolled back with errCommit.
type failingStore struct {
	engine.Store
}

var errCommit = errors.New("commit refused")

func (s failingStore) Update(fn func(engine.Tx) error) error {
	return s.Store.Update(func(tx engine.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return errCommit
	})
}

type testEnv struct {
	store    *storage.Store
	engine   *engine.Engine
	notifier *fakeNotifier
	clock    *testClock
}

func setupTestEngine(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		store:    storage.NewStore(db),
		notifier: newFakeNotifier(),
		clock:    &testClock{now: baseNow},
	}
	env.engine = engine.New(env.store,
		engine.WithNotifier(env.notifier),
		engine.WithClock(env.clock))
	return env
}

func (env *testEnv) strategy(t *testing.T, name string, intervals ...int) *model.Strategy {
	t.Helper()
	s := model.NewStrategy(name, intervals)
	require.NoError(t, env.store.Update(func(tx engine.Tx) error {
		return tx.PutStrategy(s)
	}))
	return s
}

func (env *testEnv) openInstances(t *testing.T, topicID string) []*model.RevisionInstance {
	t.Helper()
	all, err := env.engine.Instances(context.Background(), topicID)
	require.NoError(t, err)
	var open []*model.RevisionInstance
	for _, r := range all {
		if r.IsOpen() {
			open = append(open, r)
		}
	}
	return open
}
