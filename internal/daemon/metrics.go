package daemon

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/scheduler"
)

// Metrics tracks daemon activity.
type Metrics struct {
	ticks           atomic.Int64
	alarmsDelivered atomic.Int64
	alarmsCaughtUp  atomic.Int64
	digestsSent     atomic.Int64
	errorsTotal     atomic.Int64

	mu               sync.RWMutex
	lastTick         time.Time
	lastError        string
	lastErrorAt      time.Time
	errorsByCategory map[string]int64
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{errorsByCategory: make(map[string]int64)}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	TicksTotal           int64            `json:"ticks_total"`
	AlarmsDeliveredTotal int64            `json:"alarms_delivered_total"`
	AlarmsCaughtUpTotal  int64            `json:"alarms_caught_up_total"`
	DigestsSentTotal     int64            `json:"digests_sent_total"`
	ErrorsTotal          int64            `json:"errors_total"`
	LastTick             *time.Time       `json:"last_tick,omitempty"`
	LastError            string           `json:"last_error,omitempty"`
	LastErrorAt          *time.Time       `json:"last_error_at,omitempty"`
	ErrorsByCategory     map[string]int64 `json:"errors_by_category,omitempty"`
}

// RecordTick records the outcome of a scheduler tick.
func (m *Metrics) RecordTick(r scheduler.TickResult, err error) {
	m.ticks.Add(1)
	m.alarmsDelivered.Add(int64(r.Delivered))
	m.alarmsCaughtUp.Add(int64(r.CaughtUp))
	if r.Digest {
		m.digestsSent.Add(1)
	}

	m.mu.Lock()
	m.lastTick = time.Now()
	m.mu.Unlock()

	if err != nil {
		m.RecordError(err)
	}
}

// RecordError records an error under its category.
func (m *Metrics) RecordError(err error) {
	m.errorsTotal.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err.Error()
	m.lastErrorAt = time.Now()
	m.errorsByCategory[errors.Classify(err).String()]++
}

// LastTick returns when the last tick finished.
func (m *Metrics) LastTick() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastTick
}

// Snapshot returns a copy of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		TicksTotal:           m.ticks.Load(),
		AlarmsDeliveredTotal: m.alarmsDelivered.Load(),
		AlarmsCaughtUpTotal:  m.alarmsCaughtUp.Load(),
		DigestsSentTotal:     m.digestsSent.Load(),
		ErrorsTotal:          m.errorsTotal.Load(),
		LastError:            m.lastError,
	}
	if !m.lastTick.IsZero() {
		t := m.lastTick
		snap.LastTick = &t
	}
	if !m.lastErrorAt.IsZero() {
		t := m.lastErrorAt
		snap.LastErrorAt = &t
	}
	if len(m.errorsByCategory) > 0 {
		snap.ErrorsByCategory = make(map[string]int64, len(m.errorsByCategory))
		for k, v := range m.errorsByCategory {
			snap.ErrorsByCategory[k] = v
		}
	}
	return snap
}
