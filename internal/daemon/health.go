package daemon

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus is the daemon's health as written to its state file.
type HealthStatus struct {
	Status               string        `json:"status"`
	UptimeSeconds        int64         `json:"uptime_seconds"`
	MemoryMB             float64       `json:"memory_mb"`
	PendingNotifications int           `json:"pending_notifications"`
	Goroutines           int           `json:"goroutines"`
	Checks               []CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthChecker runs named checks against the daemon.
type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	pending   func() int
	checks    map[string]func() error
}

// NewHealthChecker creates a health checker. pending reports queued
// redeliveries and may be nil.
func NewHealthChecker(pending func() int) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		pending:   pending,
		checks:    make(map[string]func() error),
	}
}

// AddCheck adds a named check.
func (h *HealthChecker) AddCheck(name string, check func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RemoveCheck removes a named check.
func (h *HealthChecker) RemoveCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
}

// Check runs every check and returns the combined status.
func (h *HealthChecker) Check() *HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := &HealthStatus{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		MemoryMB:      float64(mem.Alloc) / 1024 / 1024,
		Goroutines:    runtime.NumGoroutine(),
	}
	if h.pending != nil {
		status.PendingNotifications = h.pending()
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		result := CheckResult{Name: name, Healthy: true}
		if err := h.checks[name](); err != nil {
			result.Healthy = false
			result.Error = err.Error()
			status.Status = "unhealthy"
		}
		status.Checks = append(status.Checks, result)
	}
	h.mu.RUnlock()

	return status
}

// IsHealthy returns true if every check passes.
func (h *HealthChecker) IsHealthy() bool {
	return h.Check().Status == "healthy"
}

// Uptime returns how long the daemon has been running.
func (h *HealthChecker) Uptime() time.Duration {
	return time.Since(h.startTime)
}

// TickFreshness returns a check that fails when no tick has finished within
// maxAge, once the daemon has been up that long.
func TickFreshness(h *HealthChecker, lastTick func() time.Time, maxAge time.Duration) func() error {
	return func() error {
		if h.Uptime() < maxAge {
			return nil
		}
		last := lastTick()
		if last.IsZero() || time.Since(last) > maxAge {
			return fmt.Errorf("no scheduler tick in the last %s", maxAge)
		}
		return nil
	}
}
