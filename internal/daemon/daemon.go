// Package daemon runs revise in the background: it fires revision
// reminders on a cron schedule and redelivers failed webhooks, opening the
// database only while a tick runs.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/notify"
	"github.com/manav03panchal/revise/internal/runtime"
	"github.com/manav03panchal/revise/internal/scheduler"
	"github.com/manav03panchal/revise/internal/storage"
)

// Daemon manages the background daemon process.
type Daemon struct {
	paths   Paths
	pidFile *PIDFile
	opts    runtime.Options
	cfg     *config.Config
	metrics *Metrics

	mu        sync.Mutex
	health    *HealthChecker
	startedAt time.Time
}

// Status is the daemon status shown by `revise daemon status`.
type Status struct {
	Running   bool             `json:"running"`
	PID       int              `json:"pid,omitempty"`
	StartedAt *time.Time       `json:"started_at,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Health    *HealthStatus    `json:"health,omitempty"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
}

// New creates a daemon manager. opts configures the database opened on
// every tick.
func New(opts runtime.Options, paths Paths) *Daemon {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Global
	}
	return &Daemon{
		paths:   paths,
		pidFile: NewPIDFile(paths.PID()),
		opts:    opts,
		cfg:     cfg,
		metrics: NewMetrics(),
	}
}

// Paths returns the daemon file locations.
func (d *Daemon) Paths() Paths {
	return d.paths
}

// Metrics returns the daemon's metrics.
func (d *Daemon) Metrics() *Metrics {
	return d.metrics
}

// IsRunning returns true if the daemon is running.
func (d *Daemon) IsRunning() bool {
	return d.pidFile.IsRunning()
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() *Status {
	status := &Status{}

	pid := d.pidFile.RunningPID()
	if pid == 0 {
		return status
	}
	status.Running = true
	status.PID = pid

	if state, err := d.readState(); err == nil {
		startedAt := state.StartedAt
		status.StartedAt = &startedAt
		status.Uptime = formatUptime(time.Since(state.StartedAt))
		status.Health = state.Health
		status.Metrics = state.Metrics
	}
	return status
}

// Start runs the daemon in the foreground until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func (d *Daemon) Start(ctx context.Context) error {
	if d.IsRunning() {
		return ErrAlreadyRunning
	}
	if err := d.pidFile.Write(); err != nil {
		return err
	}
	defer d.pidFile.Remove()

	queue := notify.NewRetryQueue(notify.NewHTTPClientWith(d.cfg.HTTP))
	opts := d.opts
	opts.RetryQueue = queue

	d.mu.Lock()
	d.startedAt = time.Now()
	d.health = NewHealthChecker(queue.Pending)
	d.health.AddCheck("scheduler", TickFreshness(d.health, d.metrics.LastTick, 3*d.cfg.Scheduler.SleepThreshold))
	d.mu.Unlock()

	if err := d.saveState(); err != nil {
		return err
	}
	defer d.removeState()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	sched := scheduler.NewScheduler(runtime.Opener(opts),
		scheduler.WithConfig(d.cfg),
		scheduler.WithTickHook(d.recordTick))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	logging.Info("daemon started", "pid", os.Getpid(), "spec", d.cfg.Scheduler.AlarmSpec)

	// Catch up on anything that fell due while the daemon was down.
	result, err := sched.Tick(ctx)
	d.recordTick(result, err)
	if err != nil {
		logging.Warn("startup tick failed", logging.KeyError, err)
	}

	<-ctx.Done()
	logging.Info("daemon stopping", "pid", os.Getpid())
	return nil
}

func (d *Daemon) recordTick(result scheduler.TickResult, err error) {
	d.metrics.RecordTick(result, err)
	if err := d.saveState(); err != nil {
		logging.Warn("failed to write daemon state", logging.KeyError, err)
	}
}

// StartBackground re-executes the binary as a detached foreground daemon
// and waits for it to write its PID file.
func (d *Daemon) StartBackground(args ...string) (int, error) {
	if pid := d.pidFile.RunningPID(); pid > 0 {
		return pid, ErrAlreadyRunning
	}

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	logFile, err := OpenLog(d.paths.Log(), DefaultMaxLogSize)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	cmd := exec.Command(executable, append([]string{"daemon", "start", "--foreground"}, args...)...)
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		logging.Warn("failed to release daemon process", logging.KeyError, err)
	}

	time.Sleep(d.cfg.Daemon.StartupWait)

	if !d.pidFile.IsRunning() {
		if msg := lastLogError(d.paths.Log()); msg != "" {
			return 0, fmt.Errorf("daemon failed to start: %s", msg)
		}
		return 0, fmt.Errorf("daemon failed to start (check logs: %s)", d.paths.Log())
	}
	return cmd.Process.Pid, nil
}

// lastLogError returns the most recent error line among the last lines of
// the log.
func lastLogError(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	lines := strings.Split(string(data), "\n")
	start := max(len(lines)-10, 0)
	for i := len(lines) - 1; i >= start; i-- {
		line := strings.TrimSpace(lines[i])
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "failed to") {
			return line
		}
	}
	return ""
}

// Stop interrupts the running daemon and kills it if it has not exited
// within the configured timeout.
func (d *Daemon) Stop() error {
	pid := d.pidFile.RunningPID()
	if pid == 0 {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}

	// The daemon is not our child, so poll instead of Wait.
	deadline := time.Now().Add(d.cfg.Daemon.KillTimeout)
	for IsProcessRunning(pid) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if IsProcessRunning(pid) {
		_ = process.Kill()
	}

	d.pidFile.Remove()
	d.removeState()
	return nil
}

// State is the daemon state persisted next to the PID file.
type State struct {
	StartedAt time.Time        `json:"started_at"`
	Health    *HealthStatus    `json:"health,omitempty"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
}

func (d *Daemon) saveState() error {
	d.mu.Lock()
	state := &State{StartedAt: d.startedAt}
	if d.health != nil {
		state.Health = d.health.Check()
	}
	d.mu.Unlock()

	snap := d.metrics.Snapshot()
	state.Metrics = &snap

	if err := os.MkdirAll(filepath.Dir(d.paths.State()), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return storage.SafeWrite(d.paths.State(), data, 0o644)
}

func (d *Daemon) readState() (*State, error) {
	data, err := os.ReadFile(d.paths.State())
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (d *Daemon) removeState() {
	if err := os.Remove(d.paths.State()); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove daemon state file", logging.KeyError, err, "path", d.paths.State())
	}
}

// formatUptime formats a duration as uptime.
func formatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if minutes := int(d.Minutes()) % 60; minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours() / 24)
	if hours := int(d.Hours()) % 24; hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
