// Package config provides centralized configuration for revise.
//
// Values come from, in increasing precedence: built-in defaults, the YAML
// file at $XDG_CONFIG_HOME/revise/config.yaml, a .env file in the working
// directory, and REVISE_* environment variables.
package config

import (
	"time"
)

// Config holds every runtime setting.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	RetryQueue RetryQueueConfig `mapstructure:"retry_queue"`
	Daemon     DaemonConfig     `mapstructure:"daemon"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	API        APIConfig        `mapstructure:"api"`
}

// DatabaseConfig locates the badger database.
type DatabaseConfig struct {
	// Path is the database directory. Empty means the XDG data directory.
	Path string `mapstructure:"path"`
	// LockTimeout bounds how long a command waits for the daemon to release
	// the database.
	LockTimeout time.Duration `mapstructure:"lock_timeout" validate:"gte=0"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// NotifyConfig controls reminders.
type NotifyConfig struct {
	// Enabled turns reminder scheduling on. When off, no alarms are created.
	Enabled bool `mapstructure:"enabled"`
	// Hour is the local hour at which a revision reminder fires on its day.
	Hour int `mapstructure:"hour" validate:"gte=0,lte=23"`
	// DigestEnabled sends a morning summary of due and overdue topics.
	DigestEnabled bool `mapstructure:"digest_enabled"`
	// DigestHour is the local hour of the morning summary.
	DigestHour int `mapstructure:"digest_hour" validate:"gte=0,lte=23"`
}

// HTTPConfig holds webhook client settings.
type HTTPConfig struct {
	Timeout     time.Duration   `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries  int             `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelays []time.Duration `mapstructure:"retry_delays" validate:"dive,gte=0"`
}

// RetryQueueConfig holds settings for redelivering failed reminders.
type RetryQueueConfig struct {
	CheckInterval   time.Duration   `mapstructure:"check_interval" validate:"gt=0"`
	BackoffSchedule []time.Duration `mapstructure:"backoff_schedule" validate:"min=1,dive,gt=0"`
	MaxAttempts     int             `mapstructure:"max_attempts" validate:"gte=1"`
}

// DaemonConfig holds daemon process settings.
type DaemonConfig struct {
	// StartupWait is how long `daemon start` waits before checking the child.
	StartupWait time.Duration `mapstructure:"startup_wait" validate:"gte=0"`
	// KillTimeout is the grace period before a forced stop.
	KillTimeout time.Duration `mapstructure:"kill_timeout" validate:"gt=0"`
}

// SchedulerConfig holds cron settings.
type SchedulerConfig struct {
	// AlarmSpec is the cron spec for the due-alarm check.
	AlarmSpec string `mapstructure:"alarm_spec" validate:"required"`
	// SleepThreshold is the gap between ticks that indicates the machine
	// was asleep. Alarms older than this are delivered as one catch-up
	// batch.
	SleepThreshold time.Duration `mapstructure:"sleep_threshold" validate:"gt=0"`
	// PruneAfter is how long fired alarms are kept.
	PruneAfter time.Duration `mapstructure:"prune_after" validate:"gt=0"`
}

// APIConfig holds the local HTTP API settings.
type APIConfig struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			LockTimeout: 3 * time.Second,
		},
		Log: LogConfig{
			Level: "warn",
		},
		Notify: NotifyConfig{
			Enabled:       true,
			Hour:          9,
			DigestEnabled: true,
			DigestHour:    8,
		},
		HTTP: HTTPConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelays: []time.Duration{
				0,
				5 * time.Second,
				30 * time.Second,
			},
		},
		RetryQueue: RetryQueueConfig{
			CheckInterval: 30 * time.Second,
			BackoffSchedule: []time.Duration{
				5 * time.Second,
				30 * time.Second,
				2 * time.Minute,
				5 * time.Minute,
				15 * time.Minute,
			},
			MaxAttempts: 5,
		},
		Daemon: DaemonConfig{
			StartupWait: 500 * time.Millisecond,
			KillTimeout: 5 * time.Second,
		},
		Scheduler: SchedulerConfig{
			AlarmSpec:      "@every 1m",
			SleepThreshold: time.Hour,
			PruneAfter:     30 * 24 * time.Hour,
		},
		API: APIConfig{
			Addr: "127.0.0.1:7420",
		},
	}
}

// Global holds the active configuration. It starts with defaults and is
// replaced by Load.
var Global = Default()
