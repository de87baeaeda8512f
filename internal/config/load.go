package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName names the config directory.
	AppName = "revise"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "REVISE"
)

// LoadOptions adjusts where configuration is read from.
type LoadOptions struct {
	// File overrides the config file path.
	File string
	// EnvFile is loaded into the environment first. Missing files are ignored.
	EnvFile string
	// SkipFile disables reading any config file.
	SkipFile bool
}

// DefaultFile returns the default config file path.
func DefaultFile() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load reads configuration, validates it and installs it as Global.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if !opts.SkipFile {
		file := opts.File
		if file == "" {
			file = DefaultFile()
		}
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	Global = cfg
	return cfg, nil
}

// Validate checks field constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Setting is one resolved configuration key.
type Setting struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Settings lists every key of cfg, sorted.
func Settings(cfg *Config) []Setting {
	v := viper.New()
	setDefaults(v, cfg)

	keys := v.AllKeys()
	sort.Strings(keys)
	out := make([]Setting, 0, len(keys))
	for _, k := range keys {
		out = append(out, Setting{Key: k, Value: v.Get(k)})
	}
	return out
}

// setDefaults registers every key so environment overrides reach nested
// fields during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.lock_timeout", d.Database.LockTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)

	v.SetDefault("notify.enabled", d.Notify.Enabled)
	v.SetDefault("notify.hour", d.Notify.Hour)
	v.SetDefault("notify.digest_enabled", d.Notify.DigestEnabled)
	v.SetDefault("notify.digest_hour", d.Notify.DigestHour)

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.max_retries", d.HTTP.MaxRetries)
	v.SetDefault("http.retry_delays", d.HTTP.RetryDelays)

	v.SetDefault("retry_queue.check_interval", d.RetryQueue.CheckInterval)
	v.SetDefault("retry_queue.backoff_schedule", d.RetryQueue.BackoffSchedule)
	v.SetDefault("retry_queue.max_attempts", d.RetryQueue.MaxAttempts)

	v.SetDefault("daemon.startup_wait", d.Daemon.StartupWait)
	v.SetDefault("daemon.kill_timeout", d.Daemon.KillTimeout)

	v.SetDefault("scheduler.alarm_spec", d.Scheduler.AlarmSpec)
	v.SetDefault("scheduler.sleep_threshold", d.Scheduler.SleepThreshold)
	v.SetDefault("scheduler.prune_after", d.Scheduler.PruneAfter)

	v.SetDefault("api.addr", d.API.Addr)
}
