// Package logging configures the slog logger shared by the CLI, the
// reminder daemon and the HTTP API.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	loggerMu      sync.RWMutex

	// Debug is set when the logger runs at debug level.
	Debug bool
)

func init() {
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       slog.LevelWarn,
		ReplaceAttr: maskAttr,
	}))
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level // Minimum log level
	JSON      bool       // Use JSON output format
	Output    io.Writer  // Output destination (default: stderr)
	AddSource bool       // Include source file and line number
}

// DefaultConfig matches the logger installed at startup.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelWarn,
		Output: os.Stderr,
	}
}

// DebugConfig is used for --debug.
func DebugConfig() Config {
	return Config{
		Level:     slog.LevelDebug,
		JSON:      true,
		Output:    os.Stderr,
		AddSource: true,
	}
}

// Init replaces the global logger. Webhook URLs and tokens are masked
// whatever the handler.
func Init(cfg Config) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: maskAttr,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
	Debug = cfg.Level <= slog.LevelDebug
}

// InitDebug switches to JSON debug logging with source locations.
func InitDebug() {
	Init(DebugConfig())
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// ParseLevel maps a config level name to a slog level. Unknown names map
// to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func DebugLog(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Attribute keys shared across packages.
const (
	KeySource     = "origin"
	KeyOperation  = "op"
	KeyError      = "error"
	KeyTopicID    = "topic_id"
	KeyStrategyID = "strategy_id"
	KeyRevisionID = "revision_id"
	KeyAlarmID    = "alarm_id"
	KeyDay        = "day"
	KeyWebhook    = "webhook"
	KeyURL        = "url"
	KeyStatus     = "status"
	KeyCount      = "count"
)
