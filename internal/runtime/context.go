// Package runtime wires the database, scheduling engine and reminder stack
// together for one process.
package runtime

import (
	"context"
	"time"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/notify"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/scheduler"
	"github.com/manav03panchal/revise/internal/storage"
)

// MemoryPath selects an in-memory database when used as the database path.
const MemoryPath = ":memory:"

// Context holds the application runtime context.
type Context struct {
	DB        *storage.DB
	Store     *storage.Store
	Engine    *engine.Engine
	Formatter *output.Formatter
	Config    *config.Config

	// Repositories
	AlarmRepo   *storage.AlarmRepo
	WebhookRepo *storage.WebhookRepo

	// Reminders
	Coordinator *notify.Coordinator
	Dispatcher  *notify.Dispatcher

	Debug bool
}

// Options configures the runtime context.
type Options struct {
	DBPath    string
	InMemory  bool
	Format    output.Format
	ColorMode output.ColorMode
	Debug     bool

	// Config defaults to config.Global.
	Config *config.Config
	// Now overrides the clock of the engine and coordinator.
	Now func() time.Time
	// RetryQueue, when set, receives failed webhook deliveries.
	RetryQueue *notify.RetryQueue
}

// DefaultOptions returns default runtime options.
func DefaultOptions() Options {
	return Options{
		DBPath:    storage.DefaultPath(),
		Format:    output.FormatCLI,
		ColorMode: output.ColorAuto,
	}
}

func (o Options) config() *config.Config {
	if o.Config != nil {
		return o.Config
	}
	return config.Global
}

func (o Options) storageOptions() storage.Options {
	cfg := o.config()
	path := o.DBPath
	if cfg.Database.Path != "" {
		path = cfg.Database.Path
	}
	return storage.Options{
		Path:        path,
		InMemory:    o.InMemory || path == MemoryPath,
		LockTimeout: cfg.Database.LockTimeout,
	}
}

// DatabasePath returns the directory the database is opened from.
func (o Options) DatabasePath() string {
	return o.storageOptions().Path
}

// New opens the database, waiting briefly if the daemon holds it, and
// builds the engine. Default strategies are seeded on first use.
func New(ctx context.Context, opts Options) (*Context, error) {
	db, err := storage.OpenWithRetry(ctx, opts.storageOptions())
	if err != nil {
		return nil, err
	}
	c, err := NewWithDB(ctx, db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewWithDB builds a context over an already open database.
func NewWithDB(ctx context.Context, db *storage.DB, opts Options) (*Context, error) {
	cfg := opts.config()

	alarmRepo := storage.NewAlarmRepo(db)
	webhookRepo := storage.NewWebhookRepo(db)

	coordOpts := []notify.CoordinatorOption{
		notify.WithFireHour(cfg.Notify.Hour),
		notify.WithEnabled(cfg.Notify.Enabled),
	}
	engineOpts := []engine.Option{}
	if opts.Now != nil {
		coordOpts = append(coordOpts, notify.WithNow(opts.Now))
		engineOpts = append(engineOpts, engine.WithClock(engine.ClockFunc(opts.Now)))
	}
	coordinator := notify.NewCoordinator(alarmRepo, coordOpts...)
	engineOpts = append(engineOpts, engine.WithNotifier(coordinator))

	store := storage.NewStore(db)
	eng := engine.New(store, engineOpts...)
	if _, err := eng.SeedDefaults(ctx); err != nil {
		return nil, err
	}

	httpClient := notify.NewHTTPClientWith(cfg.HTTP)
	dispatcher := notify.NewDispatcher(webhookRepo).
		WithHTTPClient(httpClient).
		WithTelegram(notify.NewTelegramSender(httpClient.Client()))
	if opts.RetryQueue != nil {
		dispatcher.WithRetryQueue(opts.RetryQueue)
	}

	formatter := output.NewFormatter()
	if opts.Format != "" {
		formatter.Format = opts.Format
	}
	if opts.ColorMode != "" {
		formatter.ColorMode = opts.ColorMode
	}

	return &Context{
		DB:          db,
		Store:       store,
		Engine:      eng,
		Formatter:   formatter,
		Config:      cfg,
		AlarmRepo:   alarmRepo,
		WebhookRepo: webhookRepo,
		Coordinator: coordinator,
		Dispatcher:  dispatcher,
		Debug:       opts.Debug,
	}, nil
}

// Close closes the runtime context.
func (c *Context) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Session exposes this context as a scheduler session.
func (c *Context) Session() *scheduler.Session {
	return &scheduler.Session{
		Alarms: c.AlarmRepo,
		Topics: c.Engine,
		Sender: c.Dispatcher,
		Marks:  c.DB,
	}
}

// SharedOpener returns a scheduler opener that reuses this context. Used
// when the scheduler runs inside a process that already holds the
// database.
func (c *Context) SharedOpener() scheduler.OpenFunc {
	return func(context.Context) (*scheduler.Session, func() error, error) {
		return c.Session(), func() error { return nil }, nil
	}
}

// Opener returns a scheduler opener that opens the database for each tick
// and closes it afterwards, leaving it free for CLI commands in between.
func Opener(opts Options) scheduler.OpenFunc {
	return func(ctx context.Context) (*scheduler.Session, func() error, error) {
		c, err := New(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
		return c.Session(), c.Close, nil
	}
}

// CLIFormatter returns a CLI formatter.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	return output.NewCLIFormatter(c.Formatter)
}

// JSONFormatter returns a JSON formatter.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	return output.NewJSONFormatter(c.Formatter)
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}

// Today returns the engine's current day.
func (c *Context) Today() time.Time {
	return c.Engine.Today()
}
