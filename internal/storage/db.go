// Package storage provides the badger-backed database layer for revise.
package storage

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/logging"
)

const (
	// AppName is the application name used for data directories.
	AppName = "revise"
)

// DB wraps a Badger database connection.
type DB struct {
	db   *badger.DB
	path string
}

// Options configures the database connection.
type Options struct {
	// Path is the database directory path. Empty string uses in-memory mode.
	Path string
	// InMemory forces in-memory mode regardless of Path.
	InMemory bool
	// LockTimeout is how long OpenWithRetry waits for another process to
	// release the directory lock.
	LockTimeout time.Duration
}

// DefaultPath returns the default database path following XDG spec.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, AppName, "db")
}

// Open opens or creates a database at the given path.
func Open(opts Options) (*DB, error) {
	var badgerOpts badger.Options
	path := ""

	if opts.InMemory || opts.Path == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := EnsureDirectory(opts.Path); err != nil {
			return nil, err
		}
		path = opts.Path
		badgerOpts = badger.DefaultOptions(opts.Path)
	}

	badgerOpts = badgerOpts.WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		if isLockError(err) {
			return nil, errors.NewSystemErrorWithOp("open", "database is in use by another revise process", errors.ErrLockHeld)
		}
		if IsDatabaseCorrupted(err) {
			return nil, errors.NewSystemErrorWithOp("open", err.Error(), errors.ErrDatabaseCorrupted)
		}
		return nil, err
	}

	return &DB{db: db, path: path}, nil
}

// OpenWithRetry opens the database, retrying while another process (usually
// the reminder daemon during a tick) holds the directory lock.
func OpenWithRetry(ctx context.Context, opts Options) (*DB, error) {
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	deadline := time.Now().Add(timeout)
	delay := 50 * time.Millisecond

	for {
		db, err := Open(opts)
		if err == nil || !stderrors.Is(err, errors.ErrLockHeld) || time.Now().After(deadline) {
			return db, err
		}
		logging.FromContext(ctx).Debug("database locked, retrying", "delay", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 500*time.Millisecond {
			delay *= 2
		}
	}
}

func isLockError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "directory lock")
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database directory, empty for in-memory databases.
func (d *DB) Path() string {
	return d.path
}

// Badger returns the underlying Badger database for advanced operations.
func (d *DB) Badger() *badger.DB {
	return d.db
}
