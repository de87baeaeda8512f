package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMaxLogSize is the size at which the daemon log is rotated.
const DefaultMaxLogSize = 5 << 20

// OpenLog opens the daemon log for appending. A log larger than maxSize is
// moved aside to "<path>.old" first, replacing any earlier backup.
func OpenLog(path string, maxSize int64) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := rotateLog(path, maxSize); err != nil {
		return nil, fmt.Errorf("failed to rotate log: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

func rotateLog(path string, maxSize int64) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if maxSize <= 0 || info.Size() < maxSize {
		return nil
	}
	backup := path + ".old"
	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(path, backup)
}
