package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manav03panchal/revise/internal/errors"
)

const (
	// MinFreeSpace is the free space below which the database refuses to open (10MB).
	MinFreeSpace = 10 * 1024 * 1024
	// MinFreeSpaceWarning is the free space below which doctor warns (50MB).
	MinFreeSpaceWarning = 50 * 1024 * 1024
)

// DiskSpaceInfo describes the file system holding a path.
type DiskSpaceInfo struct {
	Path       string
	TotalBytes uint64
	FreeBytes  uint64
	UsedBytes  uint64
}

// FreePercent returns the percentage of free space.
func (d *DiskSpaceInfo) FreePercent() float64 {
	if d.TotalBytes == 0 {
		return 0
	}
	return float64(d.FreeBytes) / float64(d.TotalBytes) * 100
}

// nearestExisting walks up from path until it finds something that exists.
func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// CheckDiskSpace fails with ErrDiskFull when the file system holding path
// has less than MinFreeSpace available. A failed check is not an error.
func CheckDiskSpace(path string) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return nil
	}
	if info.FreeBytes < MinFreeSpace {
		return errors.NewSystemError(
			fmt.Sprintf("insufficient disk space: %d MB free, need at least %d MB",
				info.FreeBytes/(1024*1024), MinFreeSpace/(1024*1024)),
			errors.ErrDiskFull,
		)
	}
	return nil
}

// CheckDiskSpaceWarning returns a warning when space is low, or "".
func CheckDiskSpaceWarning(path string) string {
	info, err := GetDiskSpace(path)
	if err != nil {
		return ""
	}
	if info.FreeBytes < MinFreeSpaceWarning {
		return fmt.Sprintf("low disk space (%d MB free)", info.FreeBytes/(1024*1024))
	}
	return ""
}

// SafeWrite writes data to path through a temporary file in the same
// directory, so readers never see a partial file.
func SafeWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := CheckDiskSpace(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+AppName+"-*.tmp")
	if err != nil {
		return diskError("create temp file", err)
	}
	tmpPath := tmp.Name()
	done := false
	defer func() {
		if !done {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return diskError("write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return diskError("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	done = true
	return nil
}

func diskError(op string, err error) error {
	if isDiskFullError(err) {
		return errors.NewSystemErrorWithOp(op, "disk full", errors.ErrDiskFull)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// EnsureDirectory creates path with owner-only permissions.
func EnsureDirectory(path string) error {
	if err := CheckDiskSpace(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return diskError("mkdir", err)
	}
	return nil
}
