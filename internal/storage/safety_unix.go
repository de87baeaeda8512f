//go:build !windows

package storage

import (
	"errors"
	"fmt"
	"syscall"
)

// GetDiskSpace reports usage of the file system holding path, or of its
// closest existing parent.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	path = nearestExisting(path)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil, fmt.Errorf("failed to get disk space: %w", err)
	}

	info := &DiskSpaceInfo{
		Path:       path,
		TotalBytes: stat.Blocks * uint64(stat.Bsize),
		FreeBytes:  stat.Bavail * uint64(stat.Bsize),
	}
	info.UsedBytes = info.TotalBytes - info.FreeBytes
	return info, nil
}

func isDiskFullError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ENOSPC
}
