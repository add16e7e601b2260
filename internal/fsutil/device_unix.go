//go:build unix

// Package fsutil holds small filesystem helpers shared by the Git Probe and
// the Scanner — currently just device-identifier lookup for mount-boundary
// detection (spec.md §4.1, §4.2).
package fsutil

import (
	"fmt"
	"os"
	"syscall"
)

// DeviceOf returns the filesystem device identifier for path.
func DeviceOf(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("unsupported stat_t for %s", path)
	}
	return uint64(stat.Dev), nil
}

// LDeviceOf is DeviceOf but using lstat, so it reports the symlink's own
// device rather than following it. No kissa package outside fsutil calls
// it; the scanner's mount-boundary check uses DeviceOf.
func LDeviceOf(path string) (uint64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("unsupported stat_t for %s", path)
	}
	return uint64(stat.Dev), nil
}
