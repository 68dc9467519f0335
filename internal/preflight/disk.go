package preflight

import (
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the baseline minimum free disk space (100MB),
// covering the SQLite telemetry database and one tree's worth
// of snapshot JSON before any project is registered.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// PerTreeReserveBytes is added to the minimum for every already-registered
// project tree (internal/registry), as a rough reserve for that tree's
// snapshot file and its embedding disk-cache tier (internal/embed) filling
// back up on the next reindex.
const PerTreeReserveBytes = 20 * 1024 * 1024

// CheckDiskSpace checks if there's sufficient disk space at the data
// directory, scaling the requirement with how many project trees are
// already registered.
func (c *Checker) CheckDiskSpace(path string, registeredTrees int) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	// Calculate available space in bytes
	availableBytes := stat.Bavail * uint64(stat.Bsize)
	required := MinDiskSpaceBytes + uint64(registeredTrees)*PerTreeReserveBytes

	if availableBytes < required {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s free (minimum: %s for %d registered tree(s))", formatBytes(availableBytes), formatBytes(required), registeredTrees)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s free (minimum: %s for %d registered tree(s))", formatBytes(availableBytes), formatBytes(required), registeredTrees)
	return result
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
