package preflight

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MinMemoryBytes is the minimum recommended available memory (1GB): enough
// headroom for the embedding batches, the in-process LRU tier, and the
// tree-sitter parse trees of the split worker pool.
const MinMemoryBytes = 1 * 1024 * 1024 * 1024

// CheckMemory checks available system memory. Where the platform exposes
// no readable figure the check degrades to a warning rather than blocking
// indexing on a guess.
func (c *Checker) CheckMemory() CheckResult {
	result := CheckResult{
		Name:     "memory",
		Required: true,
	}

	available, ok := availableMemoryBytes()
	if !ok {
		result.Status = StatusWarn
		result.Required = false
		result.Message = "available memory unknown on this platform"
		return result
	}

	if available < MinMemoryBytes {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s available (minimum: %s)", formatBytes(available), formatBytes(MinMemoryBytes))
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s available (minimum: %s)", formatBytes(available), formatBytes(MinMemoryBytes))
	return result
}

// availableMemoryBytes reads MemAvailable from /proc/meminfo. Reported
// false on platforms without procfs.
func availableMemoryBytes() (uint64, bool) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb * 1024, true
	}
	return 0, false
}
