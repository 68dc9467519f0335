package preflight

import (
	"fmt"
	"syscall"
)

// Descriptor budget for the fd-limit check. The process baseline covers
// the log file, the SQLite telemetry handle, the gRPC channel to the
// vector store, and stdio; each split worker then holds an open source
// file plus its share of HTTP connections to the embedding provider,
// and rotated log generations and disk-cache shards churn a few more.
const (
	baselineDescriptors  = 64
	perWorkerDescriptors = 16
)

// requiredDescriptors scales the minimum with the indexer's configured
// worker-pool fan-out.
func requiredDescriptors(concurrency int) uint64 {
	return uint64(baselineDescriptors + concurrency*perWorkerDescriptors)
}

// CheckFileDescriptors verifies the soft fd limit leaves room for the
// split/embed/insert fan-out at the configured indexing concurrency.
func (c *Checker) CheckFileDescriptors(concurrency int) CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: true,
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	required := requiredDescriptors(concurrency)
	result.Message = fmt.Sprintf("%d (minimum: %d for %d split worker(s))", rLimit.Cur, required, concurrency)

	if rLimit.Cur < required {
		result.Status = StatusFail
		result.Details = "Run 'ulimit -n 10240' to raise the limit, or lower indexing.concurrency"
		return result
	}

	result.Status = StatusPass
	return result
}
