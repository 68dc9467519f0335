package embed

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// retryDelays are the fixed backoff delays between attempts:
// three retries after the initial attempt, at 1s, 4s, 16s.
var retryDelays = []time.Duration{1 * time.Second, 4 * time.Second, 16 * time.Second}

// maxRetryAfter caps how long a provider's Retry-After header can push out
// a wait, so a misbehaving provider can't stall indexing indefinitely.
const maxRetryAfter = 60 * time.Second

// httpStatusError carries the HTTP status from a failed provider call so
// WithRetry can decide whether it's retryable.
type httpStatusError struct {
	status     int
	retryAfter time.Duration
	body       string
}

func newHTTPStatusError(status int, retryAfterHeader, body string) error {
	e := &httpStatusError{status: status, body: body}
	if secs, err := strconv.Atoi(retryAfterHeader); err == nil && secs > 0 {
		d := time.Duration(secs) * time.Second
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		e.retryAfter = d
	}
	return e
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.status, e.body)
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503:
		return true
	default:
		return false
	}
}

func halveBatchSize(batchSize int) int {
	if batchSize <= MinBatchSize {
		return MinBatchSize
	}
	return batchSize / 2
}

// WithRetry calls fn up to len(retryDelays)+1 times total. A plain network
// error (anything that isn't an *httpStatusError) is treated as transient
// and retried; an *httpStatusError only retries for status 429/500/502/503,
// and any other status returns immediately. A 429's Retry-After header
// overrides the fixed delay for that attempt, capped at maxRetryAfter.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		statusErr, isHTTPErr := err.(*httpStatusError)
		retryable := !isHTTPErr || isRetryableStatus(statusErr.status)

		if !retryable || attempt >= len(retryDelays) {
			return lastErr
		}

		delay := retryDelays[attempt]
		if isHTTPErr && statusErr.retryAfter > 0 {
			delay = statusErr.retryAfter
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
