package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return newHTTPStatusError(503, "", "unavailable")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_NonRetryableStatusStopsImmediately(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return newHTTPStatusError(400, "", "bad request")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return newHTTPStatusError(500, "", "boom")
	})
	assert.Error(t, err)
	assert.Equal(t, len(retryDelays)+1, attempts)
}

func TestWithRetry_PlainErrorsAreRetried(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestHalveBatchSize_FloorsAtMin(t *testing.T) {
	assert.Equal(t, 50, halveBatchSize(100))
	assert.Equal(t, MinBatchSize, halveBatchSize(MinBatchSize))
}
