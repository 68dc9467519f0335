package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchError_WrapsAndUnwraps(t *testing.T) {
	cause := errors.New("original error")
	err := New(ErrCodeFileNotFound, "file not found: test.txt", cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "[ERR_201_FILE_NOT_FOUND] file not found: test.txt", err.Error())
}

func TestSearchError_IsMatchesByCode(t *testing.T) {
	a := New(ErrCodeFileNotFound, "file A not found", nil)
	b := New(ErrCodeFileNotFound, "file B not found", nil)
	c := New(ErrCodeConfigNotFound, "config not found", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestSearchError_DetailAndSuggestionChaining(t *testing.T) {
	err := New(ErrCodeFileNotFound, "file not found", nil).
		WithDetail("path", "/foo/bar.go").
		WithSuggestion("check the file path")

	assert.Equal(t, "/foo/bar.go", err.Details["path"])
	assert.Equal(t, "check the file path", err.Suggestion)
}

func TestSearchError_DerivedClassification(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeFileNotFound, CategoryIO, SeverityError, false},
		{ErrCodeDiskFull, CategoryIO, SeverityFatal, false},
		{ErrCodeCorruptIndex, CategoryIO, SeverityFatal, false},
		{ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning, true},
		{ErrCodeNetworkUnavailable, CategoryNetwork, SeverityWarning, true},
		{ErrCodeModelDownload, CategoryNetwork, SeverityWarning, true},
		{ErrCodeInvalidInput, CategoryValidation, SeverityError, false},
		{ErrCodeNotIndexed, CategoryValidation, SeverityInfo, false},
		{ErrCodeEmptyTree, CategoryValidation, SeverityInfo, false},
		{ErrCodeInternal, CategoryInternal, SeverityError, false},
		{ErrCodeEmbeddingFailed, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestWrap_LiftsPlainError(t *testing.T) {
	cause := errors.New("something went wrong")
	err := Wrap(ErrCodeInternal, cause)

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInternal, err.Code)
	assert.Equal(t, "something went wrong", err.Message)
	assert.Equal(t, cause, err.Cause)

	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestConstructors_PickTheirCategory(t *testing.T) {
	assert.Equal(t, CategoryConfig, ConfigError("invalid yaml syntax", nil).Category)
	assert.Equal(t, CategoryIO, IOError("cannot read file", nil).Category)
	assert.Equal(t, CategoryNetwork, NetworkError("connection refused", nil).Category)
	assert.Equal(t, CategoryValidation, ValidationError("query cannot be empty", nil).Category)
	assert.Equal(t, CategoryInternal, VectorStoreError("insert failed", nil).Category)
	assert.True(t, NetworkError("connection refused", nil).Retryable)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeNetworkTimeout, "timeout", nil)))
	assert.False(t, IsRetryable(New(ErrCodeFileNotFound, "not found", nil)))
	assert.False(t, IsRetryable(errors.New("standard error")))
	assert.False(t, IsRetryable(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "index corrupt", nil)))
	assert.True(t, IsFatal(New(ErrCodeDiskFull, "no space left", nil)))
	assert.False(t, IsFatal(New(ErrCodeFileNotFound, "not found", nil)))
	assert.False(t, IsFatal(errors.New("standard error")))
}

func TestNotIndexedError_IsInfoNotFailure(t *testing.T) {
	err := NotIndexedError("tree has not been indexed")
	assert.Equal(t, ErrCodeNotIndexed, err.Code)
	assert.Equal(t, SeverityInfo, err.Severity)
	assert.False(t, err.Retryable)
}

func TestEmptyTreeError_IsInfoNotFailure(t *testing.T) {
	err := EmptyTreeError("scan yielded zero files")
	assert.Equal(t, ErrCodeEmptyTree, err.Code)
	assert.Equal(t, SeverityInfo, err.Severity)
}

func TestEmbeddingError_CarriesCause(t *testing.T) {
	cause := errors.New("provider exhausted retries")
	err := EmbeddingError("embedding failed", cause)
	assert.Equal(t, ErrCodeEmbeddingFailed, err.Code)
	assert.Equal(t, cause, err.Unwrap())
}
