package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser(t *testing.T) {
	err := New(ErrCodeNetworkUnavailable, "embedding service is not reachable", nil).
		WithSuggestion("start the embedding server or check embedding.baseUrl")

	out := FormatForUser(err, false)
	assert.Contains(t, out, "embedding service is not reachable")
	assert.Contains(t, out, "Suggestion:")
	assert.Contains(t, out, "[ERR_302_NETWORK_UNAVAILABLE]")

	assert.Contains(t, FormatForUser(errors.New("plain failure"), false), "plain failure")
	assert.Empty(t, FormatForUser(nil, false))
}

func TestFormatForUser_DebugIncludesDetailsAndCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := New(ErrCodeVectorStoreFailed, "insert failed", cause).
		WithDetail("collection", "eidetic_code_demo")

	out := FormatForUser(err, true)
	assert.Contains(t, out, "collection: eidetic_code_demo")
	assert.Contains(t, out, "dial tcp: refused")

	plain := FormatForUser(err, false)
	assert.NotContains(t, plain, "dial tcp")
}

func TestFormatForCLI(t *testing.T) {
	err := New(ErrCodeCorruptIndex, "index is corrupted", nil).
		WithSuggestion("run 'eideticmcp index --force' to rebuild")

	out := FormatForCLI(err)
	assert.Contains(t, out, "index is corrupted")
	assert.Contains(t, out, "Hint:")
	assert.Contains(t, out, "ERR_205_CORRUPT_INDEX")

	// Plain errors get wrapped as internal so the code line still prints.
	assert.Contains(t, FormatForCLI(errors.New("boom")), ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.LessOrEqual(t, len(lines), 5)
}

func TestFormatJSON(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(ErrCodeFileNotFound, "file not found", cause).
		WithDetail("path", "/foo/bar.txt").
		WithSuggestion("check the file path")

	data, marshalErr := FormatJSON(err)
	require.NoError(t, marshalErr)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, ErrCodeFileNotFound, out["code"])
	assert.Equal(t, "file not found", out["message"])
	assert.Equal(t, string(CategoryIO), out["category"])
	assert.Equal(t, "underlying error", out["cause"])
	assert.Equal(t, "check the file path", out["suggestion"])

	details, ok := out["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/foo/bar.txt", details["path"])
}

func TestFormatJSON_NilAndPlainErrors(t *testing.T) {
	data, err := FormatJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))

	data, err = FormatJSON(errors.New("generic error"))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, ErrCodeInternal, out["code"])
	assert.Equal(t, "generic error", out["message"])
}

func TestFormatForLog(t *testing.T) {
	cause := errors.New("timeout")
	err := New(ErrCodeNetworkTimeout, "request timed out", cause).
		WithDetail("endpoint", "/embed")

	attrs := FormatForLog(err)
	assert.Equal(t, ErrCodeNetworkTimeout, attrs["error_code"])
	assert.Equal(t, "timeout", attrs["cause"])
	assert.Equal(t, "/embed", attrs["detail_endpoint"])
	assert.Equal(t, true, attrs["retryable"])

	assert.Equal(t, map[string]any{"error": "plain"}, FormatForLog(errors.New("plain")))
	assert.Nil(t, FormatForLog(nil))
}
