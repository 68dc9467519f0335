package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	dim   int
}

func (f *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (f *countingEmbedder) Initialize(_ context.Context) error { return nil }

func (f *countingEmbedder) Dimensions() int                  { return f.dim }
func (f *countingEmbedder) ModelName() string                { return "fake-model" }
func (f *countingEmbedder) Available(_ context.Context) bool { return true }
func (f *countingEmbedder) Close() error                     { return nil }

func TestCachedEmbedder_Idempotent(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	cached := NewCachedEmbedder(inner, 10, "")
	require.NoError(t, cached.Initialize(context.Background()))

	_, err := cached.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_EmptyInputShortCircuits(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	cached := NewCachedEmbedder(inner, 10, "")
	require.NoError(t, cached.Initialize(context.Background()))

	vec, err := cached.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 4), vec)
	assert.Equal(t, 0, inner.calls)
}

func TestCachedEmbedder_DiskTierSurvivesEviction(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	dir := t.TempDir()
	cached := NewCachedEmbedder(inner, 10, dir)
	require.NoError(t, cached.Initialize(context.Background()))

	_, err := cached.Embed(context.Background(), "persisted text")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	// Force an LRU eviction by replacing the in-memory tier but keeping
	// the same disk root.
	cached2 := NewCachedEmbedder(inner, 10, dir)
	require.NoError(t, cached2.Initialize(context.Background()))
	_, err = cached2.Embed(context.Background(), "persisted text")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "disk tier should have served the second lookup")
}

func TestCachedEmbedder_EmbedBatchDedupesAcrossTiers(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	cached := NewCachedEmbedder(inner, 10, "")
	require.NoError(t, cached.Initialize(context.Background()))

	_, err := cached.EmbedBatch(context.Background(), []string{"a", "b", "a"})
	require.NoError(t, err)
	// "a" appears twice but only one provider call is made for the
	// distinct miss set {"a", "b"}.
	assert.Equal(t, 1, inner.calls)
}

func TestEstimateTokens_UnknownModelIsFree(t *testing.T) {
	est := EstimateTokens([]string{"abcd"}, "some-unknown-model")
	assert.Equal(t, 1, est.EstTokens)
	assert.Equal(t, 0.0, est.EstCostUSD)
}

func TestEstimateTokens_KnownModelHasCost(t *testing.T) {
	est := EstimateTokens([]string{"abcdefgh"}, "text-embedding-3-small")
	assert.Equal(t, 2, est.EstTokens)
	assert.Greater(t, est.EstCostUSD, 0.0)
}
