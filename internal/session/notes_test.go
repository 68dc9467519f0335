package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetic-labs/eideticmcp/internal/embed"
	"github.com/eidetic-labs/eideticmcp/internal/store"
)

type zeroEmbedder struct{ dim int }

func (z *zeroEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, z.dim)
	if len(text) > 0 {
		v[0] = 1
	}
	return v, nil
}
func (z *zeroEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = z.Embed(ctx, t)
	}
	return out, nil
}
func (z *zeroEmbedder) Initialize(_ context.Context) error { return nil }

func (z *zeroEmbedder) Dimensions() int                  { return z.dim }
func (z *zeroEmbedder) ModelName() string                { return "fake" }
func (z *zeroEmbedder) Available(_ context.Context) bool { return true }
func (z *zeroEmbedder) Close() error                     { return nil }

var _ embed.Embedder = (*zeroEmbedder)(nil)

func TestNoteStore_AddAndSearch(t *testing.T) {
	ns := NewNoteStore(store.NewMemoryStore(), &zeroEmbedder{dim: 4})
	ctx := context.Background()

	note, err := ns.Add(ctx, "my-session", "decision", "use qdrant for storage")
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)

	results, err := ns.Search(ctx, "my-session", "qdrant", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "decision", results[0].Title)
}

func TestNoteStore_DeleteRemovesSessionNotes(t *testing.T) {
	ns := NewNoteStore(store.NewMemoryStore(), &zeroEmbedder{dim: 4})
	ctx := context.Background()

	_, err := ns.Add(ctx, "s1", "t", "content")
	require.NoError(t, err)
	require.NoError(t, ns.Delete(ctx, "s1"))

	results, err := ns.Search(ctx, "s1", "content", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
