package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetic-labs/eideticmcp/internal/chunk"
	"github.com/eidetic-labs/eideticmcp/internal/registry"
	"github.com/eidetic-labs/eideticmcp/internal/store"
)

type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dim)
		v[0] = float32(len(texts[i]) + 1)
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Initialize(_ context.Context) error { return nil }

func (f *fakeEmbedder) Dimensions() int                  { return f.dim }
func (f *fakeEmbedder) ModelName() string                { return "fake-model" }
func (f *fakeEmbedder) Available(_ context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                     { return nil }

func newTestIndexer(t *testing.T) (*Indexer, string) {
	t.Helper()
	treeDir := t.TempDir()
	snapDir := t.TempDir()

	ix := New(
		store.NewMemoryStore(),
		&fakeEmbedder{dim: 8},
		chunk.NewCodeChunker(),
		registry.NewTreeMutex(),
		registry.NewStateMap(),
		snapDir,
	)
	return ix, treeDir
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndex_Lifecycle(t *testing.T) {
	ix, tree := newTestIndexer(t)
	writeFile(t, tree, "src/main.ts", "export function greet(name: string) {\n  return `hi ${name}`\n}\n")

	result, err := ix.Index(context.Background(), tree, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalFiles)
	assert.Equal(t, 1, result.Added)
	assert.Empty(t, result.ParseFailures)
	assert.Greater(t, result.TotalChunks, 0)
}

func TestIndex_ReindexNoChanges(t *testing.T) {
	// index; index again with no changes yields
	// added=modified=0, skipped=totalFiles.
	ix, tree := newTestIndexer(t)
	writeFile(t, tree, "src/main.ts", "export function greet() { return 1 }\n")

	_, err := ix.Index(context.Background(), tree, Options{})
	require.NoError(t, err)

	result, err := ix.Index(context.Background(), tree, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Modified)
	assert.Equal(t, result.TotalFiles, result.Skipped)
}

func TestIndex_Incremental(t *testing.T) {
	// a.ts, b.ts indexed; modify b.ts, add c.ts, delete a.ts.
	ix, tree := newTestIndexer(t)
	writeFile(t, tree, "a.ts", "export function a() { return 1 }\n")
	writeFile(t, tree, "b.ts", "export function b() { return 1 }\n")

	_, err := ix.Index(context.Background(), tree, Options{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(tree, "a.ts")))
	writeFile(t, tree, "b.ts", "export function b() { return 2 }\n")
	writeFile(t, tree, "c.ts", "export function c() { return 1 }\n")

	result, err := ix.Index(context.Background(), tree, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Modified)
	assert.Equal(t, 1, result.Removed)
}

func TestIndex_EmptyTreeErrors(t *testing.T) {
	ix, tree := newTestIndexer(t)
	_, err := ix.Index(context.Background(), tree, Options{})
	assert.Error(t, err)
}

func TestClear_RemovesCollectionAndState(t *testing.T) {
	ix, tree := newTestIndexer(t)
	writeFile(t, tree, "a.ts", "export function a() { return 1 }\n")

	_, err := ix.Index(context.Background(), tree, Options{})
	require.NoError(t, err)

	require.NoError(t, ix.Clear(context.Background(), tree))

	_, ok := ix.states.Get(tree)
	assert.False(t, ok)
}
