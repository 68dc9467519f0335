package hook

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetic-labs/eideticmcp/internal/chunk"
	"github.com/eidetic-labs/eideticmcp/internal/snapshot"
	"github.com/eidetic-labs/eideticmcp/internal/store"
)

type stubEmbedder struct{ dim int }

func (s *stubEmbedder) Initialize(_ context.Context) error { return nil }

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, s.dim)
		v[0] = float32(len(texts[i]) + 1)
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int                  { return s.dim }
func (s *stubEmbedder) ModelName() string                { return "stub-model" }
func (s *stubEmbedder) Available(_ context.Context) bool { return true }
func (s *stubEmbedder) Close() error                     { return nil }

func newTestReindexer(t *testing.T) (*TargetedReindexer, *store.MemoryStore, string) {
	t.Helper()
	mem := store.NewMemoryStore()
	tree := t.TempDir()
	r := NewTargetedReindexer(mem, &stubEmbedder{dim: 4}, chunk.NewCodeChunker(), t.TempDir())
	return r, mem, tree
}

func writeTreeFile(t *testing.T, tree, rel, content string) {
	t.Helper()
	path := filepath.Join(tree, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReindex_IndexesExactlyTheListedFiles(t *testing.T) {
	r, mem, tree := newTestReindexer(t)
	ctx := context.Background()

	writeTreeFile(t, tree, "a.go", "package main\n\nfunc A() int { return 1 }\n")
	writeTreeFile(t, tree, "untouched.go", "package main\n\nfunc B() int { return 2 }\n")

	manifest := ReindexManifest{ProjectPath: tree, ModifiedFiles: []string{"a.go"}}
	require.NoError(t, r.Reindex(ctx, manifest))

	collection := store.CollectionName(tree)
	rows, err := mem.ListSymbols(ctx, collection, store.ListSymbolsOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, row := range rows {
		assert.Equal(t, "a.go", row.RelativePath, "only manifest files may be touched")
	}

	snap, err := snapshot.Load(filepath.Join(r.SnapDir, collection+".json"))
	require.NoError(t, err)
	assert.Contains(t, snap, "a.go")
	assert.NotContains(t, snap, "untouched.go")
}

func TestReindex_ReplacesStalePointsForModifiedFile(t *testing.T) {
	r, mem, tree := newTestReindexer(t)
	ctx := context.Background()

	writeTreeFile(t, tree, "a.go", "package main\n\nfunc Old() int { return 1 }\n")
	manifest := ReindexManifest{ProjectPath: tree, ModifiedFiles: []string{"a.go"}}
	require.NoError(t, r.Reindex(ctx, manifest))

	writeTreeFile(t, tree, "a.go", "package main\n\nfunc New() int { return 2 }\n")
	require.NoError(t, r.Reindex(ctx, manifest))

	collection := store.CollectionName(tree)
	rows, err := mem.ListSymbols(ctx, collection, store.ListSymbolsOptions{})
	require.NoError(t, err)

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Name)
	}
	assert.Contains(t, names, "New")
	assert.NotContains(t, names, "Old")
}

func TestReindex_MissingFileIsADeletion(t *testing.T) {
	r, mem, tree := newTestReindexer(t)
	ctx := context.Background()

	writeTreeFile(t, tree, "gone.go", "package main\n\nfunc Gone() int { return 1 }\n")
	manifest := ReindexManifest{ProjectPath: tree, ModifiedFiles: []string{"gone.go"}}
	require.NoError(t, r.Reindex(ctx, manifest))

	require.NoError(t, os.Remove(filepath.Join(tree, "gone.go")))
	require.NoError(t, r.Reindex(ctx, manifest))

	collection := store.CollectionName(tree)
	rows, err := mem.ListSymbols(ctx, collection, store.ListSymbolsOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows, "vectors for the vanished file must be deleted")

	snap, err := snapshot.Load(filepath.Join(r.SnapDir, collection+".json"))
	require.NoError(t, err)
	assert.NotContains(t, snap, "gone.go")
}
