package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetic-labs/eideticmcp/internal/store"
)

func TestDiffSnapshots_PureSetSemantics(t *testing.T) {
	prev := Snapshot{
		"a.go": {ContentHash: "h1"},
		"b.go": {ContentHash: "h2"},
	}
	cur := Snapshot{
		"b.go": {ContentHash: "h2-changed"},
		"c.go": {ContentHash: "h3"},
	}

	d := DiffSnapshots(prev, cur)
	assert.ElementsMatch(t, []string{"c.go"}, d.Added)
	assert.ElementsMatch(t, []string{"b.go"}, d.Modified)
	assert.ElementsMatch(t, []string{"a.go"}, d.Removed)
}

func TestDiffSnapshots_IdenticalProducesEmptyLists(t *testing.T) {
	snap := Snapshot{"a.go": {ContentHash: "h1"}}
	d := DiffSnapshots(snap, snap)
	assert.True(t, d.IsEmpty())
}

func TestClassifyFileCategory_RuleOrdering(t *testing.T) {
	cases := map[string]store.FileCategory{
		"docs/CHANGELOG.md":          store.CategoryDoc,
		"src/__tests__/foo.go":       store.CategoryTest,
		"src/foo.test.ts":            store.CategoryTest,
		"dist/bundle.js":             store.CategoryGenerated,
		"package.json":               store.CategoryConfig,
		"config/settings.yaml":       store.CategoryConfig,
		"src/settings.yaml":          store.CategorySource,
		"src/main.go":                store.CategorySource,
		"README.md":                  store.CategoryDoc,
	}
	for path, want := range cases {
		assert.Equal(t, want, ClassifyFileCategory(path), "path=%s", path)
	}
}

func TestBuildSnapshot_SkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main"), 0o644))

	snap := BuildSnapshot(dir, []string{"a.go", "missing.go"})
	assert.Len(t, snap, 1)
	assert.Contains(t, snap, "a.go")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")

	snap := Snapshot{"a.go": {ContentHash: "deadbeef12345678"}}
	require.NoError(t, Save(path, snap))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, loaded, "a.go")
	assert.Equal(t, "deadbeef12345678", loaded["a.go"].ContentHash)
	assert.Equal(t, "a.go", loaded["a.go"].RelativePath)
}

func TestLoad_MissingFileReturnsNilNotError(t *testing.T) {
	snap, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestNormalizePath_StripsTrailingSlashAndBackslashes(t *testing.T) {
	p, err := NormalizePath("/tmp/project/")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/project", p)

	p, err = NormalizePath("/tmp\\project\\")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/project", p)
}
