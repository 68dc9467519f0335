package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFiles_GitignoreExcludesMatches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\nsecrets.ts\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "a.ts"), []byte("const a = 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "debug.log"), []byte("log"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "secrets.ts"), []byte("const s = 1;"), 0o644))

	paths, err := ScanFiles(dir, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, paths, "src/a.ts")
	assert.NotContains(t, paths, "debug.log")
	assert.NotContains(t, paths, "src/secrets.ts")
}

func TestScanFiles_SortedLexicographically(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main"), 0o644))

	paths, err := ScanFiles(dir, nil, nil)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, []string{"a.go", "z.go"}, paths)
}

func TestScanFiles_CustomExtensionsAndIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.thrift"), []byte("struct Data {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.go"), []byte("package main"), 0o644))

	paths, err := ScanFiles(dir, []string{".thrift"}, []string{"skip.go"})
	require.NoError(t, err)
	assert.Contains(t, paths, "data.thrift")
	assert.NotContains(t, paths, "skip.go")
}
