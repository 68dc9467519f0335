package hook

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_NotAGitRepoEmitsEmptyResult(t *testing.T) {
	dir := t.TempDir()
	result, err := Run(StopEvent{SessionID: "s1", Cwd: dir}, func(string) error { return nil })
	require.NoError(t, err)
	assert.False(t, result.Spawned)
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v: %s", args, out)
	return string(out)
}

func TestRun_NoShadowIndexEmitsEmptyResult(t *testing.T) {
	dir := t.TempDir()
	git(t, dir, "init", "-q")
	git(t, dir, "config", "user.email", "test@example.com")
	git(t, dir, "config", "user.name", "test")

	result, err := Run(StopEvent{SessionID: "missing-session", Cwd: dir}, func(string) error { return nil })
	require.NoError(t, err)
	assert.False(t, result.Spawned)
}

func TestRun_PromotesShadowIndexAndSpawns(t *testing.T) {
	dir := t.TempDir()
	git(t, dir, "init", "-q")
	git(t, dir, "config", "user.email", "test@example.com")
	git(t, dir, "config", "user.name", "test")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("base"), 0o644))
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-q", "-m", "base")
	baseCommit := gitRevParse(t, dir, "HEAD")

	sessionID := "sess-1"
	shadowDir := filepath.Join(dir, ".git", "claude", "indexes", sessionID)
	require.NoError(t, os.MkdirAll(shadowDir, 0o755))

	shadowIndex := filepath.Join(shadowDir, "index")
	cmd := exec.Command("git", "read-tree", "HEAD")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_INDEX_FILE="+shadowIndex)
	require.NoError(t, cmd.Run())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed"), 0o644))
	cmd = exec.Command("git", "add", "a.txt")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_INDEX_FILE="+shadowIndex)
	require.NoError(t, cmd.Run())

	require.NoError(t, os.WriteFile(filepath.Join(shadowDir, "base_commit"), []byte(baseCommit), 0o644))

	var spawnedManifest string
	result, err := Run(StopEvent{SessionID: sessionID, Cwd: dir}, func(manifestPath string) error {
		spawnedManifest = manifestPath
		return nil
	})
	require.NoError(t, err)
	assert.True(t, result.Spawned)
	assert.FileExists(t, spawnedManifest)
	_ = os.Remove(spawnedManifest)
}

func gitRevParse(t *testing.T, dir, ref string) string {
	t.Helper()
	cmd := exec.Command("git", "rev-parse", ref)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return trimNewline(string(out))
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
