// Package hook implements the shadow-index stop-hook: on an
// editor Stop event it promotes a session's shadow git index into a
// commit, diffs it against the session's base commit, and hands the
// changed file list to a detached targeted re-indexer subprocess.
package hook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// StopEvent is the stdin payload delivered on an editor Stop event.
type StopEvent struct {
	SessionID     string `json:"session_id"`
	Cwd           string `json:"cwd"`
	HookEventName string `json:"hook_event_name"`
}

// ReindexManifest is the payload written for the targeted indexer
// subprocess to pick up.
type ReindexManifest struct {
	ProjectPath   string   `json:"projectPath"`
	ModifiedFiles []string `json:"modifiedFiles"`
}

// Result reports what the hook did. The hook always emits `{}` on stdout
// regardless of outcome; Spawned records whether a re-index was actually
// triggered, for the caller's own logging.
type Result struct {
	Spawned bool
}

// Run executes the full stop-hook algorithm.
// spawnFn launches the detached targeted indexer; passing nil uses the
// real os/exec-based spawn.
func Run(event StopEvent, spawnFn func(manifestPath string) error) (Result, error) {
	if spawnFn == nil {
		spawnFn = spawnDetachedIndexer
	}

	if !isGitRepo(event.Cwd) {
		return Result{}, nil
	}

	gitDir, err := gitDirFor(event.Cwd)
	if err != nil {
		return Result{}, nil
	}

	shadowDir := filepath.Join(gitDir, "claude", "indexes", event.SessionID)
	indexFile := filepath.Join(shadowDir, "index")
	baseCommitFile := filepath.Join(shadowDir, "base_commit")

	if !fileExists(indexFile) || !fileExists(baseCommitFile) {
		return Result{}, nil
	}

	baseCommit, err := readTrimmed(baseCommitFile)
	if err != nil {
		return Result{}, nil
	}

	tree, err := writeTree(event.Cwd, indexFile)
	if err != nil {
		return Result{}, nil
	}

	commit, err := commitTree(event.Cwd, tree, baseCommit, event.SessionID)
	if err != nil {
		return Result{}, nil
	}

	if err := updateRef(event.Cwd, "refs/heads/claude/"+event.SessionID, commit); err != nil {
		return Result{}, nil
	}

	modifiedFiles, err := diffTreeNames(event.Cwd, baseCommit, commit)
	if err != nil {
		return Result{}, nil
	}

	if len(modifiedFiles) == 0 {
		_ = os.RemoveAll(shadowDir)
		return Result{}, nil
	}

	manifestPath := filepath.Join(os.TempDir(), fmt.Sprintf("eidetic-reindex-%s.json", event.SessionID))
	manifest := ReindexManifest{ProjectPath: event.Cwd, ModifiedFiles: modifiedFiles}
	data, err := json.Marshal(manifest)
	if err != nil {
		return Result{}, nil
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return Result{}, nil
	}

	if err := spawnFn(manifestPath); err != nil {
		return Result{}, nil
	}

	_ = os.RemoveAll(shadowDir)
	return Result{Spawned: true}, nil
}

func isGitRepo(cwd string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = cwd
	return cmd.Run() == nil
}

func gitDirFor(cwd string) (string, error) {
	out, err := runGit(cwd, nil, "rev-parse", "--git-dir")
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(out)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, dir)
	}
	return dir, nil
}

func writeTree(cwd, indexFile string) (string, error) {
	out, err := runGit(cwd, []string{"GIT_INDEX_FILE=" + indexFile}, "write-tree")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func commitTree(cwd, tree, baseCommit, sessionID string) (string, error) {
	out, err := runGit(cwd, nil, "commit-tree", tree, "-p", baseCommit, "-m", "eidetic: session "+sessionID)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func updateRef(cwd, ref, commit string) error {
	_, err := runGit(cwd, nil, "update-ref", ref, commit)
	return err
}

func diffTreeNames(cwd, baseCommit, commit string) ([]string, error) {
	out, err := runGit(cwd, nil, "diff-tree", "--no-commit-id", "--name-only", "-r", baseCommit, commit)
	if err != nil {
		return nil, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func runGit(cwd string, extraEnv []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = cwd
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// spawnDetachedIndexer launches this same binary's `hook reindex` command
// against the manifest, detached from the parent process so the Stop
// hook itself returns immediately.
func spawnDetachedIndexer(manifestPath string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, "hook", "reindex", "--manifest", manifestPath)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Start()
}
