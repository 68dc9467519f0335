package snapshot

import (
	"os"
	"path/filepath"
	"strings"
)

// NormalizePath expands a leading `~`, resolves to an absolute path,
// replaces backslashes with forward slashes, and strips a trailing slash
// except at the filesystem root. This is the only form ever stored in
// snapshots or the project registry.
func NormalizePath(path string) (string, error) {
	path = strings.ReplaceAll(path, "\\", "/")

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.ToSlash(home) + strings.TrimPrefix(path, "~")
	}

	abs, err := filepath.Abs(filepath.FromSlash(path))
	if err != nil {
		return "", err
	}
	abs = filepath.ToSlash(abs)

	if len(abs) > 1 && strings.HasSuffix(abs, "/") {
		abs = strings.TrimRight(abs, "/")
	}
	return abs, nil
}
