package snapshot

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eidetic-labs/eideticmcp/internal/gitignore"
)

// ScanFiles walks tree and returns the lexicographically sorted list of
// relative paths whose lowercased extension is allowed, excluding
// anything matched by the default ignore globs, .gitignore, or
// customIgnorePatterns.
func ScanFiles(tree string, customExtensions, customIgnorePatterns []string) ([]string, error) {
	matcher := gitignore.New()
	for _, g := range DefaultIgnoreGlobs {
		matcher.AddPattern(g)
	}
	for _, p := range customIgnorePatterns {
		matcher.AddPattern(p)
	}
	loadGitignoreFiles(tree, matcher)

	allowed := make(map[string]bool, len(DefaultExtensions)+len(customExtensions))
	for ext := range DefaultExtensions {
		allowed[ext] = true
	}
	for _, ext := range customExtensions {
		allowed[strings.ToLower(ext)] = true
	}

	var paths []string
	err := filepath.WalkDir(tree, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if path == tree {
			return nil
		}
		rel, relErr := filepath.Rel(tree, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if matcher.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !allowed[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// loadGitignoreFiles walks the tree looking for .gitignore files and adds
// their patterns scoped to the directory that contains them. Read
// failures are skipped: a missing or unreadable .gitignore is not fatal.
func loadGitignoreFiles(tree string, matcher *gitignore.Matcher) {
	_ = filepath.WalkDir(tree, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}
		base, relErr := filepath.Rel(tree, filepath.Dir(path))
		if relErr != nil {
			return nil
		}
		base = filepath.ToSlash(base)
		if base == "." {
			base = ""
		}
		if addErr := matcher.AddFromFile(path, base); addErr != nil {
			slog.Warn("failed to read .gitignore", slog.String("path", path), slog.String("error", addErr.Error()))
		}
		return nil
	})
}
