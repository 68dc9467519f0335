package snapshot

import (
	"path"
	"strings"

	"github.com/eidetic-labs/eideticmcp/internal/store"
)

// docExtensions are the extensions that classify a file as documentation
// regardless of name.
var docExtensions = map[string]bool{".md": true, ".mdx": true, ".rst": true, ".txt": true}

// configExtensions classify outside of a "src" segment.
var configExtensions = map[string]bool{".yaml": true, ".yml": true, ".toml": true}

var configFilenames = []string{
	"package.json", "tsconfig", "makefile", "dockerfile", "docker-compose",
	".eslintrc", ".prettierrc",
}

// ClassifyFileCategory applies a first-match-wins rule ladder:
// test, then doc, then generated, then config, else source.
func ClassifyFileCategory(relativePath string) store.FileCategory {
	lower := strings.ToLower(relativePath)
	base := strings.ToLower(path.Base(relativePath))
	segments := strings.Split(lower, "/")
	ext := strings.ToLower(path.Ext(relativePath))

	if isTest(lower, base, segments) {
		return store.CategoryTest
	}
	if isDoc(base, segments, ext) {
		return store.CategoryDoc
	}
	if isGenerated(lower, base, segments) {
		return store.CategoryGenerated
	}
	if isConfig(base, segments, ext) {
		return store.CategoryConfig
	}
	return store.CategorySource
}

func isTest(lower, base string, segments []string) bool {
	for _, seg := range segments {
		if seg == "__tests__" {
			return true
		}
	}
	patterns := []string{".test.", ".spec.", "_test.", "_spec."}
	for _, p := range patterns {
		if strings.Contains(base, p) {
			return true
		}
	}
	return strings.HasPrefix(base, "test_") || strings.HasPrefix(base, "test-")
}

func isDoc(base string, segments []string, ext string) bool {
	if docExtensions[ext] {
		return true
	}
	for _, seg := range segments {
		if seg == "docs" || seg == "doc" {
			return true
		}
	}
	prefixes := []string{"readme", "changelog", "license"}
	for _, p := range prefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return false
}

func isGenerated(lower, base string, segments []string) bool {
	for _, seg := range segments[:max(0, len(segments)-1)] {
		if seg == "dist" || seg == "build" || seg == "generated" {
			return true
		}
	}
	if strings.Contains(base, ".generated.") {
		return true
	}
	return matchesGlobStar(base, "*.g.*")
}

func isConfig(base string, segments []string, ext string) bool {
	for _, name := range configFilenames {
		if strings.HasPrefix(base, name) {
			return true
		}
	}
	if matchesGlobStar(base, "*.config.*") {
		return true
	}
	if !configExtensions[ext] {
		return false
	}
	for _, seg := range segments {
		if seg == "src" {
			return false
		}
	}
	return true
}

// matchesGlobStar implements the narrow "*substring*" glob used by the
// config/generated filename rules above: a single '*' matches any run of
// characters.
func matchesGlobStar(name, pattern string) bool {
	parts := strings.Split(pattern, "*")
	idx := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		pos := strings.Index(name[idx:], part)
		if pos < 0 {
			return false
		}
		if i == 0 && pos != 0 {
			return false
		}
		idx += pos + len(part)
	}
	if last := parts[len(parts)-1]; last != "" {
		return strings.HasSuffix(name, last)
	}
	return true
}
