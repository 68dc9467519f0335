package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/eidetic-labs/eideticmcp/internal/app"
	"github.com/eidetic-labs/eideticmcp/internal/config"
	"github.com/eidetic-labs/eideticmcp/internal/snapshot"
)

// resolveTree resolves a --path/--project flag pair to a normalized tree
// path, the same either-or contract the RPC surface uses.
func resolveTree(a *app.App, path, project string) (string, error) {
	if path != "" {
		return snapshot.NormalizePath(path)
	}
	if project != "" {
		if resolved, ok := a.Projects.ResolveProject(project); ok {
			return resolved, nil
		}
		return "", fmt.Errorf("unknown project %q; registered: %s", project, registeredProjectNames(a))
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	// Walk up to the enclosing repository root so a command run from a
	// subdirectory resolves the same tree as the one registered.
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return "", err
	}
	normalized, err := snapshot.NormalizePath(root)
	if err != nil {
		return "", err
	}
	if registered, ok := a.Projects.FindProjectByPath(normalized); ok {
		return registered, nil
	}
	return normalized, nil
}

func registeredProjectNames(a *app.App) string {
	names := make([]string, 0)
	for name := range a.Projects.ListProjects() {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
