// Package registry implements the project name registry, per-tree run
// state, and per-tree FIFO mutex that the indexer and RPC layer share.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/eidetic-labs/eideticmcp/internal/errors"
)

// ProjectRegistry persists a projectName -> absolutePath mapping, keyed by
// the lowercased basename of the path.
type ProjectRegistry struct {
	mu     sync.RWMutex
	path   string
	byName map[string]string // lowercased basename -> normalized absolute path
}

// LoadProjectRegistry reads registry.json at path, tolerating a missing
// file (a fresh, empty registry).
func LoadProjectRegistry(path string) (*ProjectRegistry, error) {
	r := &ProjectRegistry{path: path, byName: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.IOError("failed to read project registry", err)
	}
	if err := json.Unmarshal(data, &r.byName); err != nil {
		return nil, errors.IOError("failed to parse project registry", err)
	}
	return r, nil
}

// RegisterProject maps the basename of normalizedPath to normalizedPath,
// overwriting any prior registration under that name.
func (r *ProjectRegistry) RegisterProject(normalizedPath string) error {
	name := strings.ToLower(filepath.Base(normalizedPath))

	r.mu.Lock()
	r.byName[name] = normalizedPath
	r.mu.Unlock()

	return r.save()
}

// ResolveProject does a case-insensitive lookup by registered name.
func (r *ProjectRegistry) ResolveProject(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.byName[strings.ToLower(name)]
	return path, ok
}

// FindProjectByPath returns the registered path whose normalized form is
// the longest prefix of p (case-insensitive comparison on both sides).
func (r *ProjectRegistry) FindProjectByPath(p string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lowerP := strings.ToLower(p)
	var best string
	for _, registered := range r.byName {
		lowerRegistered := strings.ToLower(registered)
		if lowerP == lowerRegistered || strings.HasPrefix(lowerP, lowerRegistered+"/") {
			if len(registered) > len(best) {
				best = registered
			}
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// ListProjects returns all registered name -> path pairs.
func (r *ProjectRegistry) ListProjects() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.byName))
	for k, v := range r.byName {
		out[k] = v
	}
	return out
}

// Remove drops every registration pointing at normalizedPath (used by
// clear_index to keep the registry from listing a cleared project).
func (r *ProjectRegistry) Remove(normalizedPath string) error {
	r.mu.Lock()
	for name, path := range r.byName {
		if path == normalizedPath {
			delete(r.byName, name)
		}
	}
	r.mu.Unlock()
	return r.save()
}

func (r *ProjectRegistry) save() error {
	r.mu.RLock()
	data, err := json.MarshalIndent(r.byName, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return errors.IOError("failed to marshal project registry", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return errors.IOError("failed to create registry directory", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.IOError("failed to write registry temp file", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return errors.IOError("failed to rename registry into place", err)
	}
	return nil
}
