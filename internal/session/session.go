// Package session implements the session-note subsystem. A session is
// a named, timestamped metadata record; its
// notes are stored as small Documents in one namespaced collection in the
// same store.Store the indexer and searcher use, rather than as local
// index-file copies.
package session

import (
	"time"

	"github.com/eidetic-labs/eideticmcp/pkg/version"
)

// notesCollection is the single, process-wide collection namespacing all
// session notes, distinct from any per-tree code collection.
const notesCollection = "eidetic_session_notes"

// Session is a named, timestamped pointer at a project path, independent
// of that project's index state.
type Session struct {
	Name        string    `json:"name"`
	ProjectPath string    `json:"project_path"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsed    time.Time `json:"last_used"`
	Version     string    `json:"version"`

	// SessionDir is where session.json lives. Computed, not persisted.
	SessionDir string `json:"-"`
}

// Note is one session-note Document, keyed by a UUID id in
// notesCollection and addressed by Session name + Title.
type Note struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Info summarizes a session for listing.
type Info struct {
	Name        string
	ProjectPath string
	LastUsed    time.Time
	Valid       bool
}

// New creates a Session for name and projectPath, rooted at sessionDir.
func New(name, projectPath, sessionDir string) *Session {
	now := time.Now()
	return &Session{
		Name:        name,
		ProjectPath: projectPath,
		CreatedAt:   now,
		LastUsed:    now,
		Version:     version.Version,
		SessionDir:  sessionDir,
	}
}

// Touch updates LastUsed to now.
func (s *Session) Touch() {
	s.LastUsed = time.Now()
}

// IsStale reports whether the session has been idle longer than maxAge.
func (s *Session) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUsed) > maxAge
}

// ToInfo projects s into an Info for listing.
func (s *Session) ToInfo(valid bool) *Info {
	return &Info{
		Name:        s.Name,
		ProjectPath: s.ProjectPath,
		LastUsed:    s.LastUsed,
		Valid:       valid,
	}
}
