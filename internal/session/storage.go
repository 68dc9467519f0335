package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// metadataFile is the per-session metadata file name.
const metadataFile = "session.json"

// maxSessionNameLength bounds session names so they stay usable as
// directory names and note partition keys.
const maxSessionNameLength = 64

var validSessionName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionName rejects names that would not survive as directory
// names: only letters, digits, hyphens, and underscores are allowed.
func ValidateSessionName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("session name cannot be empty")
	case len(name) > maxSessionNameLength:
		return fmt.Errorf("session name too long (max %d chars)", maxSessionNameLength)
	case !validSessionName.MatchString(name):
		return fmt.Errorf("session name can only contain letters, numbers, hyphens, and underscores")
	}
	return nil
}

// SaveSession persists sess to <SessionDir>/session.json via
// write-to-temp-then-rename, the same atomicity discipline snapshots use.
func SaveSession(sess *Session) error {
	if err := os.MkdirAll(sess.SessionDir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	target := filepath.Join(sess.SessionDir, metadataFile)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save session file: %w", err)
	}
	return nil
}

// LoadSession reads <sessionDir>/session.json and rebinds SessionDir to
// where the file was actually found.
func LoadSession(sessionDir string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, metadataFile))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("session.json not found in %s", sessionDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session.json: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session.json: %w", err)
	}
	sess.SessionDir = sessionDir
	return &sess, nil
}
