package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/eidetic-labs/eideticmcp/internal/errors"
)

// Load reads the Snapshot JSON at path. A missing file is not an error:
// it returns a nil Snapshot.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.IOError("failed to read snapshot", err)
	}

	var raw map[string]FileRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.IOError("failed to parse snapshot", err)
	}
	snap := make(Snapshot, len(raw))
	for relPath, rec := range raw {
		rec.RelativePath = relPath
		snap[relPath] = rec
	}
	return snap, nil
}

// Save persists snap at path using write-to-temp-then-rename, so readers
// never observe a partial file.
func Save(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError("failed to create snapshot directory", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.IOError("failed to marshal snapshot", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.IOError("failed to write snapshot temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.IOError("failed to rename snapshot into place", err)
	}
	return nil
}
