package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
)

// BuildSnapshot hashes each file in paths (relative to tree) and returns
// the resulting Snapshot. A file that fails to read is skipped with a
// warning and omitted.
func BuildSnapshot(tree string, paths []string) Snapshot {
	snap := make(Snapshot, len(paths))
	for _, rel := range paths {
		data, err := os.ReadFile(filepath.Join(tree, filepath.FromSlash(rel)))
		if err != nil {
			slog.Warn("failed to read file for snapshot", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		sum := sha256.Sum256(data)
		snap[rel] = FileRecord{
			RelativePath: rel,
			ContentHash:  hex.EncodeToString(sum[:])[:16],
		}
	}
	return snap
}

// DiffSnapshots is a pure set operation keyed on relative path, compared
// by contentHash.
func DiffSnapshots(prev, cur Snapshot) Diff {
	var d Diff
	for path, curRecord := range cur {
		prevRecord, existed := prev[path]
		switch {
		case !existed:
			d.Added = append(d.Added, path)
		case prevRecord.ContentHash != curRecord.ContentHash:
			d.Modified = append(d.Modified, path)
		}
	}
	for path := range prev {
		if _, stillExists := cur[path]; !stillExists {
			d.Removed = append(d.Removed, path)
		}
	}
	return d
}
