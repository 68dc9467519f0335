// Package snapshot implements path normalization, file discovery, the
// content-hash snapshot used for incremental diffing, and file-category
// classification.
package snapshot

// FileRecord is one snapshot entry: a relative path and the first 16 hex
// characters of sha256 of the file's bytes. Truncation is safe — a
// collision only costs a redundant re-index.
type FileRecord struct {
	RelativePath string `json:"-"`
	ContentHash  string `json:"contentHash"`
}

// Snapshot maps relativePath -> FileRecord for one tree. The on-disk shape
// is `{ [relativePath]: { contentHash } }`, so Snapshot itself
// marshals as map[string]FileRecord with RelativePath implied by the key.
type Snapshot map[string]FileRecord

// Diff is the result of comparing two snapshots, keyed on relative path
// and compared by contentHash.
type Diff struct {
	Added    []string
	Modified []string
	Removed  []string
}

// IsEmpty reports whether the diff carries no work.
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}
