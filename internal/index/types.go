// Package index implements the incremental indexer pipeline:
// scan, diff, split, embed, upsert, wired through the per-tree mutex so
// at most one index/clear runs per tree at a time.
package index

// ParseFailure records a file that produced zero chunks from both the
// AST splitter and the line-splitter fallback.
type ParseFailure struct {
	Path string
}

// Options configures one call to Indexer.Index.
type Options struct {
	Force                bool
	CustomExtensions     []string
	CustomIgnorePatterns []string
	OnProgress           func(pct int, msg string)
}

// Result aggregates what one Index run did.
type Result struct {
	TotalFiles    int
	TotalChunks   int
	Added         int
	Modified      int
	Removed       int
	Skipped       int
	ParseFailures []ParseFailure
	EstTokens     int
	EstCostUSD    float64
	DurationMs    int64
}
