// Package search implements the hybrid searcher contract: it
// wraps a store.Store's already-fused dense+lexical results with the two
// steps that sit outside the adapter contract — category boost and
// overlap deduplication — and owns the query embedding + limit/fetch
// arithmetic the contract specifies.
package search

import (
	"context"
	"time"

	"github.com/eidetic-labs/eideticmcp/internal/embed"
	searcherrors "github.com/eidetic-labs/eideticmcp/internal/errors"
	"github.com/eidetic-labs/eideticmcp/internal/store"
	"github.com/eidetic-labs/eideticmcp/internal/telemetry"
)

const (
	defaultLimit = 10
	minLimit     = 1
	maxLimit     = 50
	fetchFactor  = 5
)

// categoryBoost multiplies a result's fused score by its file category's
// weight before the final sort. Absent/empty category
// is treated as 1.0 (source-equivalent).
var categoryBoost = map[store.FileCategory]float64{
	store.CategorySource:    1.0,
	store.CategoryTest:      0.75,
	store.CategoryConfig:    0.70,
	store.CategoryDoc:       0.65,
	store.CategoryGenerated: 0.60,
}

// Query is the input to Search.
type Query struct {
	Tree            string // normalized tree path
	Text            string
	Limit           int // 0 means defaultLimit
	ExtensionFilter []string
}

// Searcher implements search(tree, query, opts) -> SearchResult[] on top
// of a Store and an Embedder.
type Searcher struct {
	store    store.Store
	embedder embed.Embedder

	// metrics is an optional best-effort telemetry side channel. It is
	// never on the critical path: Record is non-blocking and a nil
	// metrics is a no-op.
	metrics *telemetry.QueryMetrics
}

// New returns a Searcher backed by s and e.
func New(s store.Store, e embed.Embedder) *Searcher {
	return &Searcher{store: s, embedder: e}
}

// WithMetrics attaches a query telemetry recorder. Passing nil disables
// recording, matching the zero-value Searcher.
func (s *Searcher) WithMetrics(m *telemetry.QueryMetrics) *Searcher {
	s.metrics = m
	return s
}

// Search runs the full pipeline: collection existence check, query
// embedding, delegated dense+lexical+RRF fusion via the store, category
// boost, and overlap dedup.
func (s *Searcher) Search(ctx context.Context, q Query) ([]*store.SearchResult, error) {
	start := time.Now()
	collection := store.CollectionName(q.Tree)
	if !s.store.HasCollection(ctx, collection) {
		return nil, searcherrors.NotIndexedError("tree is not indexed: " + q.Tree)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit < minLimit {
		limit = minLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	fetch := limit * fetchFactor
	if fetch > maxLimit {
		fetch = maxLimit
	}

	if err := s.embedder.Initialize(ctx); err != nil {
		return nil, err
	}
	qv, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, searcherrors.EmbeddingError("failed to embed query", err)
	}

	results, err := s.store.Search(ctx, collection, store.SearchQuery{
		QueryVector:     qv,
		QueryText:       q.Text,
		Limit:           fetch,
		ExtensionFilter: q.ExtensionFilter,
	})
	if err != nil {
		return nil, searcherrors.VectorStoreError("search failed", err)
	}

	applyCategoryBoost(results)
	sortByScore(results)

	final := deduplicateResults(results, limit)

	if s.metrics != nil {
		s.metrics.Record(telemetry.QueryEvent{
			Query:          q.Text,
			QueryType:      telemetry.QueryTypeMixed,
			ResultCount:    len(final),
			Latency:        time.Since(start),
			Timestamp:      start,
			CategoryCounts: telemetry.ResultCategoryCounts(final),
		})
		s.metrics.RecordQueryEmbedding(qv)
	}

	return final, nil
}

// applyCategoryBoost multiplies each result's score in place by its
// category's weight.
func applyCategoryBoost(results []*store.SearchResult) {
	for _, r := range results {
		weight, ok := categoryBoost[r.FileCategory]
		if !ok {
			weight = 1.0
		}
		r.Score *= weight
	}
}

// sortByScore orders results descending by score, breaking ties by
// relativePath then startLine then id, matching store.sortResultsByScore's
// tie-break so re-ranking here is deterministic.
func sortByScore(results []*store.SearchResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && less(results[j], results[j-1]); j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func less(a, b *store.SearchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.RelativePath != b.RelativePath {
		return a.RelativePath < b.RelativePath
	}
	if a.StartLine != b.StartLine {
		return a.StartLine < b.StartLine
	}
	return a.ID < b.ID
}

// deduplicateResults walks results in order, accepting a result iff its
// [startLine,endLine] range does not overlap any previously accepted
// range from the same relativePath, stopping once limit results are
// accepted.
func deduplicateResults(results []*store.SearchResult, limit int) []*store.SearchResult {
	accepted := make([]*store.SearchResult, 0, limit)
	rangesByPath := make(map[string][][2]int)

	for _, r := range results {
		if len(accepted) >= limit {
			break
		}
		if overlapsAny(rangesByPath[r.RelativePath], r.StartLine, r.EndLine) {
			continue
		}
		rangesByPath[r.RelativePath] = append(rangesByPath[r.RelativePath], [2]int{r.StartLine, r.EndLine})
		accepted = append(accepted, r)
	}
	return accepted
}

func overlapsAny(ranges [][2]int, start, end int) bool {
	for _, rg := range ranges {
		if start <= rg[1] && rg[0] <= end {
			return true
		}
	}
	return false
}
