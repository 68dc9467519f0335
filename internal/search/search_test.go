package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eidetic-labs/eideticmcp/internal/store"
)

func TestApplyCategoryBoost_ReRanksAboveDoc(t *testing.T) {
	// a source result at 0.8 must outrank a doc result at 1.0
	// after boost (0.80 vs 0.65).
	results := []*store.SearchResult{
		{Document: store.Document{RelativePath: "README.md", FileCategory: store.CategoryDoc}, Score: 1.0},
		{Document: store.Document{RelativePath: "src/core.ts", FileCategory: store.CategorySource}, Score: 0.8},
	}

	applyCategoryBoost(results)
	sortByScore(results)

	assert.Equal(t, "src/core.ts", results[0].RelativePath)
	assert.InDelta(t, 0.80, results[0].Score, 1e-9)
	assert.InDelta(t, 0.65, results[1].Score, 1e-9)
}

func TestApplyCategoryBoost_AbsentCategoryIsUnweighted(t *testing.T) {
	results := []*store.SearchResult{
		{Document: store.Document{RelativePath: "legacy.go"}, Score: 0.5},
	}
	applyCategoryBoost(results)
	assert.InDelta(t, 0.5, results[0].Score, 1e-9)
}

func TestDeduplicateResults_DropsOverlappingRangeSameFile(t *testing.T) {
	// Overlapping ranges in the same file collapse to the first hit.
	results := []*store.SearchResult{
		{Document: store.Document{RelativePath: "a.ts", StartLine: 1, EndLine: 20}, Score: 1.0},
		{Document: store.Document{RelativePath: "a.ts", StartLine: 15, EndLine: 30}, Score: 0.9},
		{Document: store.Document{RelativePath: "b.ts", StartLine: 1, EndLine: 10}, Score: 0.8},
	}

	out := deduplicateResults(results, 10)

	assert.Len(t, out, 2)
	assert.Equal(t, "a.ts", out[0].RelativePath)
	assert.Equal(t, "b.ts", out[1].RelativePath)
}

func TestDeduplicateResults_KeepsNonOverlappingSameFile(t *testing.T) {
	results := []*store.SearchResult{
		{Document: store.Document{RelativePath: "a.ts", StartLine: 1, EndLine: 10}, Score: 1.0},
		{Document: store.Document{RelativePath: "a.ts", StartLine: 11, EndLine: 20}, Score: 0.9},
	}

	out := deduplicateResults(results, 10)

	assert.Len(t, out, 2)
}

func TestDeduplicateResults_StopsAtLimit(t *testing.T) {
	results := []*store.SearchResult{
		{Document: store.Document{RelativePath: "a.ts", StartLine: 1, EndLine: 5}, Score: 1.0},
		{Document: store.Document{RelativePath: "b.ts", StartLine: 1, EndLine: 5}, Score: 0.9},
		{Document: store.Document{RelativePath: "c.ts", StartLine: 1, EndLine: 5}, Score: 0.8},
	}

	out := deduplicateResults(results, 2)

	assert.Len(t, out, 2)
}

func TestOverlapsAny(t *testing.T) {
	ranges := [][2]int{{1, 20}}
	assert.True(t, overlapsAny(ranges, 15, 30))
	assert.True(t, overlapsAny(ranges, 0, 1))
	assert.False(t, overlapsAny(ranges, 21, 30))
}
