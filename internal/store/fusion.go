package store

import (
	"regexp"
	"sort"
	"strings"
)

// rrfK and rrfAlpha are the blended reciprocal-rank-fusion constants:
// score = alpha * 1/(K+rank+1) + (1-alpha) * normalizedScore.
const (
	rrfK     = 5
	rrfAlpha = 0.7
)

// rankedItem is one side's contribution to fusion: a document id, its rank
// (0-based, best first) on that side, and a [0,1]-normalized relevance
// score on that side.
type rankedItem struct {
	id    string
	rank  int
	score float64
}

// blendedRRF fuses a dense-search ranking and a lexical ranking into one
// fused score per id. An id present on only one side still scores using
// that side's rank/score and a zero contribution from the other. The
// returned map is unordered; callers order results with
// sortResultsByScore.
//
// Monotonicity: if document A outranks B on both input lists (lower rank,
// equal-or-higher score), A's fused score is >= B's, because both RRF
// terms are individually monotone in rank and score.
func blendedRRF(dense, lexical []rankedItem) map[string]float64 {
	fused := make(map[string]float64, len(dense)+len(lexical))
	for _, d := range dense {
		fused[d.id] += rrfAlpha*rrfTerm(d.rank) + (1-rrfAlpha)*d.score
	}
	for _, l := range lexical {
		fused[l.id] += rrfAlpha*rrfTerm(l.rank) + (1-rrfAlpha)*l.score
	}
	return fused
}

func rrfTerm(rank int) float64 {
	return 1.0 / float64(rrfK+rank+1)
}

// sortResultsByScore sorts in place by descending Score, breaking ties by
// RelativePath then StartLine then ID for determinism across runs.
func sortResultsByScore(results []*SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
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
	})
}

// rawTermFrequency scores a document's lexical match to a query: unique
// lowercased whitespace-separated query terms are counted as regex-escaped
// case-insensitive matches in content, and the total is divided by the
// content's own word count. The result is a raw
// score, not yet normalized across a result set — callers must run every
// candidate's raw score through normalizeLexicalScores so the top lexical
// match reaches 1.0. Documents with zero occurrences score 0.
func rawTermFrequency(content, query string) float64 {
	if content == "" || query == "" {
		return 0
	}
	terms := uniqueQueryTerms(query)
	if len(terms) == 0 {
		return 0
	}

	var occurrences int
	for _, term := range terms {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		occurrences += len(re.FindAllStringIndex(content, -1))
	}
	if occurrences == 0 {
		return 0
	}

	wordCount := len(strings.Fields(content))
	if wordCount < 1 {
		wordCount = 1
	}
	return float64(occurrences) / float64(wordCount)
}

// uniqueQueryTerms lowercases and whitespace-splits query, deduplicating
// terms while preserving first-seen order.
func uniqueQueryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return terms
}

// normalizeLexicalScores divides every score in place by the maximum score
// in the slice, so the top lexical match reaches 1.0. A no-op on
// an empty slice or when every score is zero.
func normalizeLexicalScores(scores []float64) {
	max := 0.0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max <= 0 {
		return
	}
	for i := range scores {
		scores[i] /= max
	}
}
