package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlendedRRF_Monotonicity(t *testing.T) {
	// A outranks B on both sides: lower rank, equal-or-higher score.
	dense := []rankedItem{{id: "A", rank: 0, score: 0.9}, {id: "B", rank: 1, score: 0.5}}
	lexical := []rankedItem{{id: "A", rank: 0, score: 0.8}, {id: "B", rank: 1, score: 0.3}}

	fused := blendedRRF(dense, lexical)
	assert.Greater(t, fused["A"], fused["B"])
}

func TestBlendedRRF_ExactBlend(t *testing.T) {
	// rank 0 dense with raw 0.8, lexical absent:
	// 0.7 * 1/6 + 0.3 * 0.8 = 0.356666...
	fused := blendedRRF([]rankedItem{{id: "A", rank: 0, score: 0.8}}, nil)
	assert.InDelta(t, 0.7/6+0.3*0.8, fused["A"], 1e-9)

	// Adding a rank-0 lexical hit at 1.0 contributes 0.7*1/6 + 0.3*1.0.
	fused = blendedRRF(
		[]rankedItem{{id: "A", rank: 0, score: 0.8}},
		[]rankedItem{{id: "A", rank: 0, score: 1.0}},
	)
	assert.InDelta(t, (0.7/6+0.3*0.8)+(0.7/6+0.3), fused["A"], 1e-9)
}

func TestBlendedRRF_OneSidedStillScores(t *testing.T) {
	dense := []rankedItem{{id: "A", rank: 0, score: 0.9}}
	var lexical []rankedItem

	fused := blendedRRF(dense, lexical)
	assert.Greater(t, fused["A"], 0.0)
	assert.Len(t, fused, 1)
}

func TestCollectionName_Deterministic(t *testing.T) {
	a := CollectionName("/home/user/project")
	b := CollectionName("/home/user/project")
	assert.Equal(t, a, b)
}

func TestCollectionName_DiffersByPath(t *testing.T) {
	a := CollectionName("/home/user/project-one")
	b := CollectionName("/home/user/project-two")
	assert.NotEqual(t, a, b)
}

func TestRawTermFrequency_NoMatch(t *testing.T) {
	assert.Equal(t, 0.0, rawTermFrequency("package main", "banana"))
}

func TestRawTermFrequency_EmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, rawTermFrequency("", "query"))
	assert.Equal(t, 0.0, rawTermFrequency("content", ""))
}

func TestRawTermFrequency_DividesByWordCount(t *testing.T) {
	// "fetch" occurs twice in four words -> raw score 0.5.
	assert.Equal(t, 0.5, rawTermFrequency("fetch data then fetch", "fetch"))
}

func TestNormalizeLexicalScores_TopReachesOne(t *testing.T) {
	scores := []float64{0.5, 0.25, 0.1}
	normalizeLexicalScores(scores)
	assert.Equal(t, 1.0, scores[0])
	assert.Equal(t, 0.5, scores[1])
	assert.Equal(t, 0.2, scores[2])
}

func TestNormalizeLexicalScores_AllZeroNoOp(t *testing.T) {
	scores := []float64{0, 0}
	normalizeLexicalScores(scores)
	assert.Equal(t, []float64{0, 0}, scores)
}
