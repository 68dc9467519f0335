package gitignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_DirOnlyTrailingSlash(t *testing.T) {
	m := New()
	m.AddPattern("dist/")
	assert.True(t, m.Match("dist", true))
	assert.True(t, m.Match("dist/bundle.js", false))
	assert.False(t, m.Match("distribution", true))
}

func TestMatch_AnchoredLeadingSlash(t *testing.T) {
	m := New()
	m.AddPattern("/root")
	assert.True(t, m.Match("root", false))
	assert.False(t, m.Match("src/root", false))
}

func TestMatch_GlobAnyDepth(t *testing.T) {
	m := New()
	m.AddPattern("*.log")
	assert.True(t, m.Match("debug.log", false))
	assert.True(t, m.Match("src/nested/debug.log", false))
}

func TestMatch_CommentsIgnored(t *testing.T) {
	m := New()
	m.AddPattern("# a comment")
	assert.False(t, m.Match("# a comment", false))
}

// Negation (`!`) lines are skipped, never re-including a
// path another rule already ignored.
func TestMatch_NegationLinesNeverReinclude(t *testing.T) {
	m := New()
	m.AddPattern("*.log")
	m.AddPattern("!important.log")
	assert.True(t, m.Match("important.log", false))
	assert.True(t, m.Match("debug.log", false))
}

func TestMatch_NegationOnlyPatternAddsNoRule(t *testing.T) {
	m := New()
	m.AddPattern("!keep.txt")
	assert.False(t, m.Match("keep.txt", false))
}
