package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkFile(t *testing.T, path, language, code string) []*Chunk {
	t.Helper()
	chunks, err := NewCodeChunker().Chunk(context.Background(), &FileInput{
		Path:     path,
		Content:  []byte(code),
		Language: language,
	})
	require.NoError(t, err)
	return chunks
}

func TestChunk_GoFunctionCarriesSymbolMetadata(t *testing.T) {
	code := "package greet\n\n// Greet says hi.\nfunc Greet(name string) string {\n\treturn \"hi \" + name\n}\n"
	chunks := chunkFile(t, "greet.go", "go", code)

	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, "Greet", c.SymbolName)
	assert.Equal(t, SymbolTypeFunction, c.SymbolKind)
	assert.Equal(t, "func Greet(name string) string {", c.SymbolSignature)
	assert.Equal(t, 4, c.StartLine)
	assert.Equal(t, 6, c.EndLine)
	assert.Empty(t, c.ParentSymbol)
}

func TestChunk_TypeScriptClassMethodsGetParentSymbol(t *testing.T) {
	code := strings.Join([]string{
		"export class Greeter {",
		"  greet(name: string): string {",
		"    return `hi ${name}`",
		"  }",
		"}",
	}, "\n")
	chunks := chunkFile(t, "greeter.ts", "typescript", code)

	var class, method *Chunk
	for _, c := range chunks {
		switch c.SymbolKind {
		case SymbolTypeClass:
			class = c
		case SymbolTypeMethod:
			method = c
		}
	}
	require.NotNil(t, class)
	require.NotNil(t, method)
	assert.Equal(t, "Greeter", class.SymbolName)
	assert.Equal(t, "greet", method.SymbolName)
	assert.Equal(t, "Greeter", method.ParentSymbol)
}

func TestChunk_ArrowFunctionIsAFunction(t *testing.T) {
	code := "export const add = (a: number, b: number) => a + b\n"
	chunks := chunkFile(t, "math.ts", "typescript", code)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "add", chunks[0].SymbolName)
	assert.Equal(t, SymbolTypeFunction, chunks[0].SymbolKind)
}

func TestChunk_UnsupportedLanguageYieldsNoChunks(t *testing.T) {
	chunks := chunkFile(t, "main.rb", "", "puts 'hello'\n")
	assert.Empty(t, chunks)
}

func TestChunk_BlankInputYieldsNoChunks(t *testing.T) {
	chunks := chunkFile(t, "empty.go", "go", "   \n\t\n")
	assert.Empty(t, chunks)
}

func TestRefineChunk_PacksLinesUnderLimit(t *testing.T) {
	line := strings.Repeat("x", 100)
	lines := make([]string, 60) // 60 * 101 chars, well over MaxChunkChars
	for i := range lines {
		lines[i] = line
	}
	original := &Chunk{
		FilePath:   "big.go",
		Content:    strings.Join(lines, "\n"),
		Language:   "go",
		StartLine:  10,
		EndLine:    69,
		SymbolName: "Big",
		SymbolKind: SymbolTypeFunction,
	}

	chunks := refineChunk(original)
	require.Greater(t, len(chunks), 1)

	assert.Equal(t, 10, chunks[0].StartLine)
	prevEnd := chunks[0].StartLine - 1
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), MaxChunkChars)
		assert.Equal(t, prevEnd+1, c.StartLine)
		assert.GreaterOrEqual(t, c.EndLine, c.StartLine)
		assert.Equal(t, "Big", c.SymbolName)
		prevEnd = c.EndLine
	}
	assert.Equal(t, original.EndLine, chunks[len(chunks)-1].EndLine)
}

func TestRefineChunk_SingleOversizedLineEmittedAlone(t *testing.T) {
	long := strings.Repeat("y", MaxChunkChars+500)
	original := &Chunk{
		FilePath:  "long.go",
		Content:   "short\n" + long + "\nshort",
		StartLine: 1,
		EndLine:   3,
	}

	chunks := refineChunk(original)
	var oversized int
	for _, c := range chunks {
		if len(c.Content) > MaxChunkChars {
			oversized++
			assert.NotContains(t, c.Content, "\n")
		}
	}
	assert.Equal(t, 1, oversized)
}

func TestLineChunker_NoSymbolMetadata(t *testing.T) {
	chunks, err := NewLineChunker().Chunk(context.Background(), &FileInput{
		Path:    "notes.txt",
		Content: []byte("line one\nline two\n"),
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].SymbolName)
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestLineChunker_BlankInputYieldsNoChunks(t *testing.T) {
	chunks, err := NewLineChunker().Chunk(context.Background(), &FileInput{
		Path:    "empty.txt",
		Content: []byte(" \n\t"),
	})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
