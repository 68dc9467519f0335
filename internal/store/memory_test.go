package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_InsertSearchDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	const name = "test_collection"

	require.NoError(t, s.CreateCollection(ctx, name, 3))
	assert.True(t, s.HasCollection(ctx, name))

	docs := []*Document{
		{ID: "1", RelativePath: "a.go", Content: "func Foo() {}", Vector: []float32{1, 0, 0}, FileExtension: ".go"},
		{ID: "2", RelativePath: "b.go", Content: "func Bar() {}", Vector: []float32{0, 1, 0}, FileExtension: ".go"},
	}
	require.NoError(t, s.Insert(ctx, name, docs))

	results, err := s.Search(ctx, name, SearchQuery{QueryVector: []float32{1, 0, 0}, QueryText: "Foo", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].ID)

	require.NoError(t, s.DeleteByPath(ctx, name, "a.go"))
	_, err = s.GetByID(ctx, name, "1")
	assert.Error(t, err)

	doc2, err := s.GetByID(ctx, name, "2")
	require.NoError(t, err)
	assert.Equal(t, "b.go", doc2.RelativePath)
}

func TestMemoryStore_ListSymbolsFiltersEmptyNames(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	const name = "symbols"
	require.NoError(t, s.CreateCollection(ctx, name, 2))

	require.NoError(t, s.Insert(ctx, name, []*Document{
		{ID: "1", RelativePath: "a.go", SymbolName: "Foo", SymbolKind: "function", Vector: []float32{1, 0}},
		{ID: "2", RelativePath: "a.go", SymbolName: "", Vector: []float32{0, 1}},
	}))

	rows, err := s.ListSymbols(ctx, name, ListSymbolsOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Foo", rows[0].Name)
}

func TestMemoryStore_SearchUnknownCollection(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Search(context.Background(), "missing", SearchQuery{})
	assert.Error(t, err)
}
