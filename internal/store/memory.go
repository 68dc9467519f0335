package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/eidetic-labs/eideticmcp/internal/errors"
)

// MemoryStore is an in-process Store used by tests. It implements the exact dense+lexical+blendedRRF
// contract the Qdrant backend does, against a plain map, so tests can
// exercise the real fusion/dedup/category-boost code paths without a
// network dependency.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]*Document
	dims        map[string]int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*Document),
		dims:        make(map[string]int),
	}
}

func (m *MemoryStore) CreateCollection(_ context.Context, name string, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return errors.VectorStoreError("collection already exists: "+name, nil)
	}
	m.collections[name] = make(map[string]*Document)
	m.dims[name] = dim
	return nil
}

func (m *MemoryStore) HasCollection(_ context.Context, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.collections[name]
	return ok
}

func (m *MemoryStore) DropCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	delete(m.dims, name)
	return nil
}

func (m *MemoryStore) Insert(_ context.Context, name string, docs []*Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[name]
	if !ok {
		return errors.VectorStoreError("no such collection: "+name, nil)
	}
	for _, d := range docs {
		cp := *d
		coll[d.ID] = &cp
	}
	return nil
}

func (m *MemoryStore) Search(_ context.Context, name string, q SearchQuery) ([]*SearchResult, error) {
	m.mu.Lock()
	coll, ok := m.collections[name]
	if !ok {
		m.mu.Unlock()
		return nil, errors.VectorStoreError("no such collection: "+name, nil)
	}
	docs := make([]*Document, 0, len(coll))
	for _, d := range coll {
		if extensionAllowed(d.FileExtension, q.ExtensionFilter) {
			cp := *d
			docs = append(docs, &cp)
		}
	}
	m.mu.Unlock()

	type scored struct {
		doc   *Document
		dense float64
	}
	denseScored := make([]scored, 0, len(docs))
	for _, d := range docs {
		denseScored = append(denseScored, scored{doc: d, dense: cosineSimilarity(d.Vector, q.QueryVector)})
	}
	sort.SliceStable(denseScored, func(i, j int) bool { return denseScored[i].dense > denseScored[j].dense })

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(denseScored) > limit {
		denseScored = denseScored[:limit]
	}

	docsByID := make(map[string]*Document, len(docs))
	for _, d := range docs {
		docsByID[d.ID] = d
	}

	dense := make([]rankedItem, 0, len(denseScored))
	for i, s := range denseScored {
		dense = append(dense, rankedItem{id: s.doc.ID, rank: i, score: s.dense})
	}

	var lexical []rankedItem
	if strings.TrimSpace(q.QueryText) != "" {
		type lexScore struct {
			id    string
			score float64
		}
		var ls []lexScore
		for _, d := range docs {
			tf := rawTermFrequency(d.Content, q.QueryText)
			if tf > 0 {
				ls = append(ls, lexScore{id: d.ID, score: tf})
			}
		}
		scores := make([]float64, len(ls))
		for i, l := range ls {
			scores[i] = l.score
		}
		normalizeLexicalScores(scores)
		for i := range ls {
			ls[i].score = scores[i]
		}
		sort.SliceStable(ls, func(i, j int) bool { return ls[i].score > ls[j].score })
		if len(ls) > limit {
			ls = ls[:limit]
		}
		for i, l := range ls {
			lexical = append(lexical, rankedItem{id: l.id, rank: i, score: l.score})
		}
	}

	fused := blendedRRF(dense, lexical)
	results := make([]*SearchResult, 0, len(fused))
	for id, score := range fused {
		d, ok := docsByID[id]
		if !ok {
			continue
		}
		results = append(results, &SearchResult{Document: *d, Score: score})
	}
	sortResultsByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func extensionAllowed(ext string, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if a == ext {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func (m *MemoryStore) DeleteByPath(_ context.Context, name, relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[name]
	if !ok {
		return errors.VectorStoreError("no such collection: "+name, nil)
	}
	for id, d := range coll {
		if d.RelativePath == relPath {
			delete(coll, id)
		}
	}
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, name, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[name]
	if !ok {
		return nil, errors.VectorStoreError("no such collection: "+name, nil)
	}
	d, ok := coll[id]
	if !ok {
		return nil, errors.VectorStoreError("no such point: "+id, nil)
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) UpdatePoint(_ context.Context, name string, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[name]
	if !ok {
		return errors.VectorStoreError("no such collection: "+name, nil)
	}
	cp := *doc
	coll[doc.ID] = &cp
	return nil
}

func (m *MemoryStore) ListSymbols(_ context.Context, name string, opts ListSymbolsOptions) ([]*SymbolRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[name]
	if !ok {
		return nil, errors.VectorStoreError("no such collection: "+name, nil)
	}
	limit := opts.Limit
	if limit <= 0 || limit > defaultListSymbolsLimit {
		limit = defaultListSymbolsLimit
	}

	var rows []*SymbolRow
	for _, d := range coll {
		if d.SymbolName == "" {
			continue
		}
		if opts.PathFilter != "" && d.RelativePath != opts.PathFilter {
			continue
		}
		if opts.KindFilter != "" && d.SymbolKind != opts.KindFilter {
			continue
		}
		rows = append(rows, &SymbolRow{
			Name:         d.SymbolName,
			Kind:         d.SymbolKind,
			RelativePath: d.RelativePath,
			StartLine:    d.StartLine,
			Signature:    d.SymbolSignature,
			ParentName:   d.ParentSymbol,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].RelativePath != rows[j].RelativePath {
			return rows[i].RelativePath < rows[j].RelativePath
		}
		return rows[i].StartLine < rows[j].StartLine
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
