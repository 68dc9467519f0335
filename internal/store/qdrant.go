package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/eidetic-labs/eideticmcp/internal/errors"
)

// payload field names used across collections.
const (
	fieldRelativePath = "relative_path"
	fieldContent      = "content"
	fieldStartLine    = "start_line"
	fieldEndLine      = "end_line"
	fieldLanguage     = "language"
	fieldSymbolName   = "symbol_name"
	fieldSymbolKind   = "symbol_kind"
	fieldSymbolSig    = "symbol_signature"
	fieldParentSymbol = "parent_symbol"
	fieldExtension    = "file_extension"
	fieldCategory     = "file_category"
)

// insertBatchSize caps how many points go in a single Upsert call.
const insertBatchSize = 100

// defaultListSymbolsLimit is the adapter's own cap when the caller asks
// for everything.
const defaultListSymbolsLimit = 20000

// QdrantStore is the Store implementation backed by a remote Qdrant
// instance over gRPC.
type QdrantStore struct {
	client *qdrant.Client

	mu        sync.Mutex
	denseOnly map[string]bool // collections where the full-text index could not be created
}

// QdrantConfig configures the gRPC connection.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// NewQdrantStore dials the configured Qdrant instance. Dialing is lazy in
// the underlying gRPC client, so this rarely fails even if the server is
// down; failures surface on first real call.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, errors.VectorStoreError("failed to construct qdrant client", err)
	}
	return &QdrantStore{
		client:    client,
		denseOnly: make(map[string]bool),
	}, nil
}

func (s *QdrantStore) isDenseOnly(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.denseOnly[name]
}

func (s *QdrantStore) markDenseOnly(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denseOnly[name] = true
}

// CreateCollection provisions the dense vector field plus keyword indexes
// on relativePath/fileExtension/fileCategory and, where the backend
// supports it, a tokenized full-text index on content. When the backend
// rejects the text index with a data-type-unsupported error, the
// half-created collection is dropped and recreated dense-only, and the
// mode is remembered so search skips the lexical leg for it.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dim int) error {
	if err := s.provision(ctx, name, dim, true); err != nil {
		if !isUnsupportedFieldTypeErr(err) {
			return errors.VectorStoreError(fmt.Sprintf("create collection %s", name), err)
		}
		if dropErr := s.client.DeleteCollection(ctx, name); dropErr != nil {
			return errors.VectorStoreError(fmt.Sprintf("drop half-created collection %s", name), dropErr)
		}
		if err := s.provision(ctx, name, dim, false); err != nil {
			return errors.VectorStoreError(fmt.Sprintf("create dense-only collection %s", name), err)
		}
		s.markDenseOnly(name)
	}
	return nil
}

// provision creates the collection and its secondary indexes, with or
// without the full-text leg.
func (s *QdrantStore) provision(ctx context.Context, name string, dim int, withText bool) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	for _, field := range []string{fieldRelativePath, fieldExtension, fieldCategory, fieldSymbolKind} {
		if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		}); err != nil {
			return err
		}
	}

	if !withText {
		return nil
	}
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      fieldContent,
		FieldType:      qdrant.FieldType_FieldTypeText.Enum(),
	})
	return err
}

func isUnsupportedFieldTypeErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unsupported") || strings.Contains(msg, "unknown field type") ||
		strings.Contains(msg, "invalid field type")
}

// HasCollection never surfaces a transport error to the caller: it reports
// false, matching the contract's "caller re-probes" behavior.
func (s *QdrantStore) HasCollection(ctx context.Context, name string) bool {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false
	}
	return exists
}

func (s *QdrantStore) DropCollection(ctx context.Context, name string) error {
	if !s.HasCollection(ctx, name) {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return errors.VectorStoreError(fmt.Sprintf("drop collection %s", name), err)
	}
	s.mu.Lock()
	delete(s.denseOnly, name)
	s.mu.Unlock()
	return nil
}

func (s *QdrantStore) Insert(ctx context.Context, name string, docs []*Document) error {
	for start := 0; start < len(docs); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		points := make([]*qdrant.PointStruct, 0, len(batch))
		for _, d := range batch {
			points = append(points, docToPoint(d))
		}

		wait := true
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         points,
			Wait:           &wait,
		})
		if err != nil {
			return errors.VectorStoreError(fmt.Sprintf("insert batch into %s", name), err)
		}
	}
	return nil
}

func docToPoint(d *Document) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(d.ID),
		Vectors: qdrant.NewVectorsDense(d.Vector),
		Payload: qdrant.NewValueMap(map[string]any{
			fieldRelativePath: d.RelativePath,
			fieldContent:      d.Content,
			fieldStartLine:    int64(d.StartLine),
			fieldEndLine:      int64(d.EndLine),
			fieldLanguage:     d.Language,
			fieldSymbolName:   d.SymbolName,
			fieldSymbolKind:   d.SymbolKind,
			fieldSymbolSig:    d.SymbolSignature,
			fieldParentSymbol: d.ParentSymbol,
			fieldExtension:    d.FileExtension,
			fieldCategory:     string(d.FileCategory),
		}),
	}
}

func pointToDoc(id string, payload map[string]*qdrant.Value, vector []float32) *Document {
	return &Document{
		ID:              id,
		RelativePath:    payloadStr(payload, fieldRelativePath),
		Content:         payloadStr(payload, fieldContent),
		StartLine:       int(payloadInt(payload, fieldStartLine)),
		EndLine:         int(payloadInt(payload, fieldEndLine)),
		Language:        payloadStr(payload, fieldLanguage),
		SymbolName:      payloadStr(payload, fieldSymbolName),
		SymbolKind:      payloadStr(payload, fieldSymbolKind),
		SymbolSignature: payloadStr(payload, fieldSymbolSig),
		ParentSymbol:    payloadStr(payload, fieldParentSymbol),
		Vector:          vector,
		FileExtension:   payloadStr(payload, fieldExtension),
		FileCategory:    FileCategory(payloadStr(payload, fieldCategory)),
	}
}

func payloadStr(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return v.GetStringValue()
}

func payloadInt(payload map[string]*qdrant.Value, key string) int64 {
	v, ok := payload[key]
	if !ok || v == nil {
		return 0
	}
	return v.GetIntegerValue()
}

// Search runs the dense query and, unless the collection is in dense-only
// mode, a lexical scroll filtered by a full-text match on content, scores
// the lexical hits by normalized term frequency, and fuses both rankings
// with blendedRRF.
func (s *QdrantStore) Search(ctx context.Context, name string, q SearchQuery) ([]*SearchResult, error) {
	filter := extensionFilter(q.ExtensionFilter)

	denseLimit := uint64(q.Limit)
	if denseLimit == 0 {
		denseLimit = 10
	}

	withPayload := qdrant.NewWithPayload(true)
	withVectors := qdrant.NewWithVectors(false)

	denseResp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQueryDense(q.QueryVector),
		Filter:         filter,
		Limit:          &denseLimit,
		WithPayload:    withPayload,
		WithVectors:    withVectors,
	})
	if err != nil {
		return nil, errors.VectorStoreError(fmt.Sprintf("dense search on %s", name), err)
	}

	docs := make(map[string]*Document)
	dense := make([]rankedItem, 0, len(denseResp))
	for rank, p := range denseResp {
		id := pointIDString(p.GetId())
		docs[id] = pointToDoc(id, p.GetPayload(), nil)
		dense = append(dense, rankedItem{id: id, rank: rank, score: float64(p.GetScore())})
	}

	var lexical []rankedItem
	if !s.isDenseOnly(name) && strings.TrimSpace(q.QueryText) != "" {
		lexFilter := mergeFilters(filter, &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchText(fieldContent, q.QueryText)},
		})
		scrollLimit := uint32(denseLimit)
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Filter:         lexFilter,
			Limit:          &scrollLimit,
			WithPayload:    withPayload,
			WithVectors:    withVectors,
		})
		if err != nil {
			// A scroll failure degrades to dense-only for this call rather
			// than failing the whole search.
			points = nil
		}
		scored := make([]rankedItem, 0, len(points))
		for _, p := range points {
			id := pointIDString(p.GetId())
			doc, ok := docs[id]
			if !ok {
				doc = pointToDoc(id, p.GetPayload(), nil)
				docs[id] = doc
			}
			tf := rawTermFrequency(doc.Content, q.QueryText)
			if tf <= 0 {
				continue
			}
			scored = append(scored, rankedItem{id: id, score: tf})
		}
		rawScores := make([]float64, len(scored))
		for i, item := range scored {
			rawScores[i] = item.score
		}
		normalizeLexicalScores(rawScores)
		for i := range scored {
			scored[i].score = rawScores[i]
		}
		sortRankedByScoreDesc(scored)
		for i := range scored {
			scored[i].rank = i
		}
		lexical = scored
	}

	fused := blendedRRF(dense, lexical)

	results := make([]*SearchResult, 0, len(fused))
	for id, score := range fused {
		doc, ok := docs[id]
		if !ok {
			continue
		}
		results = append(results, &SearchResult{Document: *doc, Score: score})
	}
	sortResultsByScore(results)

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func sortRankedByScoreDesc(items []rankedItem) {
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && items[j-1].score < items[j].score {
			items[j-1], items[j] = items[j], items[j-1]
			j--
		}
	}
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func extensionFilter(extensions []string) *qdrant.Filter {
	if len(extensions) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(extensions))
	for _, ext := range extensions {
		conditions = append(conditions, qdrant.NewMatch(fieldExtension, ext))
	}
	return &qdrant.Filter{Should: conditions}
}

func mergeFilters(a, b *qdrant.Filter) *qdrant.Filter {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	merged := &qdrant.Filter{}
	merged.Must = append(merged.Must, a.GetMust()...)
	merged.Must = append(merged.Must, b.GetMust()...)
	merged.Should = append(merged.Should, a.GetShould()...)
	merged.Should = append(merged.Should, b.GetShould()...)
	return merged
}

func (s *QdrantStore) DeleteByPath(ctx context.Context, name, relPath string) error {
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(fieldRelativePath, relPath)},
		}),
		Wait: &wait,
	})
	if err != nil {
		return errors.VectorStoreError(fmt.Sprintf("delete by path %s in %s", relPath, name), err)
	}
	return nil
}

func (s *QdrantStore) GetByID(ctx context.Context, name, id string) (*Document, error) {
	withPayload := qdrant.NewWithPayload(true)
	withVectors := qdrant.NewWithVectors(true)
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: name,
		Ids:            []*qdrant.PointId{pointIDFromString(id)},
		WithPayload:    withPayload,
		WithVectors:    withVectors,
	})
	if err != nil {
		return nil, errors.VectorStoreError(fmt.Sprintf("get %s from %s", id, name), err)
	}
	if len(points) == 0 {
		return nil, errors.VectorStoreError(fmt.Sprintf("point %s not found in %s", id, name), nil)
	}
	return pointToDoc(id, points[0].GetPayload(), vectorFromPoint(points[0])), nil
}

func vectorFromPoint(p *qdrant.RetrievedPoint) []float32 {
	v := p.GetVectors()
	if v == nil {
		return nil
	}
	if dense := v.GetVector(); dense != nil {
		return dense.GetData()
	}
	return nil
}

func pointIDFromString(id string) *qdrant.PointId {
	return qdrant.NewID(id)
}

func (s *QdrantStore) UpdatePoint(ctx context.Context, name string, doc *Document) error {
	return s.Insert(ctx, name, []*Document{doc})
}

// ListSymbols scrolls the collection with the optional path/kind filters
// applied server-side in the scroll filter, then drops points with an
// empty symbol_name client-side (Qdrant's filter language can't express
// "non-empty string" directly).
func (s *QdrantStore) ListSymbols(ctx context.Context, name string, opts ListSymbolsOptions) ([]*SymbolRow, error) {
	limit := opts.Limit
	if limit <= 0 || limit > defaultListSymbolsLimit {
		limit = defaultListSymbolsLimit
	}

	var filter *qdrant.Filter
	var must []*qdrant.Condition
	if opts.PathFilter != "" {
		must = append(must, qdrant.NewMatch(fieldRelativePath, opts.PathFilter))
	}
	if opts.KindFilter != "" {
		must = append(must, qdrant.NewMatch(fieldSymbolKind, opts.KindFilter))
	}
	if len(must) > 0 {
		filter = &qdrant.Filter{Must: must}
	}

	scrollLimit := uint32(limit)
	withPayload := qdrant.NewWithPayload(true)
	withVectors := qdrant.NewWithVectors(false)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: name,
		Filter:         filter,
		Limit:          &scrollLimit,
		WithPayload:    withPayload,
		WithVectors:    withVectors,
	})
	if err != nil {
		return nil, errors.VectorStoreError(fmt.Sprintf("list symbols in %s", name), err)
	}

	rows := make([]*SymbolRow, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		symbolName := payloadStr(payload, fieldSymbolName)
		if symbolName == "" {
			continue
		}
		rows = append(rows, &SymbolRow{
			Name:         symbolName,
			Kind:         payloadStr(payload, fieldSymbolKind),
			RelativePath: payloadStr(payload, fieldRelativePath),
			StartLine:    int(payloadInt(payload, fieldStartLine)),
			Signature:    payloadStr(payload, fieldSymbolSig),
			ParentName:   payloadStr(payload, fieldParentSymbol),
		})
		if len(rows) >= limit {
			break
		}
	}
	return rows, nil
}
