package hook

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/eidetic-labs/eideticmcp/internal/chunk"
	"github.com/eidetic-labs/eideticmcp/internal/embed"
	searcherrors "github.com/eidetic-labs/eideticmcp/internal/errors"
	"github.com/eidetic-labs/eideticmcp/internal/snapshot"
	"github.com/eidetic-labs/eideticmcp/internal/store"
)

// TargetedReindexer re-indexes exactly the files named in a
// ReindexManifest: delete-by-path, read, split, embed, insert, treating
// ENOENT as a deletion and updating the existing snapshot in place.
type TargetedReindexer struct {
	Store    store.Store
	Embedder embed.Embedder
	Chunker  chunk.Chunker
	Langs    *chunk.LanguageRegistry
	SnapDir  string
}

// NewTargetedReindexer returns a TargetedReindexer wired to the shared
// store, embedder, and chunker the main indexer uses.
func NewTargetedReindexer(s store.Store, e embed.Embedder, c chunk.Chunker, snapDir string) *TargetedReindexer {
	return &TargetedReindexer{Store: s, Embedder: e, Chunker: c, Langs: chunk.DefaultRegistry(), SnapDir: snapDir}
}

// Reindex processes manifest.ModifiedFiles against manifest.ProjectPath.
func (t *TargetedReindexer) Reindex(ctx context.Context, manifest ReindexManifest) error {
	tree := manifest.ProjectPath
	collection := store.CollectionName(tree)

	if err := t.Embedder.Initialize(ctx); err != nil {
		return err
	}

	if !t.Store.HasCollection(ctx, collection) {
		if err := t.Store.CreateCollection(ctx, collection, t.Embedder.Dimensions()); err != nil {
			return searcherrors.VectorStoreError("failed to create collection", err)
		}
	}

	snapPath := filepath.Join(t.SnapDir, collection+".json")
	current, err := snapshot.Load(snapPath)
	if err != nil {
		return err
	}
	if current == nil {
		current = make(snapshot.Snapshot)
	}

	for _, relPath := range manifest.ModifiedFiles {
		if err := t.Store.DeleteByPath(ctx, collection, relPath); err != nil {
			return searcherrors.VectorStoreError("failed to delete stale points for "+relPath, err)
		}

		data, readErr := os.ReadFile(filepath.Join(tree, filepath.FromSlash(relPath)))
		if readErr != nil {
			if os.IsNotExist(readErr) {
				delete(current, relPath)
				continue
			}
			return searcherrors.IOError("failed to read "+relPath, readErr)
		}

		ext := filepath.Ext(relPath)
		lang := ""
		if cfg, ok := t.Langs.GetByExtension(ext); ok {
			lang = cfg.Name
		}

		chunks, _ := t.Chunker.Chunk(ctx, &chunk.FileInput{Path: relPath, Content: data, Language: lang})
		if len(chunks) == 0 {
			chunks, _ = chunk.NewLineChunker().Chunk(ctx, &chunk.FileInput{Path: relPath, Content: data, Language: lang})
		}
		if len(chunks) == 0 {
			delete(current, relPath)
			continue
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		vectors, embedErr := t.Embedder.EmbedBatch(ctx, texts)
		if embedErr != nil {
			return searcherrors.EmbeddingError("failed to embed "+relPath, embedErr)
		}

		docs := make([]*store.Document, len(chunks))
		for i, c := range chunks {
			docs[i] = &store.Document{
				ID:              uuid.NewString(),
				RelativePath:    c.FilePath,
				Content:         c.Content,
				StartLine:       c.StartLine,
				EndLine:         c.EndLine,
				Language:        c.Language,
				SymbolName:      c.SymbolName,
				SymbolKind:      string(c.SymbolKind),
				SymbolSignature: c.SymbolSignature,
				ParentSymbol:    c.ParentSymbol,
				Vector:          vectors[i],
				FileExtension:   ext,
				FileCategory:    snapshot.ClassifyFileCategory(relPath),
			}
		}
		if err := t.Store.Insert(ctx, collection, docs); err != nil {
			return searcherrors.VectorStoreError("failed to insert "+relPath, err)
		}

		sum := snapshot.BuildSnapshot(tree, []string{relPath})
		if rec, ok := sum[relPath]; ok {
			current[relPath] = rec
		}
	}

	return snapshot.Save(snapPath, current)
}
