package index

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eidetic-labs/eideticmcp/internal/chunk"
	"github.com/eidetic-labs/eideticmcp/internal/embed"
	searcherrors "github.com/eidetic-labs/eideticmcp/internal/errors"
	"github.com/eidetic-labs/eideticmcp/internal/registry"
	"github.com/eidetic-labs/eideticmcp/internal/snapshot"
	"github.com/eidetic-labs/eideticmcp/internal/store"
)

// defaultConcurrency bounds the worker pool used for per-file splitting
// and is the default for indexingConcurrency.
const defaultConcurrency = 8

// embeddingBatchSize is the default batch size for embed calls during
// indexing.
const embeddingBatchSize = embed.DefaultBatchSize

// Indexer implements index(tree, opts) -> IndexResult,
// serialized per tree by a registry.TreeMutex and reflected into a
// registry.StateMap as it runs.
type Indexer struct {
	store       store.Store
	embedder    embed.Embedder
	chunker     chunk.Chunker
	lineChunker chunk.Chunker
	langs       *chunk.LanguageRegistry

	mutex   *registry.TreeMutex
	states  *registry.StateMap
	snapDir string

	concurrency int
}

// New returns an Indexer. snapDir is the directory holding
// `<collectionName>.json` snapshot files.
func New(s store.Store, e embed.Embedder, c chunk.Chunker, mutex *registry.TreeMutex, states *registry.StateMap, snapDir string) *Indexer {
	return &Indexer{
		store:       s,
		embedder:    e,
		chunker:     c,
		lineChunker: chunk.NewLineChunker(),
		langs:       chunk.DefaultRegistry(),
		mutex:       mutex,
		states:      states,
		snapDir:     snapDir,
		concurrency: defaultConcurrency,
	}
}

// SetConcurrency overrides the split worker pool size; values below 1
// keep the default.
func (ix *Indexer) SetConcurrency(n int) {
	if n > 0 {
		ix.concurrency = n
	}
}

func (ix *Indexer) snapshotPath(collection string) string {
	return filepath.Join(ix.snapDir, collection+".json")
}

// Index runs the full scan/diff/split/embed/upsert pipeline for tree,
// serialized against any other index/clear on the same normalized path
// by the TreeMutex.
func (ix *Indexer) Index(ctx context.Context, normalizedTree string, opts Options) (*Result, error) {
	unlock := ix.mutex.Lock(normalizedTree)
	defer unlock()

	start := time.Now()
	progress := func(pct int, msg string) {
		ix.states.UpdateProgress(normalizedTree, pct, msg)
		if opts.OnProgress != nil {
			opts.OnProgress(pct, msg)
		}
	}

	ix.states.SetIndexing(normalizedTree)
	progress(0, "starting")

	result, err := ix.runPipeline(ctx, normalizedTree, opts, progress)
	if err != nil {
		ix.states.SetError(normalizedTree, err.Error())
		return nil, err
	}

	ix.states.SetIndexed(normalizedTree, result.TotalFiles, result.TotalChunks)
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

func (ix *Indexer) runPipeline(ctx context.Context, tree string, opts Options, progress func(int, string)) (*Result, error) {
	collection := store.CollectionName(tree)

	// The embedding dimension must be known before any collection is
	// created, so the provider is probed up front.
	if err := ix.embedder.Initialize(ctx); err != nil {
		return nil, err
	}

	// Step 1: scan.
	paths, err := snapshot.ScanFiles(tree, opts.CustomExtensions, opts.CustomIgnorePatterns)
	if err != nil {
		return nil, searcherrors.IOError("failed to scan tree", err)
	}
	// Step 2: empty tree.
	if len(paths) == 0 {
		return nil, searcherrors.EmptyTreeError("no indexable files found in " + tree)
	}

	// Step 3: current snapshot.
	current := snapshot.BuildSnapshot(tree, paths)

	// Step 4: choose work set.
	snapPath := ix.snapshotPath(collection)
	var work []string
	var toDelete []string
	var added, modified, removed int

	hasCollection := ix.store.HasCollection(ctx, collection)

	if opts.Force {
		progress(5, "dropping existing collection")
		if err := ix.store.DropCollection(ctx, collection); err != nil {
			return nil, searcherrors.VectorStoreError("failed to drop collection", err)
		}
		if err := ix.store.CreateCollection(ctx, collection, ix.embedder.Dimensions()); err != nil {
			return nil, searcherrors.VectorStoreError("failed to create collection", err)
		}
		work = paths
		added = len(paths)
	} else {
		prev, loadErr := snapshot.Load(snapPath)
		if loadErr != nil {
			return nil, loadErr
		}
		if prev == nil || !hasCollection {
			if !hasCollection {
				if err := ix.store.CreateCollection(ctx, collection, ix.embedder.Dimensions()); err != nil {
					return nil, searcherrors.VectorStoreError("failed to create collection", err)
				}
			}
			work = paths
			added = len(paths)
		} else {
			diff := snapshot.DiffSnapshots(prev, current)
			work = append(append([]string{}, diff.Added...), diff.Modified...)
			toDelete = append(diff.Modified, diff.Removed...)
			added = len(diff.Added)
			modified = len(diff.Modified)
			removed = len(diff.Removed)
		}
	}

	for _, relPath := range toDelete {
		if err := ix.store.DeleteByPath(ctx, collection, relPath); err != nil {
			return nil, searcherrors.VectorStoreError("failed to delete stale points for "+relPath, err)
		}
	}

	// Step 5: empty work set.
	if len(work) == 0 {
		if err := snapshot.Save(snapPath, current); err != nil {
			return nil, err
		}
		progress(100, "up to date")
		return &Result{
			TotalFiles: len(paths),
			Skipped:    len(paths),
		}, nil
	}

	progress(10, "splitting files")

	// Step 6: split in parallel, bounded concurrency.
	chunksByFile, parseFailures, err := ix.splitAll(ctx, tree, work)
	if err != nil {
		return nil, err
	}

	// A worked file that produced no chunks contributes no vectors, so it
	// is dropped from the snapshot and will be retried on the next run.
	for _, relPath := range work {
		if len(chunksByFile[relPath]) == 0 {
			delete(current, relPath)
		}
	}

	var allChunks []*chunk.Chunk
	var allTexts []string
	for _, cs := range chunksByFile {
		for _, c := range cs {
			allChunks = append(allChunks, c)
			allTexts = append(allTexts, c.Content)
		}
	}

	cost := embed.EstimateTokens(allTexts, ix.embedder.ModelName())

	// Step 7: embed + insert in batches.
	totalBatches := int(math.Ceil(float64(len(allChunks)) / float64(embeddingBatchSize)))
	if totalBatches == 0 {
		totalBatches = 1
	}
	for i := 0; i < len(allChunks); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(allChunks) {
			end = len(allChunks)
		}
		batchChunks := allChunks[i:end]
		batchTexts := allTexts[i:end]

		vectors, err := ix.embedder.EmbedBatch(ctx, batchTexts)
		if err != nil {
			return nil, searcherrors.EmbeddingError("failed to embed batch", err)
		}
		if len(vectors) != len(batchChunks) {
			return nil, searcherrors.EmbeddingError("embedding count does not match input count", nil)
		}

		docs := make([]*store.Document, len(batchChunks))
		for j, c := range batchChunks {
			docs[j] = &store.Document{
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
				Vector:          vectors[j],
				FileExtension:   filepath.Ext(c.FilePath),
				FileCategory:    snapshot.ClassifyFileCategory(c.FilePath),
			}
		}
		if err := ix.store.Insert(ctx, collection, docs); err != nil {
			return nil, searcherrors.VectorStoreError("failed to insert batch", err)
		}

		batchNum := i/embeddingBatchSize + 1
		pct := 10 + int(math.Round(float64(batchNum)/float64(totalBatches)*85))
		progress(pct, "embedding and inserting")
	}

	// Step 8: persist snapshot.
	progress(98, "saving snapshot")
	if err := snapshot.Save(snapPath, current); err != nil {
		return nil, err
	}

	progress(100, "done")

	return &Result{
		TotalFiles:    len(paths),
		TotalChunks:   len(allChunks),
		Added:         added,
		Modified:      modified,
		Removed:       removed,
		Skipped:       0,
		ParseFailures: parseFailures,
		EstTokens:     cost.EstTokens,
		EstCostUSD:    cost.EstCostUSD,
	}, nil
}

// splitAll reads and splits every file in work with bounded concurrency,
// falling back to the line splitter when the AST splitter returns no
// chunks, and recording a parse failure only when both return empty.
func (ix *Indexer) splitAll(ctx context.Context, tree string, work []string) (map[string][]*chunk.Chunk, []ParseFailure, error) {
	results := make([]*fileSplitResult, len(work))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for i, relPath := range work {
		i, relPath := i, relPath
		g.Go(func() error {
			results[i] = ix.splitOne(gctx, tree, relPath)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	byFile := make(map[string][]*chunk.Chunk, len(work))
	var failures []ParseFailure
	for _, r := range results {
		if r == nil {
			continue
		}
		if len(r.chunks) > 0 {
			byFile[r.relPath] = r.chunks
		} else if r.parseFailure {
			failures = append(failures, ParseFailure{Path: r.relPath})
		}
	}
	return byFile, failures, nil
}

type fileSplitResult struct {
	relPath      string
	chunks       []*chunk.Chunk
	parseFailure bool
}

// splitOne reads one file and splits it. Read errors are warned and
// counted as parse failures; empty
// or whitespace-only files are silently skipped (not a parse failure).
func (ix *Indexer) splitOne(ctx context.Context, tree, relPath string) *fileSplitResult {
	data, err := os.ReadFile(filepath.Join(tree, filepath.FromSlash(relPath)))
	if err != nil {
		slog.Warn("failed to read file for splitting",
			slog.String("path", relPath),
			slog.String("error", err.Error()))
		return &fileSplitResult{relPath: relPath, parseFailure: true}
	}

	input := &chunk.FileInput{
		Path:     relPath,
		Content:  data,
		Language: ix.languageFor(relPath),
	}

	chunks, _ := ix.chunker.Chunk(ctx, input)
	if len(chunks) == 0 {
		chunks, _ = ix.lineChunker.Chunk(ctx, input)
	}
	if len(chunks) == 0 {
		// Empty/whitespace-only input produces no chunks from either
		// splitter and is not a parse failure; anything else that
		// yields zero chunks from both is.
		if len(trimSpace(data)) == 0 {
			return &fileSplitResult{relPath: relPath}
		}
		return &fileSplitResult{relPath: relPath, parseFailure: true}
	}
	return &fileSplitResult{relPath: relPath, chunks: chunks}
}

func (ix *Indexer) languageFor(relPath string) string {
	ext := filepath.Ext(relPath)
	if cfg, ok := ix.langs.GetByExtension(ext); ok {
		return cfg.Name
	}
	return ""
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	isSpace := func(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

// Clear removes a tree's collection, snapshot, and run state, serialized
// through the same per-tree mutex as Index.
func (ix *Indexer) Clear(ctx context.Context, normalizedTree string) error {
	unlock := ix.mutex.Lock(normalizedTree)
	defer unlock()

	collection := store.CollectionName(normalizedTree)
	if err := ix.store.DropCollection(ctx, collection); err != nil {
		return searcherrors.VectorStoreError("failed to drop collection", err)
	}
	_ = os.Remove(ix.snapshotPath(collection))
	ix.states.Remove(normalizedTree)
	return nil
}
