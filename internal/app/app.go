// Package app wires the engine's components into the shapes the CLI and
// RPC entry points need: config, vector store, embedder, indexer,
// searcher, session notes, and the process-wide project registry and run
// states.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/eidetic-labs/eideticmcp/internal/chunk"
	"github.com/eidetic-labs/eideticmcp/internal/config"
	"github.com/eidetic-labs/eideticmcp/internal/embed"
	"github.com/eidetic-labs/eideticmcp/internal/errors"
	"github.com/eidetic-labs/eideticmcp/internal/hook"
	"github.com/eidetic-labs/eideticmcp/internal/index"
	"github.com/eidetic-labs/eideticmcp/internal/registry"
	"github.com/eidetic-labs/eideticmcp/internal/search"
	"github.com/eidetic-labs/eideticmcp/internal/session"
	"github.com/eidetic-labs/eideticmcp/internal/store"
	"github.com/eidetic-labs/eideticmcp/internal/telemetry"
)

// App bundles every long-lived component a CLI command or the RPC server
// needs, built once from a loaded Config.
type App struct {
	Config Config

	Store      store.Store
	Embedder   embed.Embedder
	Chunker    chunk.Chunker
	Indexer    *index.Indexer
	Searcher   *search.Searcher
	Notes      *session.NoteStore
	Reindexer  *hook.TargetedReindexer
	Projects   *registry.ProjectRegistry
	States     *registry.StateMap
	Mutex      *registry.TreeMutex
	Metrics    *telemetry.QueryMetrics

	telemetryDB *sql.DB
}

// Config is a thin alias kept local so callers don't need to import
// internal/config just to read the field back off App.
type Config = config.Config

// snapshotsDir is where per-tree file snapshots live under dataDir.
func snapshotsDir(dataDir string) string {
	return filepath.Join(dataDir, "snapshots")
}

// cacheDir is where the on-disk embedding cache lives under dataDir.
func cacheDir(dataDir string) string {
	return filepath.Join(dataDir, "cache", "embeddings")
}

// registryPath is where the project name registry lives under dataDir.
func registryPath(dataDir string) string {
	return filepath.Join(dataDir, "registry.json")
}

// telemetryPath is where the query telemetry database lives under
// dataDir.
func telemetryPath(dataDir string) string {
	return filepath.Join(dataDir, "telemetry.db")
}

// openTelemetry opens (creating if necessary) the query telemetry
// database and wraps it in a QueryMetrics collector. Telemetry is a
// best-effort side channel: any
// failure here is logged by the caller and degrades to in-memory-only
// metrics rather than failing App construction.
func openTelemetry(dataDir string) (*sql.DB, *telemetry.QueryMetrics, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, telemetry.NewQueryMetrics(nil), err
	}
	db, err := sql.Open("sqlite", telemetryPath(dataDir))
	if err != nil {
		return nil, telemetry.NewQueryMetrics(nil), err
	}
	if err := telemetry.InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, telemetry.NewQueryMetrics(nil), err
	}
	metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		_ = db.Close()
		return nil, telemetry.NewQueryMetrics(nil), err
	}
	return db, telemetry.NewQueryMetrics(metricsStore), nil
}

// New loads configuration from dataDir (empty uses the default) and
// constructs every component wired against it. The vector store and
// embedding provider are real network-backed implementations; nothing is
// dialed eagerly beyond this call.
func New(dataDir string) (*App, error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}

	host, port, err := splitHostPort(cfg.Store.BaseURL)
	if err != nil {
		return nil, errors.ConfigError("invalid store.baseUrl", err)
	}
	vectorStore, err := store.NewQdrantStore(store.QdrantConfig{
		Host:   host,
		Port:   port,
		APIKey: cfg.Store.APIKey,
	})
	if err != nil {
		return nil, errors.VectorStoreError("failed to construct vector store client", err)
	}

	provider := embed.NewHTTPProvider(embed.HTTPProviderConfig{
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		APIKey:  cfg.Embedding.APIKey,
	})
	embedder := embed.NewCachedEmbedder(provider, embed.DefaultInProcessCacheSize, cacheDir(cfg.DataDir))

	chunker := chunk.NewCodeChunker()

	projects, err := registry.LoadProjectRegistry(registryPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	states := registry.NewStateMap()
	mutex := registry.NewTreeMutex()

	snapDir := snapshotsDir(cfg.DataDir)
	ix := index.New(vectorStore, embedder, chunker, mutex, states, snapDir)
	ix.SetConcurrency(cfg.Indexing.Concurrency)

	telemetryDB, metrics, err := openTelemetry(cfg.DataDir)
	if err != nil {
		// Degrade to in-memory-only telemetry rather than failing
		// App construction over a non-critical side channel.
		metrics = telemetry.NewQueryMetrics(nil)
		telemetryDB = nil
	}
	sr := search.New(vectorStore, embedder).WithMetrics(metrics)

	notes := session.NewNoteStore(vectorStore, embedder)
	reindexer := hook.NewTargetedReindexer(vectorStore, embedder, chunker, snapDir)

	return &App{
		Config:      cfg,
		Store:       vectorStore,
		Embedder:    embedder,
		Chunker:     chunker,
		Indexer:     ix,
		Searcher:    sr,
		Notes:       notes,
		Reindexer:   reindexer,
		Projects:    projects,
		States:      states,
		Mutex:       mutex,
		Metrics:     metrics,
		telemetryDB: telemetryDB,
	}, nil
}

// Close releases resources held by App that outlive a single command
// invocation (the telemetry database and its final metrics flush).
func (a *App) Close() error {
	if a.Metrics != nil {
		_ = a.Metrics.Close()
	}
	if a.telemetryDB != nil {
		return a.telemetryDB.Close()
	}
	return nil
}

// splitHostPort parses a "host:port" (optionally "scheme://host:port")
// store base URL into Qdrant's gRPC Host/Port fields.
func splitHostPort(baseURL string) (string, int, error) {
	hostport := baseURL
	if idx := indexOfScheme(hostport); idx >= 0 {
		hostport = hostport[idx:]
	}
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, fmt.Errorf("expected host:port, got %q: %w", baseURL, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", baseURL, err)
	}
	return host, port, nil
}

func indexOfScheme(s string) int {
	for i := 0; i+2 < len(s); i++ {
		if s[i] == ':' && s[i+1] == '/' && s[i+2] == '/' {
			return i + 3
		}
	}
	return -1
}

// HydrateStates marks every registered project "indexed" in States if its
// collection exists in the store, so get_indexing_status and list_indexed
// work correctly across a process restart.
func (a *App) HydrateStates(ctx context.Context) {
	for _, path := range a.Projects.ListProjects() {
		if a.Store.HasCollection(ctx, store.CollectionName(path)) {
			a.States.HydrateIndexed(path)
		}
	}
}
