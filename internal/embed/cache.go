package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/eidetic-labs/eideticmcp/internal/errors"
)

// DefaultInProcessCacheSize is the in-memory LRU tier's default capacity.
const DefaultInProcessCacheSize = 10000

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// CachedEmbedder wraps an Embedder with a two-tier cache: an in-process
// LRU (fast, capped, process-lifetime) backed by a sharded on-disk JSON
// cache (slower, effectively unbounded, survives restarts). Both tiers are
// keyed by the sha256 of the input text truncated to its first 16 hex
// characters.
type CachedEmbedder struct {
	inner     Embedder
	lru       *lru.Cache[string, []float32]
	cacheRoot string // empty disables the disk tier

	// flight collapses concurrent misses on the same hash into one
	// provider call.
	flight singleflight.Group

	mu    sync.Mutex
	ready bool
}

// NewCachedEmbedder wraps inner with a two-tier cache rooted at
// cacheRoot/<sanitized-model>/. An empty cacheRoot disables the disk tier
// and the cache behaves as LRU-only.
func NewCachedEmbedder(inner Embedder, lruSize int, cacheRoot string) *CachedEmbedder {
	if lruSize <= 0 {
		lruSize = DefaultInProcessCacheSize
	}
	cache, _ := lru.New[string, []float32](lruSize)
	return &CachedEmbedder{inner: inner, lru: cache, cacheRoot: cacheRoot}
}

func (c *CachedEmbedder) modelDir() string {
	sanitized := unsafePathChars.ReplaceAllString(c.inner.ModelName(), "_")
	return filepath.Join(c.cacheRoot, sanitized)
}

// contentHash is the first 16 hex characters of sha256(text), the cache
// key shared by both tiers.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

func (c *CachedEmbedder) diskPath(hash string) string {
	return filepath.Join(c.modelDir(), hash[:2], hash+".json")
}

type diskCacheEntry struct {
	Vector []float32 `json:"vector"`
}

func (c *CachedEmbedder) readDisk(hash string) ([]float32, bool) {
	if c.cacheRoot == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.diskPath(hash))
	if err != nil {
		return nil, false
	}
	var entry diskCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt cache file: remove it and treat as a miss.
		_ = os.Remove(c.diskPath(hash))
		return nil, false
	}
	return entry.Vector, true
}

func (c *CachedEmbedder) writeDisk(hash string, vec []float32) {
	if c.cacheRoot == "" {
		return
	}
	path := c.diskPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	data, err := json.Marshal(diskCacheEntry{Vector: vec})
	if err != nil {
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, path)
}

// get checks the LRU tier, then the disk tier (promoting a disk hit into
// the LRU), returning ok=false on a full miss.
func (c *CachedEmbedder) get(hash string) ([]float32, bool) {
	if vec, ok := c.lru.Get(hash); ok {
		return vec, true
	}
	if vec, ok := c.readDisk(hash); ok {
		c.lru.Add(hash, vec)
		return vec, true
	}
	return nil, false
}

func (c *CachedEmbedder) put(hash string, vec []float32) {
	c.lru.Add(hash, vec)
	c.writeDisk(hash, vec)
}

// Initialize probes the inner provider for its dimension and marks the
// cache ready. Embed and EmbedBatch fail until this has succeeded once.
func (c *CachedEmbedder) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.ready {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.inner.Initialize(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	return nil
}

func (c *CachedEmbedder) isReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.isReady() {
		return nil, errors.EmbeddingError("embedder used before Initialize", nil)
	}
	if isBlank(text) {
		return make([]float32, c.Dimensions()), nil
	}

	hash := contentHash(text)
	if vec, ok := c.get(hash); ok {
		return vec, nil
	}

	result, err, _ := c.flight.Do(hash, func() (any, error) {
		if vec, ok := c.get(hash); ok {
			return vec, nil
		}
		vec, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.put(hash, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}

// EmbedBatch checks both cache tiers for each text before issuing a single
// provider call for the remaining misses (each distinct text sent once),
// then populates both tiers for every newly computed vector.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.isReady() {
		return nil, errors.EmbeddingError("embedder used before Initialize", nil)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	hashes := make([]string, len(texts))
	var missIdx []int
	var missHashes []string
	var missTexts []string
	pending := make(map[string]bool)

	for i, text := range texts {
		if isBlank(text) {
			results[i] = make([]float32, c.Dimensions())
			continue
		}
		hash := contentHash(text)
		hashes[i] = hash
		if vec, ok := c.get(hash); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		if !pending[hash] {
			pending[hash] = true
			missHashes = append(missHashes, hash)
			missTexts = append(missTexts, text)
		}
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	computed, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	fresh := make(map[string][]float32, len(missHashes))
	for j, hash := range missHashes {
		fresh[hash] = computed[j]
		c.put(hash, computed[j])
	}
	for _, idx := range missIdx {
		results[idx] = fresh[hashes[idx]]
	}
	return results, nil
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }
func (c *CachedEmbedder) Close() error { return c.inner.Close() }

// Inner returns the underlying embedder for callers that need provider-
// specific behavior outside the Embedder interface.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }
