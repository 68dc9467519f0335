package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/eidetic-labs/eideticmcp/internal/errors"
)

// HTTPProviderConfig configures an HTTPProvider.
type HTTPProviderConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// HTTPProvider embeds text by calling a plain HTTP embedding service:
// POST {BaseURL}/embed with {"model": ..., "input": [...]}, expecting
// {"embeddings": [[...], ...]}. This is the ambient shape shared by
// OpenAI-compatible and self-hosted embedding servers.
type HTTPProvider struct {
	cfg    HTTPProviderConfig
	client *http.Client

	mu   sync.Mutex
	dims int // 0 until the first successful call establishes it
}

// NewHTTPProvider constructs a provider. Dimensions() returns 0 until
// Embed/EmbedBatch succeeds at least once.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Initialize embeds a short probe string to establish the provider's
// dimension. Safe to call more than once; later calls return immediately
// once the dimension is known.
func (p *HTTPProvider) Initialize(ctx context.Context) error {
	if p.Dimensions() > 0 {
		return nil
	}
	var vecs [][]float32
	err := WithRetry(ctx, func() error {
		var callErr error
		vecs, callErr = p.call(ctx, []string{"dimension probe"})
		return callErr
	})
	if err != nil {
		return errors.EmbeddingError("failed to probe embedding dimension", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return errors.EmbeddingError("provider returned no probe vector", nil)
	}
	return nil
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return make([]float32, p.Dimensions()), nil
	}
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends texts in chunks of at most DefaultBatchSize, retrying
// each chunk with WithRetry (status-code-aware, batch-halving on 429). A
// halved sub-batch is reassembled into the caller's original order.
func (p *HTTPProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	nonBlankIdx := make([]int, 0, len(texts))
	nonBlankTexts := make([]string, 0, len(texts))
	for i, t := range texts {
		if isBlank(t) {
			results[i] = make([]float32, p.Dimensions())
			continue
		}
		nonBlankIdx = append(nonBlankIdx, i)
		nonBlankTexts = append(nonBlankTexts, t)
	}

	for start := 0; start < len(nonBlankTexts); {
		batchSize := DefaultBatchSize
		if start+batchSize > len(nonBlankTexts) {
			batchSize = len(nonBlankTexts) - start
		}

		var vecs [][]float32
		err := WithRetry(ctx, func() error {
			var callErr error
			vecs, callErr = p.call(ctx, nonBlankTexts[start:start+batchSize])
			if statusErr, ok := callErr.(*httpStatusError); ok && statusErr.status == 429 {
				batchSize = halveBatchSize(batchSize)
			}
			return callErr
		})
		if err != nil {
			return nil, errors.EmbeddingError("embed batch failed", err)
		}
		if len(vecs) != batchSize {
			return nil, errors.EmbeddingError(
				fmt.Sprintf("provider returned %d vectors for %d inputs", len(vecs), batchSize), nil)
		}

		for j, vec := range vecs {
			idx := nonBlankIdx[start+j]
			results[idx] = vec
		}
		start += batchSize
	}

	return results, nil
}

func (p *HTTPProvider) call(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: p.cfg.Model, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.cfg.BaseURL, "/")+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, newHTTPStatusError(resp.StatusCode, resp.Header.Get("Retry-After"), string(respBody))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	if len(parsed.Embeddings) > 0 {
		p.mu.Lock()
		if p.dims == 0 {
			p.dims = len(parsed.Embeddings[0])
		}
		p.mu.Unlock()
	}

	for i := range parsed.Embeddings {
		parsed.Embeddings[i] = normalizeVector(parsed.Embeddings[i])
	}
	return parsed.Embeddings, nil
}

func (p *HTTPProvider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims
}

func (p *HTTPProvider) ModelName() string {
	return p.cfg.Model
}

func (p *HTTPProvider) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.cfg.BaseURL, "/")+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
