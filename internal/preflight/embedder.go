package preflight

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// CheckEmbeddingProvider probes the configured embedding provider's HTTP
// endpoint. Unreachability is non-fatal at doctor time — indexing itself
// will surface an EmbeddingError if the provider is down when actually
// needed — but a missing configuration is a required failure.
func (c *Checker) CheckEmbeddingProvider(ctx context.Context, baseURL string) CheckResult {
	result := CheckResult{Name: "embedding_provider"}

	if baseURL == "" {
		result.Status = StatusFail
		result.Required = true
		result.Message = "no embedding provider configured"
		result.Details = "set embedding.baseUrl in config.yaml"
		return result
	}

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot build health request: %v", err)
		return result
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("embedding provider unreachable: %v", err)
		result.Details = fmt.Sprintf("checked %s/health", baseURL)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("embedding provider returned %d", resp.StatusCode)
		return result
	}

	result.Status = StatusPass
	result.Message = "embedding provider reachable"
	result.Details = baseURL
	return result
}

// CheckVectorStore probes the configured vector-store backend. Unlike the
// embedding provider, the store must be reachable before anything useful
// can happen, so this check is required.
func (c *Checker) CheckVectorStore(ctx context.Context, baseURL string) CheckResult {
	result := CheckResult{Name: "vector_store", Required: true}

	if baseURL == "" {
		result.Status = StatusFail
		result.Message = "no vector store configured"
		result.Details = "set store.baseUrl in config.yaml"
		return result
	}

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot build health request: %v", err)
		return result
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("vector store unreachable: %v", err)
		result.Details = fmt.Sprintf("checked %s/healthz", baseURL)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("vector store returned %d", resp.StatusCode)
		return result
	}

	result.Status = StatusPass
	result.Message = "vector store reachable"
	result.Details = baseURL
	return result
}
