package rpc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eidetic-labs/eideticmcp/internal/errors"
	"github.com/eidetic-labs/eideticmcp/internal/index"
	"github.com/eidetic-labs/eideticmcp/internal/search"
	"github.com/eidetic-labs/eideticmcp/internal/snapshot"
	"github.com/eidetic-labs/eideticmcp/internal/store"
)

// IndexCodebaseInput is the index_codebase tool's input.
type IndexCodebaseInput struct {
	Path                 string   `json:"path,omitempty" jsonschema:"absolute path to the tree to index"`
	Project              string   `json:"project,omitempty" jsonschema:"registered project name"`
	Force                bool     `json:"force,omitempty" jsonschema:"drop and fully re-index instead of diffing"`
	DryRun               bool     `json:"dryRun,omitempty" jsonschema:"scan and diff only, do not write"`
	CustomExtensions     []string `json:"customExtensions,omitempty"`
	CustomIgnorePatterns []string `json:"customIgnorePatterns,omitempty"`
}

func (s *Server) handleIndexCodebase(ctx context.Context, _ *mcp.CallToolRequest, in IndexCodebaseInput) (*mcp.CallToolResult, TextOutput, error) {
	tree, err := s.resolveTree(in.Path, in.Project)
	if err != nil {
		return errorResult(err)
	}

	if in.DryRun {
		paths, err := dryRunScan(tree, in.CustomExtensions, in.CustomIgnorePatterns)
		if err != nil {
			return errorResult(err)
		}
		return textResult("dry run: %d files would be scanned in %s", len(paths), tree)
	}

	if err := s.projects.RegisterProject(tree); err != nil {
		return errorResult(err)
	}

	result, err := s.indexer.Index(ctx, tree, index.Options{
		Force:                in.Force,
		CustomExtensions:     in.CustomExtensions,
		CustomIgnorePatterns: in.CustomIgnorePatterns,
	})
	if err != nil {
		return errorResult(err)
	}

	return textResult(
		"indexed %s: totalFiles=%d totalChunks=%d added=%d modified=%d removed=%d skipped=%d parseFailures=%d estTokens=%d estCostUsd=%.4f durationMs=%d",
		tree, result.TotalFiles, result.TotalChunks, result.Added, result.Modified, result.Removed,
		result.Skipped, len(result.ParseFailures), result.EstTokens, result.EstCostUSD, result.DurationMs,
	)
}

// SearchCodeInput is the search_code tool's input.
type SearchCodeInput struct {
	Path            string   `json:"path,omitempty"`
	Project         string   `json:"project,omitempty"`
	Query           string   `json:"query" jsonschema:"the search query"`
	Limit           int      `json:"limit,omitempty"`
	ExtensionFilter []string `json:"extensionFilter,omitempty"`
	Compact         bool     `json:"compact,omitempty" jsonschema:"omit full content, show only locations"`
}

func (s *Server) handleSearchCode(ctx context.Context, _ *mcp.CallToolRequest, in SearchCodeInput) (*mcp.CallToolResult, TextOutput, error) {
	tree, err := s.resolveTree(in.Path, in.Project)
	if err != nil {
		return errorResult(err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return errorResult(errors.ValidationError("query is required", nil))
	}

	results, err := s.searcher.Search(ctx, search.Query{
		Tree:            tree,
		Text:            in.Query,
		Limit:           in.Limit,
		ExtensionFilter: in.ExtensionFilter,
	})
	if err != nil {
		return errorResult(err)
	}
	if len(results) == 0 {
		return textResult("no results for %q in %s", in.Query, tree)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d result(s) for %q:\n", len(results), in.Query)
	for i, r := range results {
		if in.Compact {
			fmt.Fprintf(&b, "%d. %s:%d-%d (score=%.4f)\n", i+1, r.RelativePath, r.StartLine, r.EndLine, r.Score)
			continue
		}
		fmt.Fprintf(&b, "\n%d. %s:%d-%d (score=%.4f)", i+1, r.RelativePath, r.StartLine, r.EndLine, r.Score)
		if r.SymbolName != "" {
			fmt.Fprintf(&b, " [%s %s]", r.SymbolKind, r.SymbolName)
		}
		fmt.Fprintf(&b, "\n%s\n", r.Content)
	}
	return textResult("%s", b.String())
}

// ClearIndexInput is the clear_index tool's input.
type ClearIndexInput struct {
	Path    string `json:"path,omitempty"`
	Project string `json:"project,omitempty"`
}

func (s *Server) handleClearIndex(ctx context.Context, _ *mcp.CallToolRequest, in ClearIndexInput) (*mcp.CallToolResult, TextOutput, error) {
	tree, err := s.resolveTree(in.Path, in.Project)
	if err != nil {
		return errorResult(err)
	}
	if err := s.indexer.Clear(ctx, tree); err != nil {
		return errorResult(err)
	}
	_ = s.projects.Remove(tree)
	return textResult("cleared")
}

// GetIndexingStatusInput is the get_indexing_status tool's input.
type GetIndexingStatusInput struct {
	Path    string `json:"path,omitempty"`
	Project string `json:"project,omitempty"`
}

func (s *Server) handleGetIndexingStatus(ctx context.Context, _ *mcp.CallToolRequest, in GetIndexingStatusInput) (*mcp.CallToolResult, TextOutput, error) {
	tree, err := s.resolveTree(in.Path, in.Project)
	if err != nil {
		return errorResult(err)
	}

	state, ok := s.states.Get(tree)
	if !ok {
		// Fall back: if the collection exists but in-memory state was
		// lost, report indexed with an unknown timestamp.
		if s.store.HasCollection(ctx, store.CollectionName(tree)) {
			return textResult("indexed (unknown timestamp)")
		}
		return errorResult(errors.NotIndexedError("tree is not indexed: " + tree))
	}

	switch state.Status {
	case "indexing":
		return textResult("indexing: %d%% %s", state.Progress, state.ProgressMessage)
	case "error":
		return textResult("error: %s", state.Error)
	case "indexed":
		if state.UnknownLastIndexed {
			return textResult("indexed (unknown timestamp)")
		}
		return textResult("indexed: %d files, %d chunks, last indexed %s", state.TotalFiles, state.TotalChunks, state.LastIndexed.Format("2006-01-02T15:04:05Z07:00"))
	default:
		return textResult("idle")
	}
}

// ListIndexedInput is the (argument-free) list_indexed tool's input.
type ListIndexedInput struct{}

func (s *Server) handleListIndexed(ctx context.Context, _ *mcp.CallToolRequest, _ ListIndexedInput) (*mcp.CallToolResult, TextOutput, error) {
	projects := s.projects.ListProjects()
	if len(projects) == 0 {
		return textResult("No codebases")
	}

	var b strings.Builder
	for name, path := range projects {
		collection := store.CollectionName(path)
		status := "not indexed"
		if s.store.HasCollection(ctx, collection) {
			status = "indexed"
		}
		fmt.Fprintf(&b, "%s -> %s (%s)\n", name, path, status)
	}
	return textResult("%s", b.String())
}

// ReadFileInput is the read_file tool's input.
type ReadFileInput struct {
	Path        string `json:"path"`
	Offset      int    `json:"offset,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	LineNumbers bool   `json:"lineNumbers,omitempty"`
}

const (
	defaultReadLimit = 5000
	maxReadLimit     = 10000
	maxReadFileBytes = 10 * 1024 * 1024
)

func (s *Server) handleReadFile(_ context.Context, _ *mcp.CallToolRequest, in ReadFileInput) (*mcp.CallToolResult, TextOutput, error) {
	info, err := os.Stat(in.Path)
	if err != nil {
		return errorResult(errors.IOError("failed to stat file", err))
	}
	if info.Size() > maxReadFileBytes {
		return errorResult(errors.ValidationError("file exceeds 10MB limit", nil))
	}

	data, err := os.ReadFile(in.Path)
	if err != nil {
		return errorResult(errors.IOError("failed to read file", err))
	}
	if bytes.IndexByte(data, 0) != -1 {
		return errorResult(errors.ValidationError("binary file (embedded NUL byte)", nil))
	}

	offset := in.Offset
	if offset < 1 {
		offset = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	if limit > maxReadLimit {
		limit = maxReadLimit
	}

	lines := strings.Split(string(data), "\n")
	start := offset - 1
	if start >= len(lines) {
		return textResult("")
	}
	end := start + limit
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if in.LineNumbers {
			fmt.Fprintf(&b, "%d: %s\n", i+1, lines[i])
		} else {
			fmt.Fprintf(&b, "%s\n", lines[i])
		}
	}
	return textResult("%s", b.String())
}

// BrowseStructureInput is the browse_structure tool's input.
type BrowseStructureInput struct {
	Path       string `json:"path,omitempty"`
	Project    string `json:"project,omitempty"`
	PathFilter string `json:"pathFilter,omitempty"`
	Kind       string `json:"kind,omitempty"`
	MaxTokens  int    `json:"maxTokens,omitempty"`
}

func (s *Server) handleBrowseStructure(ctx context.Context, _ *mcp.CallToolRequest, in BrowseStructureInput) (*mcp.CallToolResult, TextOutput, error) {
	tree, err := s.resolveTree(in.Path, in.Project)
	if err != nil {
		return errorResult(err)
	}

	collection := store.CollectionName(tree)
	symbols, err := s.store.ListSymbols(ctx, collection, store.ListSymbolsOptions{
		PathFilter: in.PathFilter,
		KindFilter: in.Kind,
	})
	if err != nil {
		return errorResult(err)
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	budget := maxTokens * 4 // rough chars-per-token heuristic, consistent with embed.EstimateTokens

	byPath := make(map[string][]*store.SymbolRow)
	var order []string
	for _, sym := range symbols {
		if _, seen := byPath[sym.RelativePath]; !seen {
			order = append(order, sym.RelativePath)
		}
		byPath[sym.RelativePath] = append(byPath[sym.RelativePath], sym)
	}

	var b strings.Builder
	for _, path := range order {
		line := fmt.Sprintf("%s:\n", path)
		if b.Len()+len(line) > budget {
			break
		}
		b.WriteString(line)
		for _, sym := range byPath[path] {
			entry := fmt.Sprintf("  %s %s (L%d)\n", sym.Kind, sym.Name, sym.StartLine)
			if b.Len()+len(entry) > budget {
				break
			}
			b.WriteString(entry)
		}
	}
	return textResult("%s", b.String())
}

// ListSymbolsInput is the list_symbols tool's input.
type ListSymbolsInput struct {
	Path       string `json:"path,omitempty"`
	Project    string `json:"project,omitempty"`
	PathFilter string `json:"pathFilter,omitempty"`
	Kind       string `json:"kind,omitempty"`
	NameFilter string `json:"nameFilter,omitempty"`
}

func (s *Server) handleListSymbols(ctx context.Context, _ *mcp.CallToolRequest, in ListSymbolsInput) (*mcp.CallToolResult, TextOutput, error) {
	tree, err := s.resolveTree(in.Path, in.Project)
	if err != nil {
		return errorResult(err)
	}

	collection := store.CollectionName(tree)
	symbols, err := s.store.ListSymbols(ctx, collection, store.ListSymbolsOptions{
		PathFilter: in.PathFilter,
		KindFilter: in.Kind,
	})
	if err != nil {
		return errorResult(err)
	}

	var b strings.Builder
	count := 0
	for _, sym := range symbols {
		if in.NameFilter != "" && !strings.Contains(strings.ToLower(sym.Name), strings.ToLower(in.NameFilter)) {
			continue
		}
		count++
		fmt.Fprintf(&b, "%s %s %s:%d", sym.Kind, sym.Name, sym.RelativePath, sym.StartLine)
		if sym.ParentName != "" {
			fmt.Fprintf(&b, " (in %s)", sym.ParentName)
		}
		b.WriteString("\n")
	}
	return textResult("%d symbol(s):\n%s", count, b.String())
}

func dryRunScan(tree string, customExtensions, customIgnorePatterns []string) ([]string, error) {
	return snapshot.ScanFiles(tree, customExtensions, customIgnorePatterns)
}
