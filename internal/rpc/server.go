// Package rpc implements the line-delimited JSON-RPC tool surface over
// modelcontextprotocol/go-sdk. Every tool returns a single text
// blob; the protocol itself never sees a typed error — failures are
// formatted into the text result with an error prefix.
package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eidetic-labs/eideticmcp/internal/errors"
	"github.com/eidetic-labs/eideticmcp/internal/index"
	"github.com/eidetic-labs/eideticmcp/internal/registry"
	"github.com/eidetic-labs/eideticmcp/internal/search"
	"github.com/eidetic-labs/eideticmcp/internal/snapshot"
	"github.com/eidetic-labs/eideticmcp/internal/store"
	"github.com/eidetic-labs/eideticmcp/pkg/version"
)

// Server bridges the line-delimited JSON-RPC transport to the indexing
// and search engine.
type Server struct {
	mcp      *mcp.Server
	indexer  *index.Indexer
	searcher *search.Searcher
	store    store.Store
	projects *registry.ProjectRegistry
	states   *registry.StateMap
	logger   *slog.Logger
}

// New constructs a Server and registers the full tool surface.
func New(ix *index.Indexer, sr *search.Searcher, st store.Store, projects *registry.ProjectRegistry, states *registry.StateMap) *Server {
	s := &Server{
		indexer:  ix,
		searcher: sr,
		store:    st,
		projects: projects,
		states:   states,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "eideticmcp",
		Version: version.Version,
	}, nil)

	s.registerTools()
	return s
}

// Serve runs the server over stdio. Console logs go to stderr so stdout
// stays reserved for protocol messages.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting RPC server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("RPC server stopped with error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// TextOutput is the single-text-blob result shape every tool in the
// surface returns.
type TextOutput struct {
	Text string `json:"text"`
}

func textResult(format string, args ...any) (*mcp.CallToolResult, TextOutput, error) {
	return nil, TextOutput{Text: fmt.Sprintf(format, args...)}, nil
}

func errorResult(err error) (*mcp.CallToolResult, TextOutput, error) {
	slog.Error("tool call failed", slog.Any("details", errors.FormatForLog(err)))
	return nil, TextOutput{Text: "Error: " + err.Error()}, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_codebase",
		Description: "Index (or re-index) a source tree into the searchable code index.",
	}, s.handleIndexCodebase)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Hybrid dense+lexical search over an indexed source tree.",
	}, s.handleSearchCode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_index",
		Description: "Drop the index for a source tree.",
	}, s.handleClearIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_indexing_status",
		Description: "Report the current indexing state of a source tree.",
	}, s.handleGetIndexingStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_indexed",
		Description: "List every registered project and whether it is indexed.",
	}, s.handleListIndexed)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read_file",
		Description: "Read a text file from an indexed tree, with optional line offset/limit.",
	}, s.handleReadFile)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "browse_structure",
		Description: "Summarize the symbol structure of an indexed tree.",
	}, s.handleBrowseStructure)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_symbols",
		Description: "List symbols discovered in an indexed tree, with optional filters.",
	}, s.handleListSymbols)
}

// resolveTree resolves either an absolute path or a registered project
// name to a normalized tree path; resolving neither yields an error that
// lists the registered projects.
func (s *Server) resolveTree(path, project string) (string, error) {
	if path != "" {
		return snapshot.NormalizePath(path)
	}
	if project != "" {
		if resolved, ok := s.projects.ResolveProject(project); ok {
			return resolved, nil
		}
		return "", errors.ValidationError("unknown project "+project+"; registered: "+s.registeredProjectNames(), nil)
	}
	return "", errors.ValidationError("either path or project is required; registered: "+s.registeredProjectNames(), nil)
}

func (s *Server) registeredProjectNames() string {
	names := make([]string, 0)
	for name := range s.projects.ListProjects() {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
