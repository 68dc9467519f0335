package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/output"
	"github.com/eidetic-labs/eideticmcp/internal/search"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var path, project string
	var limit int
	var extensionFilter []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search an indexed source tree",
		Long: `Search runs the hybrid dense+lexical pipeline: dense
vector search, a lexical term-frequency scroll, blended reciprocal-rank
fusion, category re-weighting, and overlap deduplication.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()
			tree, err := resolveTree(a, path, project)
			if err != nil {
				return err
			}

			results, err := a.Searcher.Search(cmd.Context(), search.Query{
				Tree:            tree,
				Text:            query,
				Limit:           limit,
				ExtensionFilter: extensionFilter,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			out := output.New(cmd.OutOrStdout())
			if len(results) == 0 {
				out.Status("", fmt.Sprintf("No results for %q", query))
				return nil
			}
			out.Statusf("🔍", "Found %d result(s) for %q:", len(results), query)
			out.Newline()
			for i, r := range results {
				location := fmt.Sprintf("%s:%d-%d", r.RelativePath, r.StartLine, r.EndLine)
				if r.SymbolName != "" {
					out.Statusf("", "%d. %s (score: %.3f) [%s %s]", i+1, location, r.Score, r.SymbolKind, r.SymbolName)
				} else {
					out.Statusf("", "%d. %s (score: %.3f)", i+1, location, r.Score)
				}
				for _, line := range snippetLines(r.Content, 3) {
					out.Status("", "   "+line)
				}
				out.Newline()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Absolute path to the tree to search (defaults to cwd)")
	cmd.Flags().StringVar(&project, "project", "", "Registered project name to search")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results (1-50)")
	cmd.Flags().StringSliceVarP(&extensionFilter, "ext", "e", nil, "Restrict results to these file extensions")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func snippetLines(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
