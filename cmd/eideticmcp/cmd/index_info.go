package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/store"
)

// indexInfo is the read-only summary reported by `index info`.
type indexInfo struct {
	Tree           string `json:"tree"`
	Collection     string `json:"collection"`
	Indexed        bool   `json:"indexed"`
	Status         string `json:"status"`
	TotalFiles     int    `json:"totalFiles,omitempty"`
	TotalChunks    int    `json:"totalChunks,omitempty"`
	LastIndexed    string `json:"lastIndexed,omitempty"`
	EmbeddingModel string `json:"embeddingModel"`
	StoreBaseURL   string `json:"storeBaseUrl"`
}

// newIndexInfoCmd creates the `index info` command: a read-only summary
// of a tree's persisted index state, grounded on the same data
// get_indexing_status reports.
func newIndexInfoCmd() *cobra.Command {
	var path, project string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show index configuration and status for a tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			tree, err := resolveTree(a, path, project)
			if err != nil {
				return err
			}

			collection := store.CollectionName(tree)
			info := indexInfo{
				Tree:           tree,
				Collection:     collection,
				EmbeddingModel: a.Config.Embedding.Model,
				StoreBaseURL:   a.Config.Store.BaseURL,
			}

			if state, ok := a.States.Get(tree); ok {
				info.Status = string(state.Status)
				info.TotalFiles = state.TotalFiles
				info.TotalChunks = state.TotalChunks
				info.Indexed = state.Status == "indexed"
				if !state.LastIndexed.IsZero() {
					info.LastIndexed = state.LastIndexed.Format("2006-01-02T15:04:05Z07:00")
				} else if state.UnknownLastIndexed {
					info.LastIndexed = "unknown"
				}
			} else if a.Store.HasCollection(cmd.Context(), collection) {
				info.Status = "indexed"
				info.Indexed = true
				info.LastIndexed = "unknown"
			} else {
				info.Status = "not indexed"
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Index Information")
			fmt.Fprintln(cmd.OutOrStdout(), "==================")
			fmt.Fprintf(cmd.OutOrStdout(), "Tree:            %s\n", info.Tree)
			fmt.Fprintf(cmd.OutOrStdout(), "Collection:      %s\n", info.Collection)
			fmt.Fprintf(cmd.OutOrStdout(), "Status:          %s\n", info.Status)
			if info.Indexed {
				fmt.Fprintf(cmd.OutOrStdout(), "Files:           %d\n", info.TotalFiles)
				fmt.Fprintf(cmd.OutOrStdout(), "Chunks:          %d\n", info.TotalChunks)
				fmt.Fprintf(cmd.OutOrStdout(), "Last indexed:    %s\n", info.LastIndexed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Embedding model: %s\n", info.EmbeddingModel)
			fmt.Fprintf(cmd.OutOrStdout(), "Store:           %s\n", info.StoreBaseURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Absolute path to the tree (defaults to cwd)")
	cmd.Flags().StringVar(&project, "project", "", "Registered project name")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
