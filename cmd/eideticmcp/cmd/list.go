package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/output"
	"github.com/eidetic-labs/eideticmcp/internal/store"
)

// newListCmd creates the list command: enumerates every registered
// project and its indexed/not-indexed status.
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			projects := a.Projects.ListProjects()
			out := output.New(cmd.OutOrStdout())
			if len(projects) == 0 {
				out.Status("", "No codebases")
				return nil
			}

			names := make([]string, 0, len(projects))
			for name := range projects {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				path := projects[name]
				status := "not indexed"
				if a.Store.HasCollection(cmd.Context(), store.CollectionName(path)) {
					status = "indexed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", name, path, status)
			}
			return nil
		},
	}

	return cmd
}
