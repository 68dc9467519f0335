package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/app"
	"github.com/eidetic-labs/eideticmcp/internal/store"
	"github.com/eidetic-labs/eideticmcp/internal/ui"
)

// newStatusCmd creates the status command: a point-in-time (or, with
// --watch, live) view of every registered project's index state.
func newStatusCmd() *cobra.Command {
	var watchFlag, noColor, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index status for every registered project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			a.HydrateStates(ctx)

			refresh := func() []ui.ProjectRow { return collectStatusRows(ctx, a) }

			if jsonOutput {
				return printStatusJSON(cmd, refresh())
			}

			if watchFlag && ui.IsTTY(os.Stdout) && !ui.DetectCI() {
				return ui.Run(refresh, noColor || ui.DetectNoColor())
			}

			printStatusPlain(cmd, refresh())
			return nil
		},
	}

	cmd.Flags().BoolVar(&watchFlag, "watch", false, "Live-refresh the status view in a terminal UI")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color in the watch view")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func collectStatusRows(ctx context.Context, a *app.App) []ui.ProjectRow {
	projects := a.Projects.ListProjects()
	rows := make([]ui.ProjectRow, 0, len(projects))

	for name, path := range projects {
		row := ui.ProjectRow{Name: name, Path: path, Status: "not indexed"}
		if state, ok := a.States.Get(path); ok {
			row.Status = string(state.Status)
			row.Progress = state.Progress
			row.TotalFiles = state.TotalFiles
			row.TotalChunks = state.TotalChunks
			if !state.LastIndexed.IsZero() {
				row.LastIndexed = state.LastIndexed.Format("2006-01-02T15:04:05Z07:00")
			} else if state.UnknownLastIndexed {
				row.LastIndexed = "unknown"
			}
		} else if a.Store.HasCollection(ctx, store.CollectionName(path)) {
			row.Status = "indexed"
			row.Progress = 100
			row.LastIndexed = "unknown"
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func printStatusPlain(cmd *cobra.Command, rows []ui.ProjectRow) {
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No registered projects")
		return
	}
	fmt.Fprintf(out, "%-20s %-12s %5s %8s %8s  %s\n", "PROJECT", "STATUS", "PCT", "FILES", "CHUNKS", "LAST INDEXED")
	for _, r := range rows {
		fmt.Fprintf(out, "%-20s %-12s %4d%% %8d %8d  %s\n", r.Name, r.Status, r.Progress, r.TotalFiles, r.TotalChunks, r.LastIndexed)
	}
}

func printStatusJSON(cmd *cobra.Command, rows []ui.ProjectRow) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
