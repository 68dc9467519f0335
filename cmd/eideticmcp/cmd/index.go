package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/index"
	"github.com/eidetic-labs/eideticmcp/internal/lock"
	"github.com/eidetic-labs/eideticmcp/internal/output"
)

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	var path, project string
	var force, register bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index (or re-index) a source tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				path = args[0]
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			fl := lock.New(a.Config.DataDir)
			acquired, err := fl.TryLock()
			if err != nil {
				return err
			}
			if !acquired {
				return fmt.Errorf("another eideticmcp command is already using %s", a.Config.DataDir)
			}
			defer fl.Unlock()

			tree, err := resolveTree(a, path, project)
			if err != nil {
				return err
			}

			if register {
				if err := a.Projects.RegisterProject(tree); err != nil {
					return err
				}
			}

			w := output.New(cmd.OutOrStdout())
			result, err := a.Indexer.Index(cmd.Context(), tree, index.Options{
				Force: force,
				OnProgress: func(pct int, msg string) {
					w.Progress(pct, 100, msg)
				},
			})
			w.ProgressDone()
			if err != nil {
				return err
			}

			w.Successf("indexed %s", tree)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"files: %d  chunks: %d  added: %d  modified: %d  removed: %d  skipped: %d\n",
				result.TotalFiles, result.TotalChunks, result.Added, result.Modified, result.Removed, result.Skipped)
			if len(result.ParseFailures) > 0 {
				w.Warningf("%d file(s) failed to parse", len(result.ParseFailures))
				for _, pf := range result.ParseFailures {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", pf.Path)
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "estimated cost: $%.4f (%d tokens) in %dms\n",
				result.EstCostUSD, result.EstTokens, result.DurationMs)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Absolute path to the tree to index (defaults to cwd)")
	cmd.Flags().StringVar(&project, "project", "", "Registered project name to index")
	cmd.Flags().BoolVar(&force, "force", false, "Drop and fully re-index, ignoring the prior snapshot")
	cmd.Flags().BoolVar(&register, "register", false, "Register the tree under its basename for future --project lookups")

	cmd.AddCommand(newIndexInfoCmd())

	return cmd
}
