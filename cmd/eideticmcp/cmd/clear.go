package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/lock"
	"github.com/eidetic-labs/eideticmcp/internal/output"
)

// newClearCmd creates the clear command: drops a tree's collection and
// snapshot.
func newClearCmd() *cobra.Command {
	var path, project string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop the index for a source tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			if err := a.Indexer.Clear(cmd.Context(), tree); err != nil {
				return err
			}
			_ = a.Projects.Remove(tree)

			output.New(cmd.OutOrStdout()).Successf("cleared %s", tree)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Absolute path to the tree to clear (defaults to cwd)")
	cmd.Flags().StringVar(&project, "project", "", "Registered project name to clear")

	return cmd
}
