package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/output"
	"github.com/eidetic-labs/eideticmcp/internal/session"
)

// sessionsDir is where per-session directories (each holding a
// session.json) live under dataDir.
func sessionsDir(dir string) string {
	return filepath.Join(dir, "sessions")
}

// newSessionsCmd groups the session-note subsystem.
func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage named sessions and their notes",
	}

	cmd.AddCommand(newSessionsCreateCmd())
	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	cmd.AddCommand(newSessionsNoteCmd())

	return cmd
}

func newSessionsCreateCmd() *cobra.Command {
	var path, project string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a named session pointed at a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := session.ValidateSessionName(name); err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tree, err := resolveTree(a, path, project)
			if err != nil {
				return err
			}

			dir := filepath.Join(sessionsDir(a.Config.DataDir), name)
			sess := session.New(name, tree, dir)
			if err := session.SaveSession(sess); err != nil {
				return err
			}

			output.New(cmd.OutOrStdout()).Successf("created session %q for %s", name, tree)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Absolute path to the tree (defaults to cwd)")
	cmd.Flags().StringVar(&project, "project", "", "Registered project name")
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := os.ReadDir(sessionsDir(a.Config.DataDir))
			if os.IsNotExist(err) {
				entries = nil
			} else if err != nil {
				return err
			}

			var infos []*session.Info
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				dir := filepath.Join(sessionsDir(a.Config.DataDir), e.Name())
				sess, err := session.LoadSession(dir)
				if err != nil {
					continue
				}
				_, statErr := os.Stat(sess.ProjectPath)
				infos = append(infos, sess.ToInfo(statErr == nil))
			}
			sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No sessions")
				return nil
			}
			for _, info := range infos {
				valid := "valid"
				if !info.Valid {
					valid = "path missing"
				}
				fmt.Fprintf(out, "%s -> %s (%s, last used %s)\n",
					info.Name, info.ProjectPath, valid, info.LastUsed.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a session and its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Notes.Delete(cmd.Context(), name); err != nil {
				return err
			}
			if err := os.RemoveAll(filepath.Join(sessionsDir(a.Config.DataDir), name)); err != nil {
				return err
			}

			output.New(cmd.OutOrStdout()).Successf("deleted session %q", name)
			return nil
		},
	}
}

func newSessionsNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes attached to a session",
	}
	cmd.AddCommand(newSessionsNoteAddCmd())
	cmd.AddCommand(newSessionsNoteSearchCmd())
	return cmd
}

func newSessionsNoteAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <session> <title> <content>",
		Short: "Add a note to a session",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			note, err := a.Notes.Add(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}

			output.New(cmd.OutOrStdout()).Successf("added note %q to session %q", note.ID, args[0])
			return nil
		},
	}
}

func newSessionsNoteSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <session> <query>",
		Short: "Search a session's notes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			sessionName := args[0]
			q := strings.Join(args[1:], " ")

			notes, err := a.Notes.Search(cmd.Context(), sessionName, q, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(notes) == 0 {
				fmt.Fprintf(out, "No notes match %q\n", q)
				return nil
			}
			for _, n := range notes {
				fmt.Fprintf(out, "- [%s] %s: %s\n", n.ID, n.Title, n.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of notes")
	return cmd
}
