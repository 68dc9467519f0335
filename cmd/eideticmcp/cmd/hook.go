package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/hook"
	"github.com/eidetic-labs/eideticmcp/internal/lock"
	"github.com/eidetic-labs/eideticmcp/internal/logging"
	"github.com/eidetic-labs/eideticmcp/internal/snapshot"
)

// newHookCmd groups editor-lifecycle hook subcommands.
func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Editor-session lifecycle hooks",
	}
	cmd.AddCommand(newHookStopCmd())
	cmd.AddCommand(newHookReindexCmd())
	return cmd
}

// newHookStopCmd implements the shadow-index stop-hook: reads a
// StopEvent from stdin, promotes the session's shadow git index into a
// commit, diffs it, and spawns a detached targeted re-indexer for the
// changed files. Always emits "{}" on stdout regardless of outcome.
func newHookStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Run the Stop-event shadow-index hook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				fmt.Fprint(cmd.OutOrStdout(), "{}")
				return nil
			}

			var event hook.StopEvent
			if err := json.Unmarshal(data, &event); err != nil {
				fmt.Fprint(cmd.OutOrStdout(), "{}")
				return nil
			}

			_, _ = hook.Run(event, nil)
			fmt.Fprint(cmd.OutOrStdout(), "{}")
			return nil
		},
	}
}

// newHookReindexCmd is the detached subprocess spawnDetachedIndexer
// launches. It reads the manifest written by the stop-hook and hands its
// file list to the targeted reindexer, which touches exactly those files:
// delete-by-path, read, split, embed, insert, with a vanished file
// treated as a deletion.
func newHookReindexCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:    "reindex",
		Short:  "Reindex a tree after a stop-hook promotes its shadow index",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, cleanup, err := logging.Setup(logging.ReindexConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := os.ReadFile(manifestPath)
			if err != nil {
				logger.Error("read reindex manifest", "error", err)
				return err
			}

			var manifest hook.ReindexManifest
			if err := json.Unmarshal(data, &manifest); err != nil {
				logger.Error("parse reindex manifest", "error", err)
				return err
			}
			_ = os.Remove(manifestPath)

			tree, err := snapshot.NormalizePath(manifest.ProjectPath)
			if err != nil {
				logger.Error("normalize tree path", "tree", manifest.ProjectPath, "error", err)
				return err
			}

			logger.Info("reindex triggered by stop-hook",
				slog.String("tree", tree),
				slog.Int("modified_files", len(manifest.ModifiedFiles)))

			a, err := loadApp()
			if err != nil {
				logger.Error("load app", "error", err)
				return err
			}
			defer a.Close()

			fl := lock.New(a.Config.DataDir)
			acquired, err := fl.TryLock()
			if err != nil {
				logger.Error("acquire lock", "error", err)
				return err
			}
			if !acquired {
				logger.Warn("data directory busy, skipping hook-triggered reindex", "dataDir", a.Config.DataDir)
				return nil
			}
			defer fl.Unlock()

			start := time.Now()
			targeted := hook.ReindexManifest{ProjectPath: tree, ModifiedFiles: manifest.ModifiedFiles}
			if err := a.Reindexer.Reindex(cmd.Context(), targeted); err != nil {
				logger.Error("reindex failed", "tree", tree, "error", err)
				return err
			}

			logger.Info("reindex complete",
				slog.String("tree", tree),
				slog.Int("modified_files", len(manifest.ModifiedFiles)),
				slog.Int64("durationMs", time.Since(start).Milliseconds()))
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to the reindex manifest written by the stop-hook")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}
