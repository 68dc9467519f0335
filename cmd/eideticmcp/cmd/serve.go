package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/app"
	"github.com/eidetic-labs/eideticmcp/internal/index"
	"github.com/eidetic-labs/eideticmcp/internal/rpc"
	"github.com/eidetic-labs/eideticmcp/internal/watch"
)

// newServeCmd creates the serve command: runs the line-delimited
// JSON-RPC tool surface over stdio. The protocol requires stdout to
// carry nothing but protocol messages, so nothing is printed here
// before the server starts.
func newServeCmd() *cobra.Command {
	var watchFlag bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC tool server over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			a.HydrateStates(ctx)

			if watchFlag {
				startProjectWatchers(ctx, a)
			}

			server := rpc.New(a.Indexer, a.Searcher, a.Store, a.Projects, a.States)
			return server.Serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&watchFlag, "watch", false, "Watch every registered project and incrementally reindex on file changes")

	return cmd
}

// startProjectWatchers starts one watch.FSWatcher per registered
// project and drives an incremental (non-force) reindex off its
// debounced event batches. Watcher failures are logged, never fatal to
// the serving process.
func startProjectWatchers(ctx context.Context, a *app.App) {
	for name, tree := range a.Projects.ListProjects() {
		go watchTree(ctx, a, name, tree)
	}
}

func watchTree(ctx context.Context, a *app.App, name, tree string) {
	w := watch.NewFSWatcher(watch.DefaultOptions())

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-w.Events():
				if !ok {
					return
				}
				slog.Info("watch: reindexing after change",
					slog.String("project", name), slog.Int("changed", len(batch)))
				if _, err := a.Indexer.Index(ctx, tree, index.Options{}); err != nil {
					slog.Warn("watch: reindex failed", slog.String("project", name), slog.String("error", err.Error()))
				}
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				slog.Warn("watch: error", slog.String("project", name), slog.String("error", err.Error()))
			}
		}
	}()

	if err := w.Start(ctx, tree); err != nil && ctx.Err() == nil {
		slog.Warn("watch: failed to start", slog.String("project", name), slog.String("error", err.Error()))
	}
}
