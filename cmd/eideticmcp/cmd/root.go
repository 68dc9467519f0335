// Package cmd provides the CLI commands for eideticmcp.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/app"
	"github.com/eidetic-labs/eideticmcp/internal/logging"
	"github.com/eidetic-labs/eideticmcp/pkg/version"
)

var (
	dataDir   string
	debugMode bool
)

// NewRootCmd creates the root command for the eideticmcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "eideticmcp",
		Short:   "Local code-search engine for AI coding assistants",
		Version: version.Version,
		Long: `eideticmcp indexes a source tree into a hybrid dense+lexical
vector index and serves search, browsing, and symbol lookup over a
line-delimited JSON-RPC surface for editor assistants.`,
		PersistentPreRunE: setupLogging,

		// main formats errors via errors.FormatForCLI; cobra's own
		// printing would duplicate them.
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("eideticmcp version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.eideticmcp)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.eideticmcp/logs/")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newHookCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(*cobra.Command, []string) error {
	if !debugMode {
		return nil
	}
	logger, _, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadApp loads configuration and wires every component the command needs.
func loadApp() (*app.App, error) {
	return app.New(dataDir)
}
