package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags holds daemon connection flags for client commands
type APIFlags struct {
	URL     string
	Timeout time.Duration
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	apiFlags := &APIFlags{}

	root := &cobra.Command{
		Use:   "appman",
		Short: "Local app process manager",
		Long: `Appman launches, monitors, and stops port-bound app workers
registered in a catalog, and serves an HTTP API over the same operations.

Examples:
  appman serve --config=appman.toml      # Start daemon
  appman list                            # List apps with live status
  appman start --id=3                    # Launch an app
  appman logs --id=3                     # Show the in-memory log tail
  appman import --file=config/apps.yaml  # Upsert apps from YAML`,
	}

	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&apiFlags.URL, "api-url", "", "daemon URL (default http://127.0.0.1:8090)")
	root.PersistentFlags().DurationVar(&apiFlags.Timeout, "api-timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		createServeCommand(globalFlags),
		createListCommand(apiFlags),
		createStartCommand(apiFlags),
		createStopCommand(apiFlags),
		createRestartCommand(apiFlags),
		createLogsCommand(apiFlags),
		createImportCommand(apiFlags),
	)

	return root
}
