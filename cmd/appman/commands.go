package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func createListCommand(apiFlags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List apps with live status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout)
			apps, err := client.ListApps()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tHOST\tPORT\tSTATUS\tSERVING\tENABLED")
			for _, a := range apps {
				_, _ = fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
					a["id"], a["name"], a["host"], a["port"], a["status"], a["serving"], a["enabled"])
			}
			return w.Flush()
		},
	}
}

func addIDFlag(cmd *cobra.Command, id *int64) {
	cmd.Flags().Int64Var(id, "id", 0, "app id (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
}

func createStartCommand(apiFlags *APIFlags) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch an app worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout)
			out, err := client.StartApp(id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "status=%v pid=%v port=%v\n", out["status"], out["pid"], out["port"])
			return nil
		},
	}
	addIDFlag(cmd, &id)
	return cmd
}

func createStopCommand(apiFlags *APIFlags) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop an app worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout)
			out, err := client.StopApp(id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stopped=%v still_serving=%v\n", out["stopped"], out["still_serving"])
			return nil
		},
	}
	addIDFlag(cmd, &id)
	return cmd
}

func createRestartCommand(apiFlags *APIFlags) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart an app worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout)
			out, err := client.RestartApp(id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "status=%v pid=%v port=%v\n", out["status"], out["pid"], out["port"])
			return nil
		},
	}
	addIDFlag(cmd, &id)
	return cmd
}

func createLogsCommand(apiFlags *APIFlags) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show an app's in-memory log tail",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout)
			lines, err := client.AppLogs(id)
			if err != nil {
				return err
			}
			for _, line := range lines {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	addIDFlag(cmd, &id)
	return cmd
}

func createImportCommand(apiFlags *APIFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert apps from a YAML catalog on the daemon host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			if _, err := os.Stat(file); err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s not found locally; the daemon resolves the path on its own host\n", file)
			}
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout)
			count, err := client.ImportYAML(file)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d apps\n", count)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "config/apps.yaml", "path to apps.yaml")
	return cmd
}
