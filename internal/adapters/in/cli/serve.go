package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ltuffery/Octopus/internal/adapters/in/cli/remote"
	"github.com/ltuffery/Octopus/internal/adapters/in/cli/ui/components"
	"github.com/ltuffery/Octopus/internal/app"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Octopus orchestrator",
		Long: `Start the orchestrator: restores sites, starts the cron scheduler and the
site monitor, and serves the HTTP API until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return app.Run(ctx, configPath)
}

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), cmd, client)
		},
	}
}

func runStatus(ctx context.Context, cmd *cobra.Command, client *remote.Client) error {
	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", client.BaseURL(), err)
	}

	out := cmd.OutOrStdout()
	if err := cliWriteLine(out, cliRenderTitle("Octopus "+health.Version)); err != nil {
		return err
	}
	if err := cliWriteLine(out, cliRenderMeta("API:", client.BaseURL())); err != nil {
		return err
	}
	if err := cliWriteLine(out, cliRenderMeta("Status:", "")+components.StatusIndicator(health.Status)); err != nil {
		return err
	}
	if err := cliWriteLine(out, cliRenderMeta("Uptime:", health.Uptime)); err != nil {
		return err
	}

	if len(health.Sites) == 0 {
		return cliWriteLine(out, cliRenderEmptyState("No sites registered"))
	}
	for _, status := range sortedKeys(health.Sites) {
		if err := cliWriteLine(out, cliRenderListItem(fmt.Sprintf("%s: %d", status, health.Sites[status]))); err != nil {
			return err
		}
	}
	return nil
}
