package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/adapters/in/cli/remote"
	"github.com/ltuffery/Octopus/internal/adapters/in/cli/ui/components"
)

// newSitesCmd creates the sites command group.
func newSitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sites",
		Aliases: []string{"site"},
		Short:   "Manage sites",
		Long: `Manage the sites of a running orchestrator. Sites can be referenced by id
or by name.`,
	}

	cmd.AddCommand(newSitesListCmd())
	cmd.AddCommand(newSitesGetCmd())
	for _, action := range []string{"build", "rebuild", "start", "stop", "restart"} {
		cmd.AddCommand(newSiteActionCmd(action))
	}
	cmd.AddCommand(newSitesDeleteCmd())
	cmd.AddCommand(newSitesLogsCmd())
	cmd.AddCommand(newSitesExecutionsCmd())

	return cmd
}

func newSitesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			return runSitesList(cmd.Context(), cmd, client)
		},
	}
}

func runSitesList(ctx context.Context, cmd *cobra.Command, client *remote.Client) error {
	sites, err := client.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}
	if len(sites) == 0 {
		return cliWriteLine(cmd.OutOrStdout(), cliRenderEmptyState("No sites registered"))
	}
	return cliWriteLine(cmd.OutOrStdout(), components.SiteTable(siteRows(sites)))
}

func newSitesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <site>",
		Short: "Show a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			site, err := resolveSite(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			return printSite(cmd, site)
		},
	}
}

func printSite(cmd *cobra.Command, site *dto.Site) error {
	out := cmd.OutOrStdout()
	lines := []string{
		cliRenderTitle(site.Name) + " " + components.StatusBadge(site.Status),
		cliRenderMeta("ID:", site.ID),
		cliRenderMeta("Source:", site.Source+" "+siteSource(*site)),
		cliRenderMeta("Runtime:", site.Runtime),
		cliRenderMeta("Port:", fmt.Sprintf("%d", site.Port)),
		cliRenderMeta("Framework:", orDash(site.Framework)),
		cliRenderMeta("Build:", orDash(site.BuildCommand)),
		cliRenderMeta("Start:", orDash(site.StartCommand)),
		cliRenderMeta("Domain:", orDash(site.Domain)),
		cliRenderMeta("Handle:", orDash(site.Handle)),
	}
	if site.LastError != "" {
		lines = append(lines, cliRenderError(site.LastError))
	}
	for _, line := range lines {
		if err := cliWriteLine(out, line); err != nil {
			return err
		}
	}
	return nil
}

func newSiteActionCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <site>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			return runSiteAction(cmd.Context(), cmd, client, args[0], action, isInteractive())
		},
	}
}

func runSiteAction(ctx context.Context, cmd *cobra.Command, client *remote.Client, ref, action string, interactive bool) error {
	site, err := resolveSite(ctx, client, ref)
	if err != nil {
		return err
	}

	var result *dto.Site
	err = components.RunWithSpinner(interactive, fmt.Sprintf("Running %s on %s...", action, site.Name), func() error {
		var actionErr error
		result, actionErr = client.SiteAction(ctx, site.ID, action)
		return actionErr
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, site.Name, err)
	}

	return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess(fmt.Sprintf("%s %s: %s", site.Name, action, result.Status)))
}

func newSitesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <site>",
		Aliases: []string{"rm"},
		Short:   "Delete a site that is not running",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			site, err := resolveSite(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}

			if !assumeYes && isInteractive() {
				ok, err := components.RunConfirm("Delete site "+site.Name+"?", "Its build artifacts and execution history are removed.")
				if err != nil {
					return err
				}
				if !ok {
					return cliWriteLine(cmd.OutOrStdout(), cliRenderMuted("Aborted"))
				}
			}

			if err := client.DeleteSite(cmd.Context(), site.ID); err != nil {
				return fmt.Errorf("failed to delete %s: %w", site.Name, err)
			}
			return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess("Deleted "+site.Name))
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newSitesLogsCmd() *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs <site>",
		Short: "Show the last output lines of a site's unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			site, err := resolveSite(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			output, err := client.SiteOutput(cmd.Context(), site.ID, lines)
			if err != nil {
				return err
			}
			if len(output) == 0 {
				return cliWriteLine(cmd.OutOrStdout(), cliRenderEmptyState("No output"))
			}
			return cliWriteLine(cmd.OutOrStdout(), strings.Join(output, "\n"))
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of lines")
	return cmd
}

func newSitesExecutionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "executions <site>",
		Short: "Show the recorded operations of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			site, err := resolveSite(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			execs, err := client.SiteExecutions(cmd.Context(), site.ID)
			if err != nil {
				return err
			}
			if len(execs) == 0 {
				return cliWriteLine(cmd.OutOrStdout(), cliRenderEmptyState("No executions recorded"))
			}
			return cliWriteLine(cmd.OutOrStdout(), components.ExecutionTable(executionRows(execs)))
		},
	}
}

// resolveSite finds a site by id, falling back to a name lookup.
func resolveSite(ctx context.Context, client *remote.Client, ref string) (*dto.Site, error) {
	site, err := client.GetSite(ctx, ref)
	if err == nil {
		return site, nil
	}
	if !remote.IsNotFound(err) {
		return nil, err
	}

	sites, err := client.ListSites(ctx)
	if err != nil {
		return nil, err
	}
	match, ok := lo.Find(sites, func(s dto.Site) bool { return s.Name == ref })
	if !ok {
		return nil, fmt.Errorf("site %q not found", ref)
	}
	return &match, nil
}
