package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/adapters/in/cli/remote"
	"github.com/ltuffery/Octopus/internal/adapters/in/cli/ui/components"
	"github.com/ltuffery/Octopus/internal/usecase/cron"
)

// newCronCmd creates the cron command group.
func newCronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage cron jobs",
	}

	cmd.AddCommand(newCronNextCmd())
	cmd.AddCommand(newCronListCmd())
	cmd.AddCommand(newCronTriggerCmd())
	cmd.AddCommand(newCronToggleCmd("enable", true))
	cmd.AddCommand(newCronToggleCmd("disable", false))
	cmd.AddCommand(newCronExecutionsCmd())

	return cmd
}

// newCronNextCmd previews an expression locally, no server needed.
func newCronNextCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next <expression>",
		Short: "Print the next firing times of a cron expression",
		Long: `Print the next firing times of a five-field cron expression
(minute hour day-of-month month day-of-week) or a descriptor such as @hourly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCronNext(cmd, args[0], count, time.Now())
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of firing times")
	return cmd
}

func runCronNext(cmd *cobra.Command, expr string, count int, from time.Time) error {
	if count < 1 || count > 100 {
		return fmt.Errorf("count must be between 1 and 100")
	}
	runs, err := cron.NextRuns(expr, from, count)
	if err != nil {
		return err
	}
	for _, run := range runs {
		if err := cliWriteLine(cmd.OutOrStdout(), cliRenderListItem(run.Format("Mon 2006-01-02 15:04"))); err != nil {
			return err
		}
	}
	return nil
}

func newCronListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all cron jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			jobs, err := client.ListCronJobs(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list cron jobs: %w", err)
			}
			if len(jobs) == 0 {
				return cliWriteLine(cmd.OutOrStdout(), cliRenderEmptyState("No cron jobs configured"))
			}
			return cliWriteLine(cmd.OutOrStdout(), components.CronTable(cronRows(jobs)))
		},
	}
}

func newCronTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <job>",
		Short: "Run a cron job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			job, err := resolveCronJob(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}

			var exec *dto.Execution
			err = components.RunWithSpinner(isInteractive(), "Running "+job.Name+"...", func() error {
				var triggerErr error
				exec, triggerErr = client.TriggerCronJob(cmd.Context(), job.ID)
				return triggerErr
			})
			if err != nil {
				return err
			}
			return printExecution(cmd, job.Name, exec)
		},
	}
}

func printExecution(cmd *cobra.Command, name string, exec *dto.Execution) error {
	out := cmd.OutOrStdout()
	if exec.Status != "success" {
		if err := cliWriteLine(out, cliRenderError(fmt.Sprintf("%s %s: %s", name, exec.Status, exec.Error))); err != nil {
			return err
		}
	} else if err := cliWriteLine(out, cliRenderSuccess(fmt.Sprintf("%s succeeded in %s", name, formatDuration(exec.DurationMs)))); err != nil {
		return err
	}
	if exec.Output != "" {
		return cliWriteLine(out, cliRenderMuted(exec.Output))
	}
	return nil
}

func newCronToggleCmd(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <job>",
		Short: verb + " a cron job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			job, err := resolveCronJob(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			updated, err := client.ToggleCronJob(cmd.Context(), job.ID, enabled)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("%s %sd", updated.Name, verb)
			if updated.Enabled {
				msg += ", next run " + formatTime(updated.NextRun)
			}
			return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess(msg))
		},
	}
}

func newCronExecutionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "executions <job>",
		Short: "Show the recorded runs of a cron job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := GetRemoteClient()
			if err != nil {
				return err
			}
			job, err := resolveCronJob(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			execs, err := client.CronExecutions(cmd.Context(), job.ID)
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

// resolveCronJob finds a job by id or name.
func resolveCronJob(ctx context.Context, client *remote.Client, ref string) (*dto.CronJob, error) {
	jobs, err := client.ListCronJobs(ctx)
	if err != nil {
		return nil, err
	}
	job, ok := lo.Find(jobs, func(j dto.CronJob) bool { return j.ID == ref || j.Name == ref })
	if !ok {
		return nil, fmt.Errorf("cron job %q not found", ref)
	}
	return &job, nil
}
