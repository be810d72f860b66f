package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/adapters/in/cli/ui/components"
	"github.com/ltuffery/Octopus/internal/adapters/in/cli/ui/styles"
)

var cliWriteLine = func(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}

func cliRenderTitle(msg string) string {
	return styles.Theme.Title.Render(msg)
}

func cliRenderMuted(msg string) string {
	return styles.Theme.Muted.Render(msg)
}

func cliRenderEmptyState(msg string) string {
	return cliRenderMuted(msg)
}

func cliRenderListItem(msg string) string {
	return styles.RenderListItem(msg)
}

func cliRenderMeta(label, value string) string {
	return styles.Theme.Bold.Render(label) + " " + styles.Theme.Muted.Render(value)
}

func cliRenderSuccess(msg string) string {
	return styles.RenderSuccess(msg)
}

func cliRenderError(msg string) string {
	return styles.RenderError(msg)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func siteSource(site dto.Site) string {
	if site.Source == "local" {
		return site.LocalPath
	}
	if site.Branch != "" {
		return site.SourceURL + "#" + site.Branch
	}
	return site.SourceURL
}

func siteRows(sites []dto.Site) [][]string {
	return lo.Map(sites, func(site dto.Site, _ int) []string {
		return []string{
			site.Name,
			components.StatusIndicator(site.Status),
			site.Runtime,
			fmt.Sprintf("%d", site.Port),
			siteSource(site),
			shortID(site.ID),
		}
	})
}

func cronTargetLabel(target dto.CronTarget) string {
	switch target.Kind {
	case "webhook":
		return "webhook " + shortID(target.WebhookID)
	case "site":
		return target.SiteAction + " " + shortID(target.SiteID)
	default:
		return "command"
	}
}

func cronRows(jobs []dto.CronJob) [][]string {
	return lo.Map(jobs, func(job dto.CronJob, _ int) []string {
		return []string{
			job.Name,
			job.Schedule,
			cronTargetLabel(job.Target),
			fmt.Sprintf("%t", job.Enabled),
			formatTime(job.NextRun),
			shortID(job.ID),
		}
	})
}

func executionRows(execs []dto.Execution) [][]string {
	return lo.Map(execs, func(exec dto.Execution, _ int) []string {
		started := exec.StartedAt
		return []string{
			formatTime(&started),
			exec.Trigger,
			components.StatusIndicator(exec.Status),
			formatDuration(exec.DurationMs),
			fmt.Sprintf("%d", exec.ExitCode),
			orDash(exec.Error),
		}
	})
}
