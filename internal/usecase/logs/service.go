// Package logs implements the log access use case.
package logs

import (
	"bufio"
	"context"
	"os"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/boundaries/out"
	"github.com/ltuffery/Octopus/internal/domain"
)

// DefaultOutputLines is used when a caller asks for a non-positive line count.
const DefaultOutputLines = 100

// SiteReader resolves the site whose output is requested.
type SiteReader interface {
	Get(ctx context.Context, id string) (*domain.Site, error)
}

// Service implements the LogService interface.
type Service struct {
	execLog out.ExecutionLog
	sites   SiteReader
	output  out.SiteOutputLocator
}

// NewService creates a new log service. output may be nil when no runtime
// output is collected.
func NewService(execLog out.ExecutionLog, sites SiteReader, output out.SiteOutputLocator) *Service {
	return &Service{
		execLog: execLog,
		sites:   sites,
		output:  output,
	}
}

// Query returns matching entries, newest first.
func (s *Service) Query(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error) {
	return s.execLog.Query(ctx, filter)
}

// Stats summarises the entries matching filter. The limit is ignored.
func (s *Service) Stats(ctx context.Context, filter domain.LogFilter) (domain.LogStats, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "LogStats",
	})
	log := zerowrap.FromCtx(ctx)

	filter.Limit = 0
	entries, err := s.execLog.Query(ctx, filter)
	if err != nil {
		return domain.LogStats{}, log.WrapErr(err, "failed to query execution log")
	}

	byLevel := lo.CountValuesBy(entries, func(e domain.LogEntry) domain.LogLevel { return e.Level })
	timed := lo.Filter(entries, func(e domain.LogEntry, _ int) bool { return e.Duration > 0 })

	stats := domain.LogStats{
		Total:    len(entries),
		Errors:   byLevel[domain.LogError],
		Warnings: byLevel[domain.LogWarning],
		Info:     byLevel[domain.LogInfo],
		Debug:    byLevel[domain.LogDebug],
	}
	if len(timed) > 0 {
		total := lo.SumBy(timed, func(e domain.LogEntry) time.Duration { return e.Duration })
		stats.AvgDuration = total / time.Duration(len(timed))
	}
	return stats, nil
}

// SiteOutput returns the last lines of a site's runtime output file.
func (s *Service) SiteOutput(ctx context.Context, siteID string, lines int) ([]string, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "SiteOutput",
		zerowrap.FieldEntityID: siteID,
		"lines":                lines,
	})
	log := zerowrap.FromCtx(ctx)

	site, err := s.sites.Get(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if s.output == nil {
		return []string{}, nil
	}
	if lines <= 0 {
		lines = DefaultOutputLines
	}

	file, err := os.Open(s.output.Path(site.Name))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, log.WrapErr(err, "failed to open site output")
	}
	defer file.Close()

	return tailLines(file, lines)
}

// tailLines reads the last n lines from a file using a ring buffer.
func tailLines(file *os.File, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	ring := make([]string, n)
	total := 0

	for scanner.Scan() {
		ring[total%n] = scanner.Text()
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if total <= n {
		return ring[:total], nil
	}
	start := total % n
	return append(ring[start:], ring[:start]...), nil
}
