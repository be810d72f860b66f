package in

import (
	"context"

	"github.com/ltuffery/Octopus/internal/domain"
)

// LogService defines the contract for reading the execution log.
type LogService interface {
	// Query returns matching entries, newest first.
	Query(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error)

	// Stats summarises matching entries.
	Stats(ctx context.Context, filter domain.LogFilter) (domain.LogStats, error)

	// SiteOutput returns the last lines written by a site's runtime unit.
	SiteOutput(ctx context.Context, siteID string, lines int) ([]string, error)
}
