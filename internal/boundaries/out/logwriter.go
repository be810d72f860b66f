package out

import (
	"context"

	"github.com/ltuffery/Octopus/internal/domain"
)

// ExecutionLog is the append-only record of orchestration and scheduler events.
type ExecutionLog interface {
	// Append records an entry. Entries are never modified afterwards.
	Append(ctx context.Context, entry domain.LogEntry) error

	// Query returns matching entries, newest first.
	Query(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error)

	// Close flushes and releases any file sink.
	Close() error
}

// SiteOutputLocator locates the rotated stdout/stderr file of a site's runtime unit.
type SiteOutputLocator interface {
	Path(site string) string
}
