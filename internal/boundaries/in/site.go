// Package in defines input ports (interfaces) for use cases.
// These interfaces define the contract between driving adapters (HTTP, CLI, scheduler)
// and the business logic (use cases).
package in

import (
	"context"

	"github.com/ltuffery/Octopus/internal/domain"
)

// SiteService defines the contract for site lifecycle operations.
// At most one lifecycle operation runs per site; a second one fails with ConcurrentOperation.
type SiteService interface {
	// Create validates the spec and stores a pending site.
	Create(ctx context.Context, spec domain.SiteSpec) (*domain.Site, error)

	// Update replaces the spec of a site that is not running.
	Update(ctx context.Context, id string, spec domain.SiteSpec) (*domain.Site, error)

	// Get retrieves a site by id.
	Get(ctx context.Context, id string) (*domain.Site, error)

	// List returns all sites.
	List(ctx context.Context) ([]*domain.Site, error)

	// Build runs the build command then starts the site.
	Build(ctx context.Context, id string) (*domain.Site, error)

	// Rebuild stops a running site, if needed, then builds it again.
	Rebuild(ctx context.Context, id string) (*domain.Site, error)

	// Start starts a stopped site.
	Start(ctx context.Context, id string) (*domain.Site, error)

	// Stop stops a running site.
	Stop(ctx context.Context, id string) (*domain.Site, error)

	// Restart stops then starts a running site.
	Restart(ctx context.Context, id string) (*domain.Site, error)

	// Delete tears down a stopped or failed site and removes it.
	Delete(ctx context.Context, id string) error

	// Usage samples the resources of a running site.
	Usage(ctx context.Context, id string) (domain.ResourceUsage, error)

	// Executions lists the recorded operations of a site, newest first.
	Executions(ctx context.Context, id string) ([]*domain.Execution, error)

	// Reconcile repairs sites left in a transient state or whose unit died
	// while the orchestrator was not watching.
	Reconcile(ctx context.Context) error
}
