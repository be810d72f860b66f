package in

import (
	"context"
	"time"

	"github.com/ltuffery/Octopus/internal/domain"
)

// CronService defines the contract for scheduled jobs.
type CronService interface {
	// Schedule parses the expression, stores the job and computes its next run.
	Schedule(ctx context.Context, spec domain.CronJobSpec) (*domain.CronJob, error)

	// Update replaces the job definition and recomputes its next run.
	Update(ctx context.Context, id string, spec domain.CronJobSpec) (*domain.CronJob, error)

	// Get retrieves a job with its next run.
	Get(ctx context.Context, id string) (*domain.CronJob, error)

	// List returns all jobs with their next run.
	List(ctx context.Context) ([]*domain.CronJob, error)

	// Toggle enables or disables future firings.
	Toggle(ctx context.Context, id string, enabled bool) (*domain.CronJob, error)

	// TriggerNow runs the job immediately without moving its next run.
	TriggerNow(ctx context.Context, id string) (*domain.Execution, error)

	// Delete disables and removes the job.
	Delete(ctx context.Context, id string) error

	// Preview returns the next n firing times of an expression without storing anything.
	Preview(expr string, n int) ([]time.Time, error)

	// Executions lists the recorded firings of a job, newest first.
	Executions(ctx context.Context, id string) ([]*domain.Execution, error)
}
