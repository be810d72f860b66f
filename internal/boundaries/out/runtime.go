// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters
// (process execution, container runtimes, storage, HTTP).
package out

import (
	"context"

	"github.com/ltuffery/Octopus/internal/domain"
)

// ContainerDriver hosts a site's runtime unit.
// Variants: a supervised local process or a container runtime instance.
type ContainerDriver interface {
	// Start launches the unit and returns an opaque handle identifying it.
	Start(ctx context.Context, spec domain.RuntimeSpec) (string, error)

	// Stop terminates the unit. Stopping an unknown handle is not an error.
	Stop(ctx context.Context, handle string) error

	// Status reports the observed state of the unit.
	Status(ctx context.Context, handle string) (domain.UnitState, error)

	// Usage samples cpu and memory of a running unit.
	Usage(ctx context.Context, handle string) (domain.ResourceUsage, error)

	// Remove tears down the unit and every resource created for it (volumes, logs).
	Remove(ctx context.Context, handle string, spec domain.RuntimeSpec) error
}

// ProcessRunner spawns and supervises a single external command.
type ProcessRunner interface {
	// Run executes cmd and waits for it. The result is returned alongside
	// Timeout and ExecutionFailure errors so callers can record the output.
	Run(ctx context.Context, cmd domain.Command) (*domain.ProcessResult, error)
}
