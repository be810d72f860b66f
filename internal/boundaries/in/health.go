package in

import (
	"context"

	"github.com/ltuffery/Octopus/internal/domain"
)

// HealthService checks that sites answer on their port.
type HealthService interface {
	// CheckSite checks the unit state and HTTP reachability of one site.
	CheckSite(ctx context.Context, id string) (*domain.SiteHealth, error)

	// CheckAll checks every site. Results are keyed by site id.
	CheckAll(ctx context.Context) (map[string]*domain.SiteHealth, error)
}
