// Package health implements the health check use case for sites.
package health

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/ltuffery/Octopus/internal/boundaries/out"
	"github.com/ltuffery/Octopus/internal/domain"
)

// maxConcurrentProbes limits the number of concurrent health probes.
const maxConcurrentProbes = 10

// DefaultHost is where site ports are probed.
const DefaultHost = "127.0.0.1"

// Service implements the HealthService interface.
type Service struct {
	sites   out.SiteRepository
	drivers map[domain.SiteRuntime]out.ContainerDriver
	prober  out.HTTPProber
	host    string
	now     func() time.Time
}

// NewService creates a new health service.
func NewService(
	sites out.SiteRepository,
	drivers map[domain.SiteRuntime]out.ContainerDriver,
	prober out.HTTPProber,
	host string,
) *Service {
	if host == "" {
		host = DefaultHost
	}
	return &Service{
		sites:   sites,
		drivers: drivers,
		prober:  prober,
		host:    host,
		now:     time.Now,
	}
}

// CheckSite checks the unit and probes the site port.
func (s *Service) CheckSite(ctx context.Context, id string) (*domain.SiteHealth, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "CheckSite",
		zerowrap.FieldEntityID: id,
	})
	log := zerowrap.FromCtx(ctx)

	site, err := s.sites.Get(ctx, id)
	if err != nil {
		return nil, log.WrapErr(err, "failed to get site")
	}
	return s.check(ctx, site), nil
}

func (s *Service) check(ctx context.Context, site *domain.Site) *domain.SiteHealth {
	log := zerowrap.FromCtx(ctx)

	health := &domain.SiteHealth{
		SiteID:    site.ID,
		Name:      site.Name,
		Status:    site.Status,
		CheckedAt: s.now(),
	}

	if site.Status != domain.SiteStatusRunning {
		health.Error = fmt.Sprintf("site is %s", site.Status)
		return health
	}

	driver, ok := s.drivers[site.Runtime]
	if !ok {
		health.Error = fmt.Sprintf("no driver for runtime %s", site.Runtime)
		return health
	}
	state, err := driver.Status(ctx, site.Handle)
	if err != nil {
		health.Error = err.Error()
		log.Debug().Err(err).Msg("failed to read unit status")
		return health
	}
	health.UnitState = state
	if state != domain.UnitRunning {
		health.Error = fmt.Sprintf("unit is %s", state)
		return health
	}

	health.URL = "http://" + net.JoinHostPort(s.host, strconv.Itoa(site.Port)) + "/"
	statusCode, responseTime, err := s.prober.Probe(ctx, health.URL)
	health.ResponseTime = responseTime
	if err != nil {
		health.Error = err.Error()
		log.Debug().Err(err).Str("url", health.URL).Msg("HTTP probe failed")
		return health
	}

	health.HTTPStatus = statusCode
	health.Healthy = statusCode >= 200 && statusCode < 400

	log.Debug().
		Int("http_status", statusCode).
		Dur("response_time", responseTime).
		Bool("healthy", health.Healthy).
		Msg("health check complete")

	return health
}

// CheckAll checks every site concurrently.
func (s *Service) CheckAll(ctx context.Context) (map[string]*domain.SiteHealth, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "CheckAllSites",
	})
	log := zerowrap.FromCtx(ctx)

	sites, err := s.sites.List(ctx)
	if err != nil {
		return nil, log.WrapErr(err, "failed to list sites")
	}
	results := make(map[string]*domain.SiteHealth, len(sites))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentProbes)

	for _, site := range sites {
		wg.Add(1)
		go func(site *domain.Site) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			health := s.check(ctx, site)
			mu.Lock()
			results[site.ID] = health
			mu.Unlock()
		}(site)
	}

	wg.Wait()

	log.Debug().Int("sites_checked", len(results)).Msg("all health checks complete")
	return results, nil
}
