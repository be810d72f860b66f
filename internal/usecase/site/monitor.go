package site

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/domain"
)

const monitorDefaultInterval = 15 * time.Second

// Reconcile repairs the persisted state after a restart of the orchestrator:
// transient sites were interrupted mid-operation and running sites may have
// lost their unit.
func (s *Service) Reconcile(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "ReconcileSites",
	})
	log := zerowrap.FromCtx(ctx)

	sites, err := s.sites.List(ctx)
	if err != nil {
		return log.WrapErr(err, "failed to list sites")
	}

	transient := lo.Filter(sites, func(site *domain.Site, _ int) bool { return site.Status.IsTransient() })
	for _, site := range transient {
		s.markFailed(ctx, site.ID, func(current *domain.Site) bool {
			return current.Status.IsTransient()
		}, "operation interrupted while site was "+string(site.Status))
	}

	s.checkRunning(ctx, sites)

	log.Info().Int(zerowrap.FieldCount, len(sites)).Int("interrupted", len(transient)).Msg("sites reconciled")
	return nil
}

// checkRunning moves running sites whose unit is gone to error.
func (s *Service) checkRunning(ctx context.Context, sites []*domain.Site) {
	log := zerowrap.FromCtx(ctx)
	for _, site := range sites {
		if site.Status != domain.SiteStatusRunning {
			continue
		}
		driver, err := s.driver(site)
		if err != nil {
			continue
		}
		state, err := driver.Status(ctx, site.Handle)
		if err != nil {
			log.Debug().Err(err).Str("site", site.Name).Msg("monitor: failed to read unit status")
			continue
		}
		if state == domain.UnitRunning {
			continue
		}
		handle := site.Handle
		s.markFailed(ctx, site.ID, func(current *domain.Site) bool {
			return current.Status == domain.SiteStatusRunning && current.Handle == handle
		}, "unit "+handle+" is "+string(state))
	}
}

// markFailed moves a site to error when it is idle and still matches the check.
// Busy sites are left to the operation that holds them.
func (s *Service) markFailed(ctx context.Context, id string, still func(*domain.Site) bool, reason string) {
	log := zerowrap.FromCtx(ctx)

	release, ok := s.locks.TryAcquire(id)
	if !ok {
		return
	}
	defer release()

	site, err := s.sites.Get(ctx, id)
	if err != nil || !still(site) {
		return
	}

	previous := site.Status
	site.Status = domain.SiteStatusError
	site.LastError = reason
	site.UpdatedAt = s.now()
	if err := s.sites.Save(ctx, site); err != nil {
		log.WrapErr(err, "failed to save site")
		return
	}

	log.Warn().Str("site", site.Name).Str("reason", reason).Msg("site moved to error")
	s.appendLog(ctx, domain.LogEntry{
		Level:     domain.LogWarning,
		SubjectID: site.ID,
		Action:    "monitor",
		Kind:      domain.KindExecutionFailure,
		Message:   reason,
		Metadata:  map[string]string{"previous_status": string(previous)},
	})
	payload := domain.SiteEventPayload{
		SiteID:   site.ID,
		Name:     site.Name,
		Previous: previous,
		Status:   domain.SiteStatusError,
		Kind:     domain.KindExecutionFailure,
		Error:    reason,
	}
	s.publish(ctx, domain.EventSiteStatusChanged, payload)
	s.publish(ctx, domain.EventSiteFailed, payload)
}

// Monitor periodically checks that running sites still have a live unit.
type Monitor struct {
	service  *Service
	interval time.Duration
	stopCh   chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// StartMonitor begins the background monitoring loop.
func (s *Service) StartMonitor(ctx context.Context, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = monitorDefaultInterval
	}
	m := &Monitor{
		service:  s,
		interval: interval,
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	zerowrap.FromCtx(ctx).Info().Dur("interval", interval).Msg("site monitor started")
	go m.run(ctx)
	return m
}

// Stop signals the monitor to stop and waits for it to finish.
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stopCh) })
	<-m.stopped
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.stopped)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	sites, err := m.service.sites.List(ctx)
	if err != nil {
		zerowrap.FromCtx(ctx).Debug().Err(err).Msg("monitor: failed to list sites")
		return
	}
	m.service.checkRunning(ctx, sites)
}
