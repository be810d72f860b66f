package api

import (
	"context"
	"net/http"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/boundaries/in"
	"github.com/ltuffery/Octopus/internal/domain"
)

// Handler serves the API routes.
type Handler struct {
	sites    in.SiteService
	crons    in.CronService
	webhooks in.WebhookService
	logs     in.LogService
	health   in.HealthService
	version  string
	started  time.Time
}

// NewHandler creates the API handler.
func NewHandler(
	sites in.SiteService,
	crons in.CronService,
	webhooks in.WebhookService,
	logs in.LogService,
	health in.HealthService,
	version string,
) *Handler {
	return &Handler{
		sites:    sites,
		crons:    crons,
		webhooks: webhooks,
		logs:     logs,
		health:   health,
		version:  version,
		started:  time.Now(),
	}
}

// Register mounts every route on g.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/health", h.getHealth)
	g.GET("/health/sites", h.getSitesHealth)

	g.GET("/sites", h.listSites)
	g.POST("/sites", h.createSite)
	g.GET("/sites/:id", h.getSite)
	g.PUT("/sites/:id", h.updateSite)
	g.DELETE("/sites/:id", h.deleteSite)
	g.POST("/sites/:id/build", h.siteAction(domain.ActionBuild))
	g.POST("/sites/:id/rebuild", h.siteAction(domain.ActionRebuild))
	g.POST("/sites/:id/start", h.siteAction(domain.ActionStart))
	g.POST("/sites/:id/stop", h.siteAction(domain.ActionStop))
	g.POST("/sites/:id/restart", h.siteAction(domain.ActionRestart))
	g.GET("/sites/:id/executions", h.siteExecutions)
	g.GET("/sites/:id/usage", h.siteUsage)
	g.GET("/sites/:id/output", h.siteOutput)
	g.GET("/sites/:id/health", h.getSiteHealth)

	g.GET("/cron", h.listCronJobs)
	g.POST("/cron", h.createCronJob)
	g.GET("/cron/next", h.previewCron)
	g.GET("/cron/:id", h.getCronJob)
	g.PUT("/cron/:id", h.updateCronJob)
	g.DELETE("/cron/:id", h.deleteCronJob)
	g.POST("/cron/:id/toggle", h.toggleCronJob)
	g.POST("/cron/:id/trigger", h.triggerCronJob)
	g.GET("/cron/:id/executions", h.cronExecutions)

	g.GET("/webhooks", h.listWebhooks)
	g.POST("/webhooks", h.createWebhook)
	g.GET("/webhooks/:id", h.getWebhook)
	g.PUT("/webhooks/:id", h.updateWebhook)
	g.DELETE("/webhooks/:id", h.deleteWebhook)

	g.GET("/logs", h.queryLogs)
	g.GET("/logs/stats", h.logStats)
}

// ctx returns the request context enriched with handler fields.
func ctx(c echo.Context, handler string) context.Context {
	return zerowrap.CtxWithFields(c.Request().Context(), map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "http",
		zerowrap.FieldHandler: handler,
	})
}

func (h *Handler) getHealth(c echo.Context) error {
	sites, err := h.sites.List(ctx(c, "getHealth"))
	if err != nil {
		return err
	}
	counts := lo.CountValuesBy(sites, func(s *domain.Site) string { return string(s.Status) })
	return c.JSON(http.StatusOK, dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Sites:   counts,
	})
}

func (h *Handler) getSitesHealth(c echo.Context) error {
	results, err := h.health.CheckAll(ctx(c, "getSitesHealth"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.SitesHealthResponse{
		Sites: lo.MapValues(results, func(v *domain.SiteHealth, _ string) dto.SiteHealth { return toSiteHealth(v) }),
	})
}

func (h *Handler) getSiteHealth(c echo.Context) error {
	result, err := h.health.CheckSite(ctx(c, "getSiteHealth"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSiteHealth(result))
}
