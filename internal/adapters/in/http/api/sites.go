package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/domain"
)

const maxOutputLines = 5000

func (h *Handler) listSites(c echo.Context) error {
	sites, err := h.sites.List(ctx(c, "listSites"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.SitesResponse{
		Sites: lo.Map(sites, func(s *domain.Site, _ int) dto.Site { return toSite(s) }),
	})
}

func (h *Handler) createSite(c echo.Context) error {
	var req dto.SiteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	site, err := h.sites.Create(ctx(c, "createSite"), siteSpecFromRequest(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSite(site))
}

func (h *Handler) getSite(c echo.Context) error {
	site, err := h.sites.Get(ctx(c, "getSite"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSite(site))
}

func (h *Handler) updateSite(c echo.Context) error {
	var req dto.SiteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	site, err := h.sites.Update(ctx(c, "updateSite"), c.Param("id"), siteSpecFromRequest(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSite(site))
}

func (h *Handler) deleteSite(c echo.Context) error {
	if err := h.sites.Delete(ctx(c, "deleteSite"), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// siteAction runs a lifecycle operation and answers once it completed.
func (h *Handler) siteAction(action domain.SiteAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqCtx := ctx(c, "siteAction")
		id := c.Param("id")

		var (
			site *domain.Site
			err  error
		)
		switch action {
		case domain.ActionBuild:
			site, err = h.sites.Build(reqCtx, id)
		case domain.ActionRebuild:
			site, err = h.sites.Rebuild(reqCtx, id)
		case domain.ActionStart:
			site, err = h.sites.Start(reqCtx, id)
		case domain.ActionStop:
			site, err = h.sites.Stop(reqCtx, id)
		case domain.ActionRestart:
			site, err = h.sites.Restart(reqCtx, id)
		default:
			return badRequest("unsupported action %q", action)
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, toSite(site))
	}
}

func (h *Handler) siteExecutions(c echo.Context) error {
	execs, err := h.sites.Executions(ctx(c, "siteExecutions"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toExecutions(execs))
}

func (h *Handler) siteUsage(c echo.Context) error {
	id := c.Param("id")
	usage, err := h.sites.Usage(ctx(c, "siteUsage"), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.UsageResponse{
		SiteID:      id,
		CPUPercent:  usage.CPUPercent,
		MemoryBytes: usage.MemoryBytes,
	})
}

func (h *Handler) siteOutput(c echo.Context) error {
	lines := 0
	if raw := c.QueryParam("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest("lines must be a non-negative integer")
		}
		lines = min(n, maxOutputLines)
	}

	id := c.Param("id")
	out, err := h.logs.SiteOutput(ctx(c, "siteOutput"), id, lines)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.SiteOutputResponse{SiteID: id, Lines: out})
}
