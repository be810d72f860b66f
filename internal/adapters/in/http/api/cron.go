package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/domain"
)

const (
	defaultPreviewRuns = 5
	maxPreviewRuns     = 100
)

func (h *Handler) listCronJobs(c echo.Context) error {
	jobs, err := h.crons.List(ctx(c, "listCronJobs"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.CronJobsResponse{
		Jobs: lo.Map(jobs, func(j *domain.CronJob, _ int) dto.CronJob { return toCronJob(j) }),
	})
}

func (h *Handler) createCronJob(c echo.Context) error {
	var req dto.CronJobRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	job, err := h.crons.Schedule(ctx(c, "createCronJob"), cronSpecFromRequest(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCronJob(job))
}

func (h *Handler) getCronJob(c echo.Context) error {
	job, err := h.crons.Get(ctx(c, "getCronJob"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCronJob(job))
}

func (h *Handler) updateCronJob(c echo.Context) error {
	var req dto.CronJobRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	job, err := h.crons.Update(ctx(c, "updateCronJob"), c.Param("id"), cronSpecFromRequest(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCronJob(job))
}

func (h *Handler) deleteCronJob(c echo.Context) error {
	if err := h.crons.Delete(ctx(c, "deleteCronJob"), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) toggleCronJob(c echo.Context) error {
	var req dto.ToggleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	job, err := h.crons.Toggle(ctx(c, "toggleCronJob"), c.Param("id"), req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCronJob(job))
}

// triggerCronJob runs the job now. A firing that ran and failed is still
// answered with its Execution; only firings that never ran map to an error.
func (h *Handler) triggerCronJob(c echo.Context) error {
	exec, err := h.crons.TriggerNow(ctx(c, "triggerCronJob"), c.Param("id"))
	if exec == nil {
		return err
	}
	return c.JSON(http.StatusOK, toExecution(exec))
}

func (h *Handler) cronExecutions(c echo.Context) error {
	execs, err := h.crons.Executions(ctx(c, "cronExecutions"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toExecutions(execs))
}

func (h *Handler) previewCron(c echo.Context) error {
	expr := strings.TrimSpace(c.QueryParam("expr"))
	if expr == "" {
		return badRequest("expr is required")
	}
	n := defaultPreviewRuns
	if raw := c.QueryParam("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest("n must be a positive integer")
		}
		n = min(parsed, maxPreviewRuns)
	}

	runs, err := h.crons.Preview(expr, n)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NextRunsResponse{Expression: expr, Runs: runs})
}
