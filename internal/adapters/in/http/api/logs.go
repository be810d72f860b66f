package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/domain"
)

const maxLogLimit = 1000

// logFilter reads the log filter from the query string.
func logFilter(c echo.Context) (domain.LogFilter, error) {
	filter := domain.LogFilter{
		Level:     domain.LogLevel(c.QueryParam("level")),
		Source:    domain.LogSource(c.QueryParam("source")),
		SubjectID: c.QueryParam("subject"),
		Kind:      domain.ErrorKind(c.QueryParam("kind")),
		Search:    c.QueryParam("search"),
		Limit:     100,
	}

	for name, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, badRequest("%s must be an RFC 3339 timestamp", name)
		}
		*dst = t
	}

	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return filter, badRequest("limit must be a positive integer")
		}
		filter.Limit = min(n, maxLogLimit)
	}
	return filter, nil
}

func (h *Handler) queryLogs(c echo.Context) error {
	filter, err := logFilter(c)
	if err != nil {
		return err
	}
	entries, err := h.logs.Query(ctx(c, "queryLogs"), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.LogsResponse{
		Entries: lo.Map(entries, func(e domain.LogEntry, _ int) dto.LogEntry { return toLogEntry(e) }),
	})
}

func (h *Handler) logStats(c echo.Context) error {
	filter, err := logFilter(c)
	if err != nil {
		return err
	}
	stats, err := h.logs.Stats(ctx(c, "logStats"), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.LogStatsResponse{
		Total:         stats.Total,
		Errors:        stats.Errors,
		Warnings:      stats.Warnings,
		Info:          stats.Info,
		Debug:         stats.Debug,
		AvgDurationMs: stats.AvgDuration.Milliseconds(),
	})
}
