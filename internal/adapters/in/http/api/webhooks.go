package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/domain"
)

func (h *Handler) listWebhooks(c echo.Context) error {
	hooks, err := h.webhooks.List(ctx(c, "listWebhooks"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.WebhooksResponse{
		Webhooks: lo.Map(hooks, func(w *domain.Webhook, _ int) dto.Webhook { return toWebhook(w) }),
	})
}

func (h *Handler) createWebhook(c echo.Context) error {
	var req dto.WebhookRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	hook, err := h.webhooks.Create(ctx(c, "createWebhook"), webhookSpecFromRequest(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toWebhook(hook))
}

func (h *Handler) getWebhook(c echo.Context) error {
	hook, err := h.webhooks.Get(ctx(c, "getWebhook"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWebhook(hook))
}

func (h *Handler) updateWebhook(c echo.Context) error {
	var req dto.WebhookRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	hook, err := h.webhooks.Update(ctx(c, "updateWebhook"), c.Param("id"), webhookSpecFromRequest(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWebhook(hook))
}

func (h *Handler) deleteWebhook(c echo.Context) error {
	if err := h.webhooks.Delete(ctx(c, "deleteWebhook"), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
