package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"switchboard.app/server/internal/http/dto"
	"switchboard.app/server/internal/service"
)

type WebhookHandler struct {
	webhooks service.WebhookService
}

func NewWebhookHandler(webhooks service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

func (h *WebhookHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	webhook, err := h.webhooks.Create(ctx, req.ToParams())
	if err != nil {
		respondError(c, err, "create webhook")
		return
	}

	c.JSON(http.StatusCreated, dto.CreatedWebhookResponse{
		WebhookResponse: dto.ToWebhookResponse(webhook),
		Secret:          webhook.Secret,
	})
}

func (h *WebhookHandler) List(c *gin.Context) {
	workflowID := c.Query("workflowId")
	if workflowID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workflowId is required"})
		return
	}

	webhooks, err := h.webhooks.List(c.Request.Context(), workflowID)
	if err != nil {
		respondError(c, err, "list webhooks")
		return
	}
	c.JSON(http.StatusOK, dto.ToWebhookResponses(webhooks))
}

func (h *WebhookHandler) Delete(c *gin.Context) {
	webhookID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.webhooks.Delete(c.Request.Context(), webhookID); err != nil {
		respondError(c, err, "delete webhook")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WebhookHandler) Trigger(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TriggerWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payload any
	if len(req.Payload) > 0 {
		payload = req.Payload
	}

	result, err := h.webhooks.Trigger(ctx, req.WorkflowID, req.EventType, payload, req.Manual)
	if err != nil {
		respondError(c, err, "trigger webhooks")
		return
	}

	status := http.StatusOK
	if !result.Success && len(result.Failures) > 0 {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}
