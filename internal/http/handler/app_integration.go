package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"switchboard.app/server/internal/http/dto"
	"switchboard.app/server/internal/service"
)

type AppIntegrationHandler struct {
	integrations service.AppIntegrationService
	publicURL    string
}

func NewAppIntegrationHandler(integrations service.AppIntegrationService, publicURL string) *AppIntegrationHandler {
	return &AppIntegrationHandler{integrations: integrations, publicURL: publicURL}
}

func (h *AppIntegrationHandler) Platforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": h.integrations.Platforms()})
}

func (h *AppIntegrationHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateAppIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	integration, err := h.integrations.Create(ctx, req.ToParams())
	if err != nil {
		respondError(c, err, "create integration")
		return
	}

	c.JSON(http.StatusCreated, dto.ToAppIntegrationResponse(integration, h.publicURL))
}

func (h *AppIntegrationHandler) List(c *gin.Context) {
	integrations, err := h.integrations.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "list integrations")
		return
	}

	resp := make([]*dto.AppIntegrationResponse, 0, len(integrations))
	for i := range integrations {
		resp = append(resp, dto.ToAppIntegrationResponse(&integrations[i], h.publicURL))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AppIntegrationHandler) Get(c *gin.Context) {
	integrationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	integration, err := h.integrations.Get(c.Request.Context(), integrationID)
	if err != nil {
		respondError(c, err, "get integration")
		return
	}
	c.JSON(http.StatusOK, dto.ToAppIntegrationResponse(integration, h.publicURL))
}

func (h *AppIntegrationHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	integrationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAppIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	integration, err := h.integrations.Update(ctx, integrationID, req.ToParams())
	if err != nil {
		respondError(c, err, "update integration")
		return
	}
	c.JSON(http.StatusOK, dto.ToAppIntegrationResponse(integration, h.publicURL))
}

func (h *AppIntegrationHandler) Delete(c *gin.Context) {
	integrationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.integrations.Delete(c.Request.Context(), integrationID); err != nil {
		respondError(c, err, "delete integration")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AppIntegrationHandler) Enable(c *gin.Context)  { h.setEnabled(c, true) }
func (h *AppIntegrationHandler) Disable(c *gin.Context) { h.setEnabled(c, false) }

func (h *AppIntegrationHandler) setEnabled(c *gin.Context, enabled bool) {
	integrationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	integration, err := h.integrations.SetEnabled(c.Request.Context(), integrationID, enabled)
	if err != nil {
		respondError(c, err, "update integration")
		return
	}
	c.JSON(http.StatusOK, dto.ToAppIntegrationResponse(integration, h.publicURL))
}

func (h *AppIntegrationHandler) Test(c *gin.Context) {
	integrationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.integrations.Test(c.Request.Context(), integrationID)
	if err != nil {
		respondError(c, err, "test integration")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AppIntegrationHandler) RotateSecret(c *gin.Context) {
	integrationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	integration, err := h.integrations.RotateWebhookSecret(c.Request.Context(), integrationID)
	if err != nil {
		respondError(c, err, "rotate webhook secret")
		return
	}
	c.JSON(http.StatusOK, dto.ToAppIntegrationResponse(integration, h.publicURL))
}
