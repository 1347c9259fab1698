package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"switchboard.app/server/common/id"
	"switchboard.app/server/internal/service"
	"switchboard.app/server/internal/tenant"
)

// respondError maps service errors onto status codes. Unknown errors are
// logged and reported as 500 without their message.
func respondError(c *gin.Context, err error, action string) {
	ctx := c.Request.Context()

	switch {
	case errors.Is(err, service.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnsupportedPlatform):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrIntegrationNotFound),
		errors.Is(err, service.ErrThreadNotFound),
		errors.Is(err, service.ErrWebhookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrIntegrationConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, tenant.ErrMissingTenant):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		slog.ErrorContext(ctx, "failed to "+action, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}

// pathID parses a snowflake id path parameter, answering 404 when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	v, ok := id.Parse(c.Param(name))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return v, true
}
