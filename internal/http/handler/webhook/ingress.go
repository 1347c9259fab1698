// Package webhook serves the inbound endpoints that messaging platforms call.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"switchboard.app/server/common/id"
	"switchboard.app/server/common/logger"
	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/platform"
	"switchboard.app/server/internal/service"
	"switchboard.app/server/internal/store"
	"switchboard.app/server/internal/tenant"
)

const maxBodyBytes = 1 << 20

type IntegrationReader interface {
	GetByID(ctx context.Context, id int64) (*model.AppIntegration, error)
}

type PlatformResolver interface {
	Get(platformID string) (platform.Platform, error)
}

// IngressHandler authenticates platform webhook calls and hands the
// normalized message to the conversation service. It never writes itself.
type IngressHandler struct {
	integrations  IntegrationReader
	platforms     PlatformResolver
	conversations service.ConversationService
	now           func() time.Time
}

func NewIngressHandler(integrations IntegrationReader, platforms PlatformResolver, conversations service.ConversationService) *IngressHandler {
	return &IngressHandler{
		integrations:  integrations,
		platforms:     platforms,
		conversations: conversations,
		now:           time.Now,
	}
}

func (h *IngressHandler) HandleEvent(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "switchboard.webhook.ingress"})
	platformID := strings.ToLower(c.Param("platform"))

	integrationID, ok := id.Parse(c.Param("integration_id"))
	if !ok {
		notFound(c)
		return
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IntegrationID: logger.Ptr(integrationID),
		Platform:      logger.Ptr(platformID),
	})

	integration, p, err := h.resolve(ctx, platformID, integrationID)
	if err != nil {
		if errors.Is(err, errUnroutable) {
			slog.InfoContext(ctx, "webhook for unroutable integration", "reason", err)
			notFound(c)
			return
		}
		slog.ErrorContext(ctx, "failed to load integration", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{TenantID: logger.Ptr(integration.TenantID)})

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.WarnContext(ctx, "webhook body exceeds limit", "limit_bytes", tooLarge.Limit)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	req := &platform.InboundRequest{
		ReceivedAt: h.now(),
		Header:     c.Request.Header,
		Query:      c.Request.URL.Query(),
		Body:       body,
		URLSecret:  c.Param("secret"),
	}

	if err := p.Verify(integration, req); err != nil {
		slog.WarnContext(ctx, "webhook authenticity check failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if hs := p.Handshake(req); hs != nil {
		c.Data(http.StatusOK, hs.ContentType, hs.Body)
		return
	}

	msg, err := p.Normalize(ctx, integration, req)
	switch {
	case err == nil:
	case errors.Is(err, platform.ErrIgnored):
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	case errors.Is(err, platform.ErrMalformed):
		slog.WarnContext(ctx, "malformed webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	case errors.Is(err, platform.ErrUnauthorized):
		slog.WarnContext(ctx, "webhook payload rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	default:
		slog.ErrorContext(ctx, "failed to normalize webhook payload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	// The tenant always comes from the integration, never from the caller.
	ctx = tenant.WithInfo(ctx, tenant.Info{TenantID: integration.TenantID, LoggedInUser: tenant.SystemUser})

	result, err := h.conversations.ProcessInboundMessage(ctx, service.InboundMessageRequest{
		Metadata:             msg.Metadata,
		Content:              msg.Content,
		WorkflowID:           integration.WorkflowID,
		ParticipantID:        msg.ParticipantID,
		ParticipantChannelID: msg.ParticipantChannelID,
		Origin:               integration.Origin().String(),
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"status":     "accepted",
			"message_id": id.Format(result.MessageID),
			"thread_id":  id.Format(result.ThreadID),
		})
	case errors.Is(err, service.ErrBadRequest):
		slog.WarnContext(ctx, "inbound message rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrWorkflowNotFound):
		slog.WarnContext(ctx, "inbound message addressed to a missing workflow", "workflow_id", integration.WorkflowID)
		c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
	default:
		slog.ErrorContext(ctx, "failed to process inbound message", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
	}
}

var errUnroutable = errors.New("integration unknown, disabled or on another platform")

func (h *IngressHandler) resolve(ctx context.Context, platformID string, integrationID int64) (*model.AppIntegration, platform.Platform, error) {
	p, err := h.platforms.Get(platformID)
	if err != nil {
		return nil, nil, errUnroutable
	}

	integration, err := h.integrations.GetByID(ctx, integrationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, errUnroutable
		}
		return nil, nil, err
	}
	if !integration.IsEnabled || integration.PlatformID != p.ID() {
		return nil, nil, errUnroutable
	}
	return integration, p, nil
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}
