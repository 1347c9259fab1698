package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"switchboard.app/server/internal/http/dto"
	"switchboard.app/server/internal/service"
)

// ConversationHandler serves the agent side of conversations: workflows post
// their replies here and read thread history.
type ConversationHandler struct {
	conversations service.ConversationService
}

func NewConversationHandler(conversations service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func (h *ConversationHandler) SendOutgoing(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.OutgoingMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.conversations.ProcessOutgoingMessage(ctx, req.ToServiceRequest())
	if err != nil {
		respondError(c, err, "process outgoing message")
		return
	}

	c.JSON(http.StatusAccepted, dto.ToMessageResponse(msg))
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	threadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var q dto.ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	messages, err := h.conversations.ListMessages(c.Request.Context(), threadID, q.Page, q.PageSize)
	if err != nil {
		respondError(c, err, "list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": dto.ToMessageResponses(messages)})
}
