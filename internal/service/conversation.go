package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"switchboard.app/server/common/id"
	"switchboard.app/server/common/logger"
	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/store"
	"switchboard.app/server/internal/tenant"
	"switchboard.app/server/internal/workflow"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	publishTimeout  = 5 * time.Second
)

// InboundMessageRequest is a normalized platform message addressed to a workflow.
type InboundMessageRequest struct {
	Metadata             json.RawMessage
	Content              model.MessageContent
	WorkflowID           string
	ParticipantID        string
	ParticipantChannelID string
	Origin               string
}

type InboundMessageResult struct {
	MessageID int64 `json:"message_id"`
	ThreadID  int64 `json:"thread_id"`
}

// OutgoingMessageRequest is a message produced by a workflow for a participant.
type OutgoingMessageRequest struct {
	Metadata             json.RawMessage      `json:"metadata,omitempty"`
	Content              model.MessageContent `json:"content"`
	WorkflowID           string               `json:"workflow_id"`
	ParticipantID        string               `json:"participant_id"`
	ParticipantChannelID string               `json:"participant_channel_id"`
	Origin               string               `json:"origin,omitempty"`
}

type ConversationService interface {
	// ProcessInboundMessage stores exactly one message for every valid request and
	// signals the addressed workflow. When the message was stored the result is
	// returned even if err is non-nil (ErrWorkflowNotFound or a signal failure).
	ProcessInboundMessage(ctx context.Context, req InboundMessageRequest) (*InboundMessageResult, error)
	ProcessOutgoingMessage(ctx context.Context, req OutgoingMessageRequest) (*model.ConversationMessage, error)
	GetOrCreateThread(ctx context.Context, tenantID, userID, workflowID, participantID string) (*model.ConversationThread, error)
	GetThread(ctx context.Context, threadID int64) (*model.ConversationThread, error)
	ListMessages(ctx context.Context, threadID int64, page, pageSize int) ([]model.ConversationMessage, error)
}

type conversationService struct {
	threads   store.ConversationThreadStore
	messages  store.ConversationMessageStore
	txRunner  TxRunner
	signaler  workflow.Signaler
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewConversationService(
	threads store.ConversationThreadStore,
	messages store.ConversationMessageStore,
	txRunner TxRunner,
	signaler workflow.Signaler,
	publisher events.Publisher,
	logger *slog.Logger,
) ConversationService {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NoopPublisher()
	}
	return &conversationService{
		threads:   threads,
		messages:  messages,
		txRunner:  txRunner,
		signaler:  signaler,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *conversationService) ProcessInboundMessage(ctx context.Context, req InboundMessageRequest) (*InboundMessageResult, error) {
	if err := validateAddress(req.WorkflowID, req.ParticipantID, req.Content); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ParticipantChannelID) == "" {
		return nil, fmt.Errorf("%w: participant channel id is required", ErrBadRequest)
	}
	info, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TenantID:   logger.Ptr(info.TenantID),
		WorkflowID: logger.Ptr(req.WorkflowID),
		Component:  "switchboard.service.conversation",
	})

	thread, err := s.GetOrCreateThread(ctx, info.TenantID, info.LoggedInUser, req.WorkflowID, req.ParticipantID)
	if err != nil {
		return nil, err
	}

	msg := s.newMessage(info, thread, model.DirectionInbound, req.ParticipantChannelID, req.Content, req.Metadata, req.Origin)
	ctx = logger.WithLogFields(ctx, logger.LogFields{ThreadID: logger.Ptr(thread.ID), MessageID: logger.Ptr(msg.ID)})

	// The workflow is signalled before the insert so the status is written once, with the row.
	var deliveryErr error
	signalErr := s.signaler.Signal(ctx, req.WorkflowID, workflow.SignalHandleInboundMessage, s.eventFor(ctx, msg))
	switch {
	case signalErr == nil:
		msg.Status = statusPtr(model.DeliveryStatusDelivered)
		msg.AddLog(model.LogLevelInfo, "delivered to workflow "+req.WorkflowID)
	case errors.Is(signalErr, workflow.ErrNotFound):
		msg.Status = statusPtr(model.DeliveryStatusFailed)
		msg.AddLog(model.LogLevelError, "workflow "+req.WorkflowID+" not found")
		deliveryErr = fmt.Errorf("%w: %s", ErrWorkflowNotFound, req.WorkflowID)
	default:
		msg.Status = statusPtr(model.DeliveryStatusFailed)
		msg.AddLog(model.LogLevelError, "signal failed: "+signalErr.Error())
		deliveryErr = fmt.Errorf("signaling workflow: %w", signalErr)
	}

	if err := s.persist(ctx, msg); err != nil {
		return nil, err
	}

	if deliveryErr != nil {
		s.logger.WarnContext(ctx, "inbound message not delivered to workflow", "error", signalErr)
	} else {
		s.logger.InfoContext(ctx, "inbound message delivered to workflow")
	}

	s.publish(ctx, msg)

	return &InboundMessageResult{MessageID: msg.ID, ThreadID: thread.ID}, deliveryErr
}

func (s *conversationService) ProcessOutgoingMessage(ctx context.Context, req OutgoingMessageRequest) (*model.ConversationMessage, error) {
	if err := validateAddress(req.WorkflowID, req.ParticipantID, req.Content); err != nil {
		return nil, err
	}
	if req.Origin != "" {
		if _, err := model.ParseOrigin(req.Origin); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
	}
	info, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TenantID:   logger.Ptr(info.TenantID),
		WorkflowID: logger.Ptr(req.WorkflowID),
		Component:  "switchboard.service.conversation",
	})

	thread, err := s.GetOrCreateThread(ctx, info.TenantID, info.LoggedInUser, req.WorkflowID, req.ParticipantID)
	if err != nil {
		return nil, err
	}

	msg := s.newMessage(info, thread, model.DirectionOutgoing, req.ParticipantChannelID, req.Content, req.Metadata, req.Origin)
	ctx = logger.WithLogFields(ctx, logger.LogFields{ThreadID: logger.Ptr(thread.ID), MessageID: logger.Ptr(msg.ID)})

	if err := s.persist(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "outgoing message stored", "origin", req.Origin)
	s.publish(ctx, msg)

	return msg, nil
}

// GetOrCreateThread returns the thread for (tenant, workflow, participant),
// creating it or reactivating it as needed. Concurrent first messages race on
// the unique key; the loser re-reads the winner's row.
func (s *conversationService) GetOrCreateThread(ctx context.Context, tenantID, userID, workflowID, participantID string) (*model.ConversationThread, error) {
	thread, err := s.threads.GetByKey(ctx, tenantID, workflowID, participantID)
	if err == nil {
		return s.ensureActive(ctx, thread)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("fetching thread: %w", err)
	}

	now := s.now()
	thread = &model.ConversationThread{
		ID:             id.New(),
		TenantID:       tenantID,
		WorkflowID:     workflowID,
		ParticipantID:  participantID,
		Status:         model.ThreadStatusActive,
		CreatedBy:      userID,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := s.threads.Create(ctx, thread); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("creating thread: %w", err)
		}

		existing, err := s.threads.GetByKey(ctx, tenantID, workflowID, participantID)
		if err != nil {
			return nil, fmt.Errorf("fetching thread after conflict: %w", err)
		}
		s.logger.DebugContext(ctx, "thread created concurrently, using existing", "thread_id", existing.ID)
		return s.ensureActive(ctx, existing)
	}

	s.logger.InfoContext(ctx, "conversation thread created", "thread_id", thread.ID, "participant_id", participantID)
	return thread, nil
}

func (s *conversationService) ensureActive(ctx context.Context, thread *model.ConversationThread) (*model.ConversationThread, error) {
	if thread.IsActive() {
		return thread, nil
	}
	previous := thread.Status
	updated, err := s.threads.UpdateStatus(ctx, thread.ID, model.ThreadStatusActive)
	if err != nil {
		return nil, fmt.Errorf("reactivating thread: %w", err)
	}
	s.logger.InfoContext(ctx, "conversation thread reactivated", "thread_id", thread.ID, "previous_status", previous)
	return updated, nil
}

func (s *conversationService) GetThread(ctx context.Context, threadID int64) (*model.ConversationThread, error) {
	info, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("fetching thread: %w", err)
	}
	// Threads of other tenants are reported as absent.
	if thread.TenantID != info.TenantID {
		return nil, ErrThreadNotFound
	}
	return thread, nil
}

func (s *conversationService) ListMessages(ctx context.Context, threadID int64, page, pageSize int) ([]model.ConversationMessage, error) {
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	msgs, err := s.messages.ListByThread(ctx, threadID, int32(pageSize), int32((page-1)*pageSize))
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

func (s *conversationService) newMessage(info tenant.Info, thread *model.ConversationThread, dir model.Direction, channelID string, content model.MessageContent, metadata json.RawMessage, origin string) *model.ConversationMessage {
	msg := &model.ConversationMessage{
		ID:                   id.New(),
		TenantID:             info.TenantID,
		ThreadID:             thread.ID,
		WorkflowID:           thread.WorkflowID,
		ParticipantID:        thread.ParticipantID,
		ParticipantChannelID: channelID,
		Direction:            dir,
		Content:              content,
		Metadata:             metadata,
		CreatedBy:            info.LoggedInUser,
		CreatedAt:            s.now(),
		Logs:                 []model.MessageLog{},
	}
	if origin != "" {
		msg.Origin = &origin
	}
	return msg
}

// persist writes the message and advances the thread's activity in one transaction.
func (s *conversationService) persist(ctx context.Context, msg *model.ConversationMessage) error {
	return s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if err := sp.ConversationMessages().Create(ctx, msg); err != nil {
			return fmt.Errorf("creating message: %w", err)
		}
		if err := sp.ConversationThreads().Touch(ctx, msg.ThreadID, msg.CreatedAt); err != nil {
			return fmt.Errorf("updating thread activity: %w", err)
		}
		return nil
	})
}

func (s *conversationService) publish(ctx context.Context, msg *model.ConversationMessage) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, s.eventFor(ctx, msg)); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish message event", "error", err)
	}
}

func (s *conversationService) eventFor(ctx context.Context, msg *model.ConversationMessage) events.MessageEvent {
	ev := events.NewMessageEvent(msg)
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	return ev
}

func validateAddress(workflowID, participantID string, content model.MessageContent) error {
	if strings.TrimSpace(workflowID) == "" {
		return fmt.Errorf("%w: workflow id is required", ErrBadRequest)
	}
	if strings.TrimSpace(participantID) == "" {
		return fmt.Errorf("%w: participant id is required", ErrBadRequest)
	}
	if content.IsEmpty() {
		return fmt.Errorf("%w: content is required", ErrBadRequest)
	}
	return nil
}

func statusPtr(s model.DeliveryStatus) *model.DeliveryStatus {
	return &s
}
