package store

import (
	"context"
	"errors"
	"time"

	"switchboard.app/server/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint
var ErrConflict = errors.New("conflict")

// AppIntegrationStore defines the contract for app integration data access
type AppIntegrationStore interface {
	GetByID(ctx context.Context, id int64) (*model.AppIntegration, error)
	GetByName(ctx context.Context, tenantID, agentName, activationName, name string) (*model.AppIntegration, error)
	Create(ctx context.Context, integration *model.AppIntegration) error
	Update(ctx context.Context, integration *model.AppIntegration) error
	SetEnabled(ctx context.Context, id int64, enabled bool, updatedBy string) (*model.AppIntegration, error)
	Delete(ctx context.Context, id int64) error
	ListByTenant(ctx context.Context, tenantID string) ([]model.AppIntegration, error)
}

// ConversationThreadStore defines the contract for conversation thread data access
type ConversationThreadStore interface {
	GetByID(ctx context.Context, id int64) (*model.ConversationThread, error)
	GetByKey(ctx context.Context, tenantID, workflowID, participantID string) (*model.ConversationThread, error)
	// Create returns ErrConflict when a thread for the same key already exists.
	Create(ctx context.Context, thread *model.ConversationThread) error
	UpdateStatus(ctx context.Context, id int64, status model.ThreadStatus) (*model.ConversationThread, error)
	// Touch moves last_activity_at forward to at; it never moves it backwards.
	Touch(ctx context.Context, id int64, at time.Time) error
}

// ConversationMessageStore defines the contract for conversation message data access
type ConversationMessageStore interface {
	GetByID(ctx context.Context, id int64) (*model.ConversationMessage, error)
	Create(ctx context.Context, msg *model.ConversationMessage) error
	ListByThread(ctx context.Context, threadID int64, limit, offset int32) ([]model.ConversationMessage, error)
}

// WebhookStore defines the contract for fan-out webhook data access
type WebhookStore interface {
	Create(ctx context.Context, webhook *model.Webhook) error
	ListActiveForEvent(ctx context.Context, tenantID, workflowID, eventType string) ([]model.Webhook, error)
	ListByWorkflow(ctx context.Context, tenantID, workflowID string) ([]model.Webhook, error)
	Delete(ctx context.Context, tenantID string, id int64) error
	MarkTriggered(ctx context.Context, id int64, at time.Time) error
}
