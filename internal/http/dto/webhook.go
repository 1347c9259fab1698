package dto

import (
	"encoding/json"
	"time"

	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/service"
)

type CreateWebhookRequest struct {
	WorkflowID string   `json:"workflow_id" binding:"required,max=512"`
	URL        string   `json:"url" binding:"required,max=2048"`
	EventTypes []string `json:"event_types" binding:"required,min=1"`
}

func (r CreateWebhookRequest) ToParams() service.CreateWebhookParams {
	return service.CreateWebhookParams{
		WorkflowID: r.WorkflowID,
		URL:        r.URL,
		EventTypes: r.EventTypes,
	}
}

type TriggerWebhookRequest struct {
	Payload    json.RawMessage `json:"payload,omitempty"`
	WorkflowID string          `json:"workflow_id" binding:"required"`
	EventType  string          `json:"event_type" binding:"required"`
	Manual     bool            `json:"manual"`
}

type WebhookResponse struct {
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	WorkflowID      string     `json:"workflow_id"`
	URL             string     `json:"url"`
	EventTypes      []string   `json:"event_types"`
	ID              int64      `json:"id,string"`
	IsActive        bool       `json:"is_active"`
}

// CreatedWebhookResponse is returned once, on creation, and is the only
// response that carries the signing secret.
type CreatedWebhookResponse struct {
	WebhookResponse
	Secret string `json:"secret"`
}

func ToWebhookResponse(w *model.Webhook) WebhookResponse {
	return WebhookResponse{
		LastTriggeredAt: w.LastTriggeredAt,
		CreatedAt:       w.CreatedAt,
		WorkflowID:      w.WorkflowID,
		URL:             w.URL,
		EventTypes:      w.EventTypes,
		ID:              w.ID,
		IsActive:        w.IsActive,
	}
}

func ToWebhookResponses(webhooks []model.Webhook) []WebhookResponse {
	out := make([]WebhookResponse, 0, len(webhooks))
	for i := range webhooks {
		out = append(out, ToWebhookResponse(&webhooks[i]))
	}
	return out
}
