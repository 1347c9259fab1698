package model

import "time"

// Webhook is a tenant registered HTTP endpoint notified about workflow events.
type Webhook struct {
	CreatedAt       time.Time  `json:"created_at"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	TenantID        string     `json:"tenant_id"`
	WorkflowID      string     `json:"workflow_id"`
	URL             string     `json:"url"`
	Secret          string     `json:"-"`
	CreatedBy       string     `json:"created_by"`
	EventTypes      []string   `json:"event_types"`
	ID              int64      `json:"id"`
	IsActive        bool       `json:"is_active"`
}

func (w *Webhook) Subscribes(eventType string) bool {
	for _, t := range w.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}
