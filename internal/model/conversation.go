package model

import (
	"encoding/json"
	"time"
)

type ThreadStatus string

const (
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusArchived ThreadStatus = "archived"
	ThreadStatusClosed   ThreadStatus = "closed"
)

// ConversationThread groups the messages exchanged between one workflow and one participant.
type ConversationThread struct {
	CreatedAt      time.Time    `json:"created_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
	TenantID       string       `json:"tenant_id"`
	WorkflowID     string       `json:"workflow_id"`
	ParticipantID  string       `json:"participant_id"`
	Status         ThreadStatus `json:"status"`
	CreatedBy      string       `json:"created_by"`
	ID             int64        `json:"id"`
}

func (t *ConversationThread) IsActive() bool {
	return t.Status == ThreadStatusActive
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutgoing Direction = "outgoing"
)

// DeliveryStatus records whether an inbound message reached its workflow.
// It is nil until decided and never changes afterwards.
type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "DeliveredToWorkflow"
	DeliveryStatusFailed    DeliveryStatus = "FailedToDeliverToWorkflow"
)

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type MessageLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

type ConversationMessage struct {
	CreatedAt            time.Time       `json:"created_at"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
	Origin               *string         `json:"origin,omitempty"`
	Status               *DeliveryStatus `json:"status,omitempty"`
	Content              MessageContent  `json:"content"`
	TenantID             string          `json:"tenant_id"`
	WorkflowID           string          `json:"workflow_id"`
	ParticipantID        string          `json:"participant_id"`
	ParticipantChannelID string          `json:"participant_channel_id"`
	Direction            Direction       `json:"direction"`
	CreatedBy            string          `json:"created_by"`
	Logs                 []MessageLog    `json:"logs"`
	ID                   int64           `json:"id"`
	ThreadID             int64           `json:"thread_id"`
}

// AddLog appends to the message log. Logs are append-only.
func (m *ConversationMessage) AddLog(level LogLevel, msg string) {
	m.Logs = append(m.Logs, MessageLog{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   msg,
	})
}
