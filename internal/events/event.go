// Package events carries persisted conversation messages to the outbound router.
package events

import (
	"context"
	"encoding/json"
	"time"

	"switchboard.app/server/internal/model"
)

// MessageEvent announces a persisted conversation message.
type MessageEvent struct {
	CreatedAt            time.Time            `json:"created_at"`
	Metadata             json.RawMessage      `json:"metadata,omitempty"`
	Content              model.MessageContent `json:"content"`
	TenantID             string               `json:"tenant_id"`
	WorkflowID           string               `json:"workflow_id"`
	ParticipantID        string               `json:"participant_id"`
	ParticipantChannelID string               `json:"participant_channel_id"`
	Direction            model.Direction      `json:"direction"`
	Origin               string               `json:"origin,omitempty"`
	TraceID              string               `json:"trace_id,omitempty"`
	MessageID            int64                `json:"message_id"`
	ThreadID             int64                `json:"thread_id"`
}

func NewMessageEvent(msg *model.ConversationMessage) MessageEvent {
	ev := MessageEvent{
		MessageID:            msg.ID,
		ThreadID:             msg.ThreadID,
		TenantID:             msg.TenantID,
		WorkflowID:           msg.WorkflowID,
		ParticipantID:        msg.ParticipantID,
		ParticipantChannelID: msg.ParticipantChannelID,
		Direction:            msg.Direction,
		Content:              msg.Content,
		Metadata:             msg.Metadata,
		CreatedAt:            msg.CreatedAt,
	}
	if msg.Origin != nil {
		ev.Origin = *msg.Origin
	}
	return ev
}

// Delivery is one event handed to a consumer. It must be acked once handled.
type Delivery struct {
	ID    string
	Event MessageEvent
	ack   func(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, ev MessageEvent) error
	Close() error
}

// Consumer reads events in batches. Read blocks for at most the configured
// block duration and returns an empty batch when nothing arrived.
type Consumer interface {
	Read(ctx context.Context) ([]Delivery, error)
	Ack(ctx context.Context, d Delivery) error
	Close() error
}

type noopPublisher struct{}

// NoopPublisher drops every event. Used when the process runs without a bus.
func NoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, MessageEvent) error { return nil }
func (noopPublisher) Close() error                                { return nil }
