package dto

import (
	"encoding/json"
	"time"

	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/service"
)

type OutgoingMessageRequest struct {
	Metadata             json.RawMessage      `json:"metadata,omitempty"`
	Content              model.MessageContent `json:"content"`
	WorkflowID           string               `json:"workflow_id" binding:"required,max=512"`
	ParticipantID        string               `json:"participant_id" binding:"required,max=512"`
	ParticipantChannelID string               `json:"participant_channel_id" binding:"max=512"`
	Origin               string               `json:"origin,omitempty"`
}

func (r OutgoingMessageRequest) ToServiceRequest() service.OutgoingMessageRequest {
	return service.OutgoingMessageRequest{
		Metadata:             r.Metadata,
		Content:              r.Content,
		WorkflowID:           r.WorkflowID,
		ParticipantID:        r.ParticipantID,
		ParticipantChannelID: r.ParticipantChannelID,
		Origin:               r.Origin,
	}
}

type ListMessagesQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

type MessageResponse struct {
	Metadata             json.RawMessage       `json:"metadata,omitempty"`
	Origin               *string               `json:"origin,omitempty"`
	Status               *model.DeliveryStatus `json:"status,omitempty"`
	Content              model.MessageContent  `json:"content"`
	CreatedAt            time.Time             `json:"created_at"`
	WorkflowID           string                `json:"workflow_id"`
	ParticipantID        string                `json:"participant_id"`
	ParticipantChannelID string                `json:"participant_channel_id"`
	Direction            model.Direction       `json:"direction"`
	Logs                 []model.MessageLog    `json:"logs"`
	ID                   int64                 `json:"id,string"`
	ThreadID             int64                 `json:"thread_id,string"`
}

func ToMessageResponse(m *model.ConversationMessage) MessageResponse {
	logs := m.Logs
	if logs == nil {
		logs = []model.MessageLog{}
	}
	return MessageResponse{
		Metadata:             m.Metadata,
		Origin:               m.Origin,
		Status:               m.Status,
		Content:              m.Content,
		CreatedAt:            m.CreatedAt,
		WorkflowID:           m.WorkflowID,
		ParticipantID:        m.ParticipantID,
		ParticipantChannelID: m.ParticipantChannelID,
		Direction:            m.Direction,
		Logs:                 logs,
		ID:                   m.ID,
		ThreadID:             m.ThreadID,
	}
}

func ToMessageResponses(messages []model.ConversationMessage) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, ToMessageResponse(&messages[i]))
	}
	return out
}
