package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"switchboard.app/server/core/db/sqlc"
	"switchboard.app/server/internal/model"
)

type conversationThreadStore struct {
	queries *sqlc.Queries
}

func newConversationThreadStore(queries *sqlc.Queries) ConversationThreadStore {
	return &conversationThreadStore{queries: queries}
}

func (s *conversationThreadStore) GetByID(ctx context.Context, id int64) (*model.ConversationThread, error) {
	row, err := s.queries.GetConversationThread(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return toThreadModel(row), nil
}

func (s *conversationThreadStore) GetByKey(ctx context.Context, tenantID, workflowID, participantID string) (*model.ConversationThread, error) {
	row, err := s.queries.GetConversationThreadByKey(ctx, sqlc.GetConversationThreadByKeyParams{
		TenantID:      tenantID,
		WorkflowID:    workflowID,
		ParticipantID: participantID,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toThreadModel(row), nil
}

func (s *conversationThreadStore) Create(ctx context.Context, thread *model.ConversationThread) error {
	row, err := s.queries.CreateConversationThread(ctx, sqlc.CreateConversationThreadParams{
		ID:             thread.ID,
		TenantID:       thread.TenantID,
		WorkflowID:     thread.WorkflowID,
		ParticipantID:  thread.ParticipantID,
		Status:         string(thread.Status),
		CreatedBy:      thread.CreatedBy,
		LastActivityAt: timeToPgTimestamptz(&thread.LastActivityAt),
	})
	if err != nil {
		return mapError(err)
	}
	*thread = *toThreadModel(row)
	return nil
}

func (s *conversationThreadStore) UpdateStatus(ctx context.Context, id int64, status model.ThreadStatus) (*model.ConversationThread, error) {
	row, err := s.queries.UpdateConversationThreadStatus(ctx, sqlc.UpdateConversationThreadStatusParams{
		ID:     id,
		Status: string(status),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toThreadModel(row), nil
}

func (s *conversationThreadStore) Touch(ctx context.Context, id int64, at time.Time) error {
	return s.queries.TouchConversationThread(ctx, sqlc.TouchConversationThreadParams{
		ID:             id,
		LastActivityAt: pgtype.Timestamptz{Time: at, Valid: true},
	})
}

func toThreadModel(row sqlc.ConversationThread) *model.ConversationThread {
	return &model.ConversationThread{
		ID:             row.ID,
		TenantID:       row.TenantID,
		WorkflowID:     row.WorkflowID,
		ParticipantID:  row.ParticipantID,
		Status:         model.ThreadStatus(row.Status),
		CreatedBy:      row.CreatedBy,
		CreatedAt:      row.CreatedAt.Time,
		LastActivityAt: row.LastActivityAt.Time,
	}
}

type conversationMessageStore struct {
	queries *sqlc.Queries
}

func newConversationMessageStore(queries *sqlc.Queries) ConversationMessageStore {
	return &conversationMessageStore{queries: queries}
}

func (s *conversationMessageStore) GetByID(ctx context.Context, id int64) (*model.ConversationMessage, error) {
	row, err := s.queries.GetConversationMessage(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return toMessageModel(row)
}

func (s *conversationMessageStore) Create(ctx context.Context, msg *model.ConversationMessage) error {
	content, err := marshalJSON(msg.Content)
	if err != nil {
		return err
	}

	logs := msg.Logs
	if logs == nil {
		logs = []model.MessageLog{}
	}
	logsJSON, err := marshalJSON(logs)
	if err != nil {
		return err
	}

	var metadata []byte
	if len(msg.Metadata) > 0 {
		metadata = msg.Metadata
	}

	var status *string
	if msg.Status != nil {
		s := string(*msg.Status)
		status = &s
	}

	row, err := s.queries.CreateConversationMessage(ctx, sqlc.CreateConversationMessageParams{
		ID:                   msg.ID,
		TenantID:             msg.TenantID,
		ThreadID:             msg.ThreadID,
		WorkflowID:           msg.WorkflowID,
		ParticipantID:        msg.ParticipantID,
		ParticipantChannelID: msg.ParticipantChannelID,
		Direction:            string(msg.Direction),
		Content:              content,
		Metadata:             metadata,
		Origin:               msg.Origin,
		Status:               status,
		Logs:                 logsJSON,
		CreatedBy:            msg.CreatedBy,
		CreatedAt:            timeToPgTimestamptz(&msg.CreatedAt),
	})
	if err != nil {
		return mapError(err)
	}

	created, err := toMessageModel(row)
	if err != nil {
		return err
	}
	*msg = *created
	return nil
}

func (s *conversationMessageStore) ListByThread(ctx context.Context, threadID int64, limit, offset int32) ([]model.ConversationMessage, error) {
	rows, err := s.queries.ListConversationMessagesByThread(ctx, sqlc.ListConversationMessagesByThreadParams{
		ThreadID: threadID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}

	result := make([]model.ConversationMessage, 0, len(rows))
	for _, row := range rows {
		m, err := toMessageModel(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, nil
}

func toMessageModel(row sqlc.ConversationMessage) (*model.ConversationMessage, error) {
	m := &model.ConversationMessage{
		ID:                   row.ID,
		TenantID:             row.TenantID,
		ThreadID:             row.ThreadID,
		WorkflowID:           row.WorkflowID,
		ParticipantID:        row.ParticipantID,
		ParticipantChannelID: row.ParticipantChannelID,
		Direction:            model.Direction(row.Direction),
		Origin:               row.Origin,
		CreatedBy:            row.CreatedBy,
		CreatedAt:            row.CreatedAt.Time,
	}

	if err := json.Unmarshal(row.Content, &m.Content); err != nil {
		return nil, fmt.Errorf("decoding content of message %d: %w", row.ID, err)
	}
	if len(row.Metadata) > 0 {
		m.Metadata = json.RawMessage(row.Metadata)
	}
	if row.Status != nil {
		status := model.DeliveryStatus(*row.Status)
		m.Status = &status
	}
	if len(row.Logs) > 0 {
		if err := json.Unmarshal(row.Logs, &m.Logs); err != nil {
			return nil, fmt.Errorf("decoding logs of message %d: %w", row.ID, err)
		}
	}

	return m, nil
}
