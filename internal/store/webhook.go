package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"switchboard.app/server/core/db/sqlc"
	"switchboard.app/server/internal/model"
)

type webhookStore struct {
	queries *sqlc.Queries
}

func newWebhookStore(queries *sqlc.Queries) WebhookStore {
	return &webhookStore{queries: queries}
}

func (s *webhookStore) Create(ctx context.Context, webhook *model.Webhook) error {
	row, err := s.queries.CreateWebhook(ctx, sqlc.CreateWebhookParams{
		ID:         webhook.ID,
		TenantID:   webhook.TenantID,
		WorkflowID: webhook.WorkflowID,
		Url:        webhook.URL,
		EventTypes: webhook.EventTypes,
		Secret:     webhook.Secret,
		IsActive:   webhook.IsActive,
		CreatedBy:  webhook.CreatedBy,
	})
	if err != nil {
		return mapError(err)
	}
	*webhook = *toWebhookModel(row)
	return nil
}

func (s *webhookStore) ListActiveForEvent(ctx context.Context, tenantID, workflowID, eventType string) ([]model.Webhook, error) {
	rows, err := s.queries.ListActiveWebhooksForEvent(ctx, sqlc.ListActiveWebhooksForEventParams{
		WorkflowID: workflowID,
		TenantID:   tenantID,
		EventType:  eventType,
	})
	if err != nil {
		return nil, err
	}
	return toWebhookModels(rows), nil
}

func (s *webhookStore) ListByWorkflow(ctx context.Context, tenantID, workflowID string) ([]model.Webhook, error) {
	rows, err := s.queries.ListWebhooksByWorkflow(ctx, sqlc.ListWebhooksByWorkflowParams{
		TenantID:   tenantID,
		WorkflowID: workflowID,
	})
	if err != nil {
		return nil, err
	}
	return toWebhookModels(rows), nil
}

func (s *webhookStore) Delete(ctx context.Context, tenantID string, id int64) error {
	n, err := s.queries.DeleteWebhook(ctx, sqlc.DeleteWebhookParams{ID: id, TenantID: tenantID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *webhookStore) MarkTriggered(ctx context.Context, id int64, at time.Time) error {
	return s.queries.MarkWebhookTriggered(ctx, sqlc.MarkWebhookTriggeredParams{
		ID:              id,
		LastTriggeredAt: pgtype.Timestamptz{Time: at, Valid: true},
	})
}

func toWebhookModel(row sqlc.Webhook) *model.Webhook {
	return &model.Webhook{
		ID:              row.ID,
		TenantID:        row.TenantID,
		WorkflowID:      row.WorkflowID,
		URL:             row.Url,
		EventTypes:      row.EventTypes,
		Secret:          row.Secret,
		IsActive:        row.IsActive,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt.Time,
		LastTriggeredAt: pgTimestamptzToTime(row.LastTriggeredAt),
	}
}

func toWebhookModels(rows []sqlc.Webhook) []model.Webhook {
	result := make([]model.Webhook, len(rows))
	for i, row := range rows {
		result[i] = *toWebhookModel(row)
	}
	return result
}
