package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"switchboard.app/server/common/id"
	"switchboard.app/server/common/secret"
	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/platform"
	"switchboard.app/server/internal/store"
	"switchboard.app/server/internal/tenant"
)

type CreateWebhookParams struct {
	WorkflowID string
	URL        string
	EventTypes []string
}

type TriggerFailure struct {
	URL       string `json:"url"`
	Error     string `json:"error"`
	WebhookID int64  `json:"webhook_id,string"`
}

// TriggerResult aggregates one fan-out. Success needs at least one delivery.
type TriggerResult struct {
	Failures  []TriggerFailure `json:"failures"`
	Delivered int              `json:"delivered"`
	Success   bool             `json:"success"`
}

type WebhookService interface {
	// Create returns the webhook with its signing secret; the secret is not readable afterwards.
	Create(ctx context.Context, params CreateWebhookParams) (*model.Webhook, error)
	List(ctx context.Context, workflowID string) ([]model.Webhook, error)
	Delete(ctx context.Context, webhookID int64) error
	Trigger(ctx context.Context, workflowID, eventType string, payload any, manual bool) (*TriggerResult, error)
}

type webhookService struct {
	webhooks        store.WebhookStore
	client          *http.Client
	deliveryTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

func NewWebhookService(webhooks store.WebhookStore, client *http.Client, deliveryTimeout time.Duration, logger *slog.Logger) WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	if deliveryTimeout <= 0 {
		deliveryTimeout = 10 * time.Second
	}
	return &webhookService{
		webhooks:        webhooks,
		client:          client,
		deliveryTimeout: deliveryTimeout,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *webhookService) Create(ctx context.Context, params CreateWebhookParams) (*model.Webhook, error) {
	info, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.WorkflowID) == "" {
		return nil, fmt.Errorf("%w: workflow id is required", ErrBadRequest)
	}
	u, err := url.Parse(params.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be an absolute http(s) url", ErrBadRequest)
	}

	eventTypes := make([]string, 0, len(params.EventTypes))
	for _, t := range params.EventTypes {
		if t = strings.TrimSpace(t); t != "" {
			eventTypes = append(eventTypes, t)
		}
	}
	if len(eventTypes) == 0 {
		return nil, fmt.Errorf("%w: at least one event type is required", ErrBadRequest)
	}

	signingSecret, err := secret.WebhookSecret()
	if err != nil {
		return nil, fmt.Errorf("generating webhook secret: %w", err)
	}

	webhook := &model.Webhook{
		ID:         id.New(),
		TenantID:   info.TenantID,
		WorkflowID: params.WorkflowID,
		URL:        params.URL,
		EventTypes: eventTypes,
		Secret:     signingSecret,
		IsActive:   true,
		CreatedBy:  info.LoggedInUser,
	}
	if err := s.webhooks.Create(ctx, webhook); err != nil {
		return nil, fmt.Errorf("creating webhook: %w", err)
	}

	s.logger.InfoContext(ctx, "webhook created", "webhook_id", webhook.ID, "workflow_id", webhook.WorkflowID, "event_types", eventTypes)
	return webhook, nil
}

func (s *webhookService) List(ctx context.Context, workflowID string) ([]model.Webhook, error) {
	info, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if workflowID == "" {
		return nil, fmt.Errorf("%w: workflow id is required", ErrBadRequest)
	}
	webhooks, err := s.webhooks.ListByWorkflow(ctx, info.TenantID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}
	return webhooks, nil
}

func (s *webhookService) Delete(ctx context.Context, webhookID int64) error {
	info, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	if err := s.webhooks.Delete(ctx, info.TenantID, webhookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrWebhookNotFound
		}
		return fmt.Errorf("deleting webhook: %w", err)
	}
	return nil
}

// Trigger posts the event to every active webhook of the workflow that
// subscribes to eventType. Individual delivery failures are collected, not returned.
func (s *webhookService) Trigger(ctx context.Context, workflowID, eventType string, payload any, manual bool) (*TriggerResult, error) {
	info, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if workflowID == "" || eventType == "" {
		return nil, fmt.Errorf("%w: workflow id and event type are required", ErrBadRequest)
	}

	webhooks, err := s.webhooks.ListActiveForEvent(ctx, info.TenantID, workflowID, eventType)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}

	result := &TriggerResult{Failures: []TriggerFailure{}}
	body := platform.WebhookPayload{
		WorkflowID:      workflowID,
		EventType:       eventType,
		Payload:         payload,
		TriggeredAt:     s.now(),
		IsManualTrigger: manual,
	}

	for _, wh := range webhooks {
		deliveryID, err := s.deliver(ctx, wh, body)
		if err != nil {
			s.logger.WarnContext(ctx, "webhook delivery failed",
				"webhook_id", wh.ID, "delivery_id", deliveryID, "event_type", eventType, "error", err)
			result.Failures = append(result.Failures, TriggerFailure{WebhookID: wh.ID, URL: wh.URL, Error: err.Error()})
			continue
		}

		result.Delivered++
		if err := s.webhooks.MarkTriggered(ctx, wh.ID, body.TriggeredAt); err != nil {
			s.logger.WarnContext(ctx, "failed to record webhook trigger time", "webhook_id", wh.ID, "error", err)
		}
	}

	result.Success = result.Delivered > 0
	s.logger.InfoContext(ctx, "webhooks triggered",
		"workflow_id", workflowID, "event_type", eventType, "matched", len(webhooks), "delivered", result.Delivered)

	return result, nil
}

func (s *webhookService) deliver(ctx context.Context, wh model.Webhook, body platform.WebhookPayload) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()
	return platform.PostSignedWebhook(ctx, s.client, wh.URL, wh.Secret, id.Format(wh.ID), body)
}
