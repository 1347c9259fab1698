package handler_test

import (
	"context"

	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/platform"
	"switchboard.app/server/internal/service"
)

type mockAppIntegrationService struct {
	createFn     func(ctx context.Context, params service.CreateAppIntegrationParams) (*model.AppIntegration, error)
	updateFn     func(ctx context.Context, id int64, params service.UpdateAppIntegrationParams) (*model.AppIntegration, error)
	setEnabledFn func(ctx context.Context, id int64, enabled bool) (*model.AppIntegration, error)
	deleteFn     func(ctx context.Context, id int64) error
	testFn       func(ctx context.Context, id int64) (*service.TestResult, error)
	getFn        func(ctx context.Context, id int64) (*model.AppIntegration, error)
	listFn       func(ctx context.Context) ([]model.AppIntegration, error)
	rotateFn     func(ctx context.Context, id int64) (*model.AppIntegration, error)
}

func (m *mockAppIntegrationService) Create(ctx context.Context, params service.CreateAppIntegrationParams) (*model.AppIntegration, error) {
	return m.createFn(ctx, params)
}

func (m *mockAppIntegrationService) Update(ctx context.Context, id int64, params service.UpdateAppIntegrationParams) (*model.AppIntegration, error) {
	return m.updateFn(ctx, id, params)
}

func (m *mockAppIntegrationService) SetEnabled(ctx context.Context, id int64, enabled bool) (*model.AppIntegration, error) {
	return m.setEnabledFn(ctx, id, enabled)
}

func (m *mockAppIntegrationService) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

func (m *mockAppIntegrationService) Test(ctx context.Context, id int64) (*service.TestResult, error) {
	return m.testFn(ctx, id)
}

func (m *mockAppIntegrationService) Get(ctx context.Context, id int64) (*model.AppIntegration, error) {
	return m.getFn(ctx, id)
}

func (m *mockAppIntegrationService) List(ctx context.Context) ([]model.AppIntegration, error) {
	return m.listFn(ctx)
}

func (m *mockAppIntegrationService) RotateWebhookSecret(ctx context.Context, id int64) (*model.AppIntegration, error) {
	return m.rotateFn(ctx, id)
}

func (m *mockAppIntegrationService) Platforms() []platform.CatalogEntry {
	return platform.NewRegistry(platform.Options{}).Catalog()
}

type mockConversationService struct {
	outgoingFn     func(ctx context.Context, req service.OutgoingMessageRequest) (*model.ConversationMessage, error)
	listMessagesFn func(ctx context.Context, threadID int64, page, pageSize int) ([]model.ConversationMessage, error)
}

func (m *mockConversationService) ProcessInboundMessage(context.Context, service.InboundMessageRequest) (*service.InboundMessageResult, error) {
	panic("not used")
}

func (m *mockConversationService) ProcessOutgoingMessage(ctx context.Context, req service.OutgoingMessageRequest) (*model.ConversationMessage, error) {
	return m.outgoingFn(ctx, req)
}

func (m *mockConversationService) GetOrCreateThread(context.Context, string, string, string, string) (*model.ConversationThread, error) {
	panic("not used")
}

func (m *mockConversationService) GetThread(context.Context, int64) (*model.ConversationThread, error) {
	panic("not used")
}

func (m *mockConversationService) ListMessages(ctx context.Context, threadID int64, page, pageSize int) ([]model.ConversationMessage, error) {
	return m.listMessagesFn(ctx, threadID, page, pageSize)
}

type mockWebhookService struct {
	createFn  func(ctx context.Context, params service.CreateWebhookParams) (*model.Webhook, error)
	listFn    func(ctx context.Context, workflowID string) ([]model.Webhook, error)
	deleteFn  func(ctx context.Context, id int64) error
	triggerFn func(ctx context.Context, workflowID, eventType string, payload any, manual bool) (*service.TriggerResult, error)
}

func (m *mockWebhookService) Create(ctx context.Context, params service.CreateWebhookParams) (*model.Webhook, error) {
	return m.createFn(ctx, params)
}

func (m *mockWebhookService) List(ctx context.Context, workflowID string) ([]model.Webhook, error) {
	return m.listFn(ctx, workflowID)
}

func (m *mockWebhookService) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

func (m *mockWebhookService) Trigger(ctx context.Context, workflowID, eventType string, payload any, manual bool) (*service.TriggerResult, error) {
	return m.triggerFn(ctx, workflowID, eventType, payload, manual)
}
