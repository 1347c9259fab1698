package service_test

import (
	"context"
	"sync"
	"time"

	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/service"
	"switchboard.app/server/internal/store"
)

type mockThreadStore struct {
	getByIDFn      func(ctx context.Context, id int64) (*model.ConversationThread, error)
	getByKeyFn     func(ctx context.Context, tenantID, workflowID, participantID string) (*model.ConversationThread, error)
	createFn       func(ctx context.Context, thread *model.ConversationThread) error
	updateStatusFn func(ctx context.Context, id int64, status model.ThreadStatus) (*model.ConversationThread, error)

	mu          sync.Mutex
	createCalls int
	touches     []time.Time
}

func (m *mockThreadStore) GetByID(ctx context.Context, id int64) (*model.ConversationThread, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockThreadStore) GetByKey(ctx context.Context, tenantID, workflowID, participantID string) (*model.ConversationThread, error) {
	if m.getByKeyFn != nil {
		return m.getByKeyFn(ctx, tenantID, workflowID, participantID)
	}
	return nil, store.ErrNotFound
}

func (m *mockThreadStore) Create(ctx context.Context, thread *model.ConversationThread) error {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, thread)
	}
	return nil
}

func (m *mockThreadStore) UpdateStatus(ctx context.Context, id int64, status model.ThreadStatus) (*model.ConversationThread, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return &model.ConversationThread{ID: id, Status: status}, nil
}

func (m *mockThreadStore) Touch(_ context.Context, _ int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touches = append(m.touches, at)
	return nil
}

// memThreadStore enforces the (tenant, workflow, participant) key like the unique index.
type memThreadStore struct {
	mu      sync.Mutex
	threads map[string]*model.ConversationThread
	creates int
}

func newMemThreadStore() *memThreadStore {
	return &memThreadStore{threads: map[string]*model.ConversationThread{}}
}

func threadKey(tenantID, workflowID, participantID string) string {
	return tenantID + "|" + workflowID + "|" + participantID
}

func (m *memThreadStore) GetByID(_ context.Context, id int64) (*model.ConversationThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.threads {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memThreadStore) GetByKey(_ context.Context, tenantID, workflowID, participantID string) (*model.ConversationThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[threadKey(tenantID, workflowID, participantID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memThreadStore) Create(_ context.Context, thread *model.ConversationThread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := threadKey(thread.TenantID, thread.WorkflowID, thread.ParticipantID)
	if _, ok := m.threads[key]; ok {
		return store.ErrConflict
	}
	cp := *thread
	m.threads[key] = &cp
	m.creates++
	return nil
}

func (m *memThreadStore) UpdateStatus(_ context.Context, id int64, status model.ThreadStatus) (*model.ConversationThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.threads {
		if t.ID == id {
			t.Status = status
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memThreadStore) Touch(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.threads {
		if t.ID == id && at.After(t.LastActivityAt) {
			t.LastActivityAt = at
		}
	}
	return nil
}

type mockMessageStore struct {
	createFn       func(ctx context.Context, msg *model.ConversationMessage) error
	listByThreadFn func(ctx context.Context, threadID int64, limit, offset int32) ([]model.ConversationMessage, error)

	mu      sync.Mutex
	created []*model.ConversationMessage
}

func (m *mockMessageStore) GetByID(_ context.Context, _ int64) (*model.ConversationMessage, error) {
	return nil, store.ErrNotFound
}

func (m *mockMessageStore) Create(ctx context.Context, msg *model.ConversationMessage) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, msg)
	return nil
}

func (m *mockMessageStore) ListByThread(ctx context.Context, threadID int64, limit, offset int32) ([]model.ConversationMessage, error) {
	if m.listByThreadFn != nil {
		return m.listByThreadFn(ctx, threadID, limit, offset)
	}
	return []model.ConversationMessage{}, nil
}

func (m *mockMessageStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

type mockStoreProvider struct {
	threads  store.ConversationThreadStore
	messages store.ConversationMessageStore
}

func (m *mockStoreProvider) ConversationThreads() store.ConversationThreadStore {
	return m.threads
}

func (m *mockStoreProvider) ConversationMessages() store.ConversationMessageStore {
	return m.messages
}

type mockTxRunner struct {
	withTxFn func(ctx context.Context, fn func(stores service.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return fn(&mockStoreProvider{})
}

type signalCall struct {
	WorkflowID string
	Signal     string
	Payload    any
}

type mockSignaler struct {
	signalFn func(ctx context.Context, workflowID, signalName string, payload any) error

	mu    sync.Mutex
	calls []signalCall
}

func (m *mockSignaler) Signal(ctx context.Context, workflowID, signalName string, payload any) error {
	m.mu.Lock()
	m.calls = append(m.calls, signalCall{WorkflowID: workflowID, Signal: signalName, Payload: payload})
	m.mu.Unlock()
	if m.signalFn != nil {
		return m.signalFn(ctx, workflowID, signalName, payload)
	}
	return nil
}

type mockPublisher struct {
	publishFn func(ctx context.Context, ev events.MessageEvent) error

	mu        sync.Mutex
	published []events.MessageEvent
}

func (m *mockPublisher) Publish(ctx context.Context, ev events.MessageEvent) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, ev); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, ev)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type mockAppIntegrationStore struct {
	getByIDFn      func(ctx context.Context, id int64) (*model.AppIntegration, error)
	getByNameFn    func(ctx context.Context, tenantID, agentName, activationName, name string) (*model.AppIntegration, error)
	createFn       func(ctx context.Context, integration *model.AppIntegration) error
	updateFn       func(ctx context.Context, integration *model.AppIntegration) error
	setEnabledFn   func(ctx context.Context, id int64, enabled bool, updatedBy string) (*model.AppIntegration, error)
	deleteFn       func(ctx context.Context, id int64) error
	listByTenantFn func(ctx context.Context, tenantID string) ([]model.AppIntegration, error)

	createCalls     int
	updateCalls     int
	setEnabledCalls int
}

func (m *mockAppIntegrationStore) GetByID(ctx context.Context, id int64) (*model.AppIntegration, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockAppIntegrationStore) GetByName(ctx context.Context, tenantID, agentName, activationName, name string) (*model.AppIntegration, error) {
	if m.getByNameFn != nil {
		return m.getByNameFn(ctx, tenantID, agentName, activationName, name)
	}
	return nil, store.ErrNotFound
}

func (m *mockAppIntegrationStore) Create(ctx context.Context, integration *model.AppIntegration) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, integration)
	}
	return nil
}

func (m *mockAppIntegrationStore) Update(ctx context.Context, integration *model.AppIntegration) error {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, integration)
	}
	return nil
}

func (m *mockAppIntegrationStore) SetEnabled(ctx context.Context, id int64, enabled bool, updatedBy string) (*model.AppIntegration, error) {
	m.setEnabledCalls++
	if m.setEnabledFn != nil {
		return m.setEnabledFn(ctx, id, enabled, updatedBy)
	}
	return &model.AppIntegration{ID: id, IsEnabled: enabled}, nil
}

func (m *mockAppIntegrationStore) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockAppIntegrationStore) ListByTenant(ctx context.Context, tenantID string) ([]model.AppIntegration, error) {
	if m.listByTenantFn != nil {
		return m.listByTenantFn(ctx, tenantID)
	}
	return []model.AppIntegration{}, nil
}

type mockWebhookStore struct {
	createFn             func(ctx context.Context, webhook *model.Webhook) error
	listActiveForEventFn func(ctx context.Context, tenantID, workflowID, eventType string) ([]model.Webhook, error)
	listByWorkflowFn     func(ctx context.Context, tenantID, workflowID string) ([]model.Webhook, error)
	deleteFn             func(ctx context.Context, tenantID string, id int64) error

	mu        sync.Mutex
	triggered []int64
}

func (m *mockWebhookStore) Create(ctx context.Context, webhook *model.Webhook) error {
	if m.createFn != nil {
		return m.createFn(ctx, webhook)
	}
	return nil
}

func (m *mockWebhookStore) ListActiveForEvent(ctx context.Context, tenantID, workflowID, eventType string) ([]model.Webhook, error) {
	if m.listActiveForEventFn != nil {
		return m.listActiveForEventFn(ctx, tenantID, workflowID, eventType)
	}
	return nil, nil
}

func (m *mockWebhookStore) ListByWorkflow(ctx context.Context, tenantID, workflowID string) ([]model.Webhook, error) {
	if m.listByWorkflowFn != nil {
		return m.listByWorkflowFn(ctx, tenantID, workflowID)
	}
	return nil, nil
}

func (m *mockWebhookStore) Delete(ctx context.Context, tenantID string, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tenantID, id)
	}
	return nil
}

func (m *mockWebhookStore) MarkTriggered(_ context.Context, id int64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered = append(m.triggered, id)
	return nil
}

func strPtr(s string) *string {
	return &s
}
