package webhook_test

import (
	"context"
	"sync"
	"time"

	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/service"
	"switchboard.app/server/internal/store"
)

type fakeIntegrations map[int64]*model.AppIntegration

func (f fakeIntegrations) GetByID(_ context.Context, id int64) (*model.AppIntegration, error) {
	integration, ok := f[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *integration
	return &cp, nil
}

// conversationStore is an in-memory thread and message store.
type conversationStore struct {
	mu       sync.Mutex
	threads  map[int64]*model.ConversationThread
	messages []model.ConversationMessage
}

func newConversationStore() *conversationStore {
	return &conversationStore{threads: map[int64]*model.ConversationThread{}}
}

func (s *conversationStore) ConversationThreads() store.ConversationThreadStore { return (*threadStore)(s) }
func (s *conversationStore) ConversationMessages() store.ConversationMessageStore {
	return (*messageStore)(s)
}

func (s *conversationStore) WithTx(_ context.Context, fn func(service.StoreProvider) error) error {
	return fn(s)
}

func (s *conversationStore) stored() []model.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ConversationMessage(nil), s.messages...)
}

type threadStore conversationStore

func (t *threadStore) GetByID(_ context.Context, id int64) (*model.ConversationThread, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	thread, ok := t.threads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *thread
	return &cp, nil
}

func (t *threadStore) GetByKey(_ context.Context, tenantID, workflowID, participantID string) (*model.ConversationThread, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, thread := range t.threads {
		if thread.TenantID == tenantID && thread.WorkflowID == workflowID && thread.ParticipantID == participantID {
			cp := *thread
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *threadStore) Create(_ context.Context, thread *model.ConversationThread) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := *thread
	t.threads[thread.ID] = &cp
	return nil
}

func (t *threadStore) UpdateStatus(_ context.Context, id int64, status model.ThreadStatus) (*model.ConversationThread, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	thread, ok := t.threads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	thread.Status = status
	cp := *thread
	return &cp, nil
}

func (t *threadStore) Touch(_ context.Context, id int64, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if thread, ok := t.threads[id]; ok && at.After(thread.LastActivityAt) {
		thread.LastActivityAt = at
	}
	return nil
}

type messageStore conversationStore

func (m *messageStore) GetByID(_ context.Context, id int64) (*model.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			cp := msg
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *messageStore) Create(_ context.Context, msg *model.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *messageStore) ListByThread(_ context.Context, threadID int64, _, _ int32) ([]model.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ConversationMessage
	for _, msg := range m.messages {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type signal struct {
	WorkflowID string
	Name       string
}

type fakeSignaler struct {
	mu    sync.Mutex
	calls []signal
	err   error
}

func (f *fakeSignaler) Signal(_ context.Context, workflowID, signalName string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, signal{WorkflowID: workflowID, Name: signalName})
	return f.err
}

func (f *fakeSignaler) signals() []signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]signal(nil), f.calls...)
}
