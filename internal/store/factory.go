package store

import (
	"switchboard.app/server/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) AppIntegrations() AppIntegrationStore {
	return newAppIntegrationStore(s.queries)
}

func (s *Stores) ConversationThreads() ConversationThreadStore {
	return newConversationThreadStore(s.queries)
}

func (s *Stores) ConversationMessages() ConversationMessageStore {
	return newConversationMessageStore(s.queries)
}

func (s *Stores) Webhooks() WebhookStore {
	return newWebhookStore(s.queries)
}
