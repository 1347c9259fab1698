package service

import (
	"log/slog"
	"net/http"

	"switchboard.app/server/core/config"
	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/platform"
	"switchboard.app/server/internal/store"
	"switchboard.app/server/internal/workflow"
)

type Services struct {
	stores     *store.Stores
	txRunner   TxRunner
	signaler   workflow.Signaler
	publisher  events.Publisher
	platforms  *platform.Registry
	httpClient *http.Client
	webhookCfg config.WebhookConfig
	logger     *slog.Logger
}

func NewServices(
	stores *store.Stores,
	txRunner TxRunner,
	signaler workflow.Signaler,
	publisher events.Publisher,
	platforms *platform.Registry,
	httpClient *http.Client,
	webhookCfg config.WebhookConfig,
	logger *slog.Logger,
) *Services {
	return &Services{
		stores:     stores,
		txRunner:   txRunner,
		signaler:   signaler,
		publisher:  publisher,
		platforms:  platforms,
		httpClient: httpClient,
		webhookCfg: webhookCfg,
		logger:     logger,
	}
}

func (s *Services) Conversations() ConversationService {
	return NewConversationService(
		s.stores.ConversationThreads(),
		s.stores.ConversationMessages(),
		s.txRunner,
		s.signaler,
		s.publisher,
		s.logger,
	)
}

func (s *Services) AppIntegrations() AppIntegrationService {
	return NewAppIntegrationService(s.stores.AppIntegrations(), s.platforms, s.logger)
}

func (s *Services) Webhooks() WebhookService {
	return NewWebhookService(s.stores.Webhooks(), s.httpClient, s.webhookCfg.DeliveryTimeout, s.logger)
}

// Platforms is the registry shared by ingress and the outbound router.
func (s *Services) Platforms() *platform.Registry {
	return s.platforms
}

// Integrations exposes the read side of the integration store to ingress and routing.
func (s *Services) Integrations() store.AppIntegrationStore {
	return s.stores.AppIntegrations()
}
