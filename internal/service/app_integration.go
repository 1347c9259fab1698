package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"switchboard.app/server/common/id"
	"switchboard.app/server/common/logger"
	"switchboard.app/server/common/secret"
	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/platform"
	"switchboard.app/server/internal/store"
	"switchboard.app/server/internal/tenant"
)

type CreateAppIntegrationParams struct {
	Description    *string
	IsEnabled      *bool
	MappingConfig  *model.MappingConfig
	Configuration  map[string]string
	Secrets        model.IntegrationSecrets
	PlatformID     string
	Name           string
	AgentName      string
	ActivationName string
}

// UpdateAppIntegrationParams is a partial update. Nil fields are left alone.
// Configuration keys are merged one by one; an empty value removes the key.
// Non-empty secret fields replace the stored ones.
type UpdateAppIntegrationParams struct {
	Name           *string
	Description    *string
	AgentName      *string
	ActivationName *string
	MappingConfig  *model.MappingConfig
	Secrets        *model.IntegrationSecrets
	Configuration  map[string]string
}

type TestResult struct {
	Issues []string `json:"issues"`
	OK     bool     `json:"ok"`
}

type AppIntegrationService interface {
	Create(ctx context.Context, params CreateAppIntegrationParams) (*model.AppIntegration, error)
	Update(ctx context.Context, integrationID int64, params UpdateAppIntegrationParams) (*model.AppIntegration, error)
	SetEnabled(ctx context.Context, integrationID int64, enabled bool) (*model.AppIntegration, error)
	Delete(ctx context.Context, integrationID int64) error
	Test(ctx context.Context, integrationID int64) (*TestResult, error)
	Get(ctx context.Context, integrationID int64) (*model.AppIntegration, error)
	List(ctx context.Context) ([]model.AppIntegration, error)
	RotateWebhookSecret(ctx context.Context, integrationID int64) (*model.AppIntegration, error)
	Platforms() []platform.CatalogEntry
}

type appIntegrationService struct {
	integrations store.AppIntegrationStore
	platforms    *platform.Registry
	logger       *slog.Logger
}

func NewAppIntegrationService(integrations store.AppIntegrationStore, platforms *platform.Registry, logger *slog.Logger) AppIntegrationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &appIntegrationService{
		integrations: integrations,
		platforms:    platforms,
		logger:       logger,
	}
}

func (s *appIntegrationService) Create(ctx context.Context, params CreateAppIntegrationParams) (*model.AppIntegration, error) {
	info, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.platform(params.PlatformID)
	if err != nil {
		return nil, err
	}

	integration := &model.AppIntegration{
		ID:             id.New(),
		TenantID:       info.TenantID,
		PlatformID:     p.ID(),
		Name:           strings.TrimSpace(params.Name),
		Description:    params.Description,
		AgentName:      strings.TrimSpace(params.AgentName),
		ActivationName: strings.TrimSpace(params.ActivationName),
		Configuration:  map[string]string{},
		Secrets:        params.Secrets,
		IsEnabled:      true,
		CreatedBy:      info.LoggedInUser,
	}
	maps.Copy(integration.Configuration, params.Configuration)
	if params.MappingConfig != nil {
		integration.MappingConfig = *params.MappingConfig
	}
	if params.IsEnabled != nil {
		integration.IsEnabled = *params.IsEnabled
	}

	if err := s.prepare(p, integration); err != nil {
		return nil, err
	}

	if err := s.checkNameAvailable(ctx, integration); err != nil {
		return nil, err
	}

	webhookSecret, err := secret.WebhookSecret()
	if err != nil {
		return nil, fmt.Errorf("generating webhook secret: %w", err)
	}
	integration.Secrets.WebhookSecret = webhookSecret
	integration.WebhookPath = webhookPath(integration)

	if err := s.integrations.Create(ctx, integration); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrIntegrationConflict
		}
		return nil, fmt.Errorf("creating integration: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TenantID:      logger.Ptr(integration.TenantID),
		IntegrationID: logger.Ptr(integration.ID),
		Platform:      logger.Ptr(integration.PlatformID),
	})
	s.logger.InfoContext(ctx, "app integration created", "name", integration.Name, "workflow_id", integration.WorkflowID, "secrets", integration.Secrets)

	return integration, nil
}

func (s *appIntegrationService) Update(ctx context.Context, integrationID int64, params UpdateAppIntegrationParams) (*model.AppIntegration, error) {
	integration, err := s.Get(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	info, _ := tenant.Require(ctx)

	p, err := s.platform(integration.PlatformID)
	if err != nil {
		return nil, err
	}

	renamed := false
	if params.Name != nil {
		renamed = renamed || strings.TrimSpace(*params.Name) != integration.Name
		integration.Name = strings.TrimSpace(*params.Name)
	}
	if params.AgentName != nil {
		renamed = renamed || strings.TrimSpace(*params.AgentName) != integration.AgentName
		integration.AgentName = strings.TrimSpace(*params.AgentName)
	}
	if params.ActivationName != nil {
		renamed = renamed || strings.TrimSpace(*params.ActivationName) != integration.ActivationName
		integration.ActivationName = strings.TrimSpace(*params.ActivationName)
	}
	if params.Description != nil {
		integration.Description = params.Description
	}
	if params.MappingConfig != nil {
		integration.MappingConfig = *params.MappingConfig
	}
	if integration.Configuration == nil {
		integration.Configuration = map[string]string{}
	}
	for k, v := range params.Configuration {
		if v == "" {
			delete(integration.Configuration, k)
			continue
		}
		integration.Configuration[k] = v
	}
	if params.Secrets != nil {
		mergeSecrets(&integration.Secrets, *params.Secrets)
	}

	if err := s.prepare(p, integration); err != nil {
		return nil, err
	}
	if renamed {
		if err := s.checkNameAvailable(ctx, integration); err != nil {
			return nil, err
		}
	}

	integration.UpdatedBy = &info.LoggedInUser
	if err := s.integrations.Update(ctx, integration); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrIntegrationConflict
		}
		return nil, fmt.Errorf("updating integration: %w", err)
	}

	s.logger.InfoContext(ctx, "app integration updated", "integration_id", integration.ID, "secrets", integration.Secrets)
	return integration, nil
}

func (s *appIntegrationService) SetEnabled(ctx context.Context, integrationID int64, enabled bool) (*model.AppIntegration, error) {
	integration, err := s.Get(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if integration.IsEnabled == enabled {
		return integration, nil
	}

	info, _ := tenant.Require(ctx)
	updated, err := s.integrations.SetEnabled(ctx, integrationID, enabled, info.LoggedInUser)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIntegrationNotFound
		}
		return nil, fmt.Errorf("updating integration state: %w", err)
	}

	s.logger.InfoContext(ctx, "app integration state changed", "integration_id", integrationID, "enabled", enabled)
	return updated, nil
}

func (s *appIntegrationService) Delete(ctx context.Context, integrationID int64) error {
	if _, err := s.Get(ctx, integrationID); err != nil {
		return err
	}
	if err := s.integrations.Delete(ctx, integrationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrIntegrationNotFound
		}
		return fmt.Errorf("deleting integration: %w", err)
	}
	s.logger.InfoContext(ctx, "app integration deleted", "integration_id", integrationID)
	return nil
}

// Test checks the stored integration against its platform's static requirements.
func (s *appIntegrationService) Test(ctx context.Context, integrationID int64) (*TestResult, error) {
	integration, err := s.Get(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	p, err := s.platform(integration.PlatformID)
	if err != nil {
		return nil, err
	}

	issues := p.Test(integration)
	if integration.Secrets.WebhookSecret == "" {
		issues = append(issues, "webhook secret is missing")
	}
	if !integration.IsEnabled {
		issues = append(issues, "integration is disabled")
	}
	if issues == nil {
		issues = []string{}
	}
	return &TestResult{OK: len(issues) == 0, Issues: issues}, nil
}

// Get returns an integration of the caller's tenant. Integrations of other
// tenants are reported as absent.
func (s *appIntegrationService) Get(ctx context.Context, integrationID int64) (*model.AppIntegration, error) {
	info, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	integration, err := s.integrations.GetByID(ctx, integrationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIntegrationNotFound
		}
		return nil, fmt.Errorf("fetching integration: %w", err)
	}
	if integration.TenantID != info.TenantID {
		return nil, ErrIntegrationNotFound
	}
	return integration, nil
}

func (s *appIntegrationService) List(ctx context.Context) ([]model.AppIntegration, error) {
	info, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	integrations, err := s.integrations.ListByTenant(ctx, info.TenantID)
	if err != nil {
		return nil, fmt.Errorf("listing integrations: %w", err)
	}
	return integrations, nil
}

func (s *appIntegrationService) RotateWebhookSecret(ctx context.Context, integrationID int64) (*model.AppIntegration, error) {
	integration, err := s.Get(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	info, _ := tenant.Require(ctx)

	webhookSecret, err := secret.WebhookSecret()
	if err != nil {
		return nil, fmt.Errorf("generating webhook secret: %w", err)
	}
	integration.Secrets.WebhookSecret = webhookSecret
	integration.WebhookPath = webhookPath(integration)
	integration.UpdatedBy = &info.LoggedInUser

	if err := s.integrations.Update(ctx, integration); err != nil {
		return nil, fmt.Errorf("rotating webhook secret: %w", err)
	}

	s.logger.InfoContext(ctx, "app integration webhook secret rotated", "integration_id", integrationID)
	return integration, nil
}

func (s *appIntegrationService) Platforms() []platform.CatalogEntry {
	return s.platforms.Catalog()
}

func (s *appIntegrationService) platform(platformID string) (platform.Platform, error) {
	p, err := s.platforms.Get(strings.TrimSpace(platformID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPlatform, err)
	}
	return p, nil
}

// prepare migrates legacy secrets, derives the workflow address and runs
// platform validation on the merged integration.
func (s *appIntegrationService) prepare(p platform.Platform, integration *model.AppIntegration) error {
	if integration.Name == "" {
		return fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	if integration.AgentName == "" || integration.ActivationName == "" {
		return fmt.Errorf("%w: agent name and activation name are required", ErrBadRequest)
	}
	if !integration.MappingConfig.Valid() {
		return fmt.Errorf("%w: invalid mapping config", ErrBadRequest)
	}

	platform.MigrateSecrets(p, integration)
	integration.WorkflowID = workflowAddress(integration)

	if err := p.Validate(integration); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (s *appIntegrationService) checkNameAvailable(ctx context.Context, integration *model.AppIntegration) error {
	existing, err := s.integrations.GetByName(ctx, integration.TenantID, integration.AgentName, integration.ActivationName, integration.Name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("checking integration name: %w", err)
	case existing.ID != integration.ID:
		return ErrIntegrationConflict
	}
	return nil
}

// workflowAddress is {tenant}:{agent}:{activation} unless the configuration overrides it.
func workflowAddress(integration *model.AppIntegration) string {
	if override := strings.TrimSpace(integration.Configuration[model.ConfigKeyWorkflowID]); override != "" {
		return override
	}
	return integration.TenantID + ":" + integration.AgentName + ":" + integration.ActivationName
}

func webhookPath(integration *model.AppIntegration) string {
	return fmt.Sprintf("/api/apps/%s/events/%s/%s", integration.PlatformID, id.Format(integration.ID), integration.Secrets.WebhookSecret)
}

func mergeSecrets(dst *model.IntegrationSecrets, src model.IntegrationSecrets) {
	set := func(d *string, v string) {
		if v != "" {
			*d = v
		}
	}
	set(&dst.SlackSigningSecret, src.SlackSigningSecret)
	set(&dst.SlackBotToken, src.SlackBotToken)
	set(&dst.SlackIncomingWebhookURL, src.SlackIncomingWebhookURL)
	set(&dst.TeamsAppID, src.TeamsAppID)
	set(&dst.TeamsAppPassword, src.TeamsAppPassword)
	set(&dst.OutlookTenantID, src.OutlookTenantID)
	set(&dst.OutlookClientID, src.OutlookClientID)
	set(&dst.OutlookClientSecret, src.OutlookClientSecret)
	set(&dst.GenericOutboundURL, src.GenericOutboundURL)
	set(&dst.MatrixAccessToken, src.MatrixAccessToken)
}
