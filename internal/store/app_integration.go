package store

import (
	"context"
	"encoding/json"
	"fmt"

	"switchboard.app/server/core/db/sqlc"
	"switchboard.app/server/internal/model"
)

type appIntegrationStore struct {
	queries *sqlc.Queries
}

func newAppIntegrationStore(queries *sqlc.Queries) AppIntegrationStore {
	return &appIntegrationStore{queries: queries}
}

func (s *appIntegrationStore) GetByID(ctx context.Context, id int64) (*model.AppIntegration, error) {
	row, err := s.queries.GetAppIntegration(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return toAppIntegrationModel(row)
}

func (s *appIntegrationStore) GetByName(ctx context.Context, tenantID, agentName, activationName, name string) (*model.AppIntegration, error) {
	row, err := s.queries.GetAppIntegrationByName(ctx, sqlc.GetAppIntegrationByNameParams{
		TenantID:       tenantID,
		AgentName:      agentName,
		ActivationName: activationName,
		Name:           name,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toAppIntegrationModel(row)
}

func (s *appIntegrationStore) Create(ctx context.Context, integration *model.AppIntegration) error {
	cfg, secrets, mapping, err := encodeAppIntegrationColumns(integration)
	if err != nil {
		return err
	}

	row, err := s.queries.CreateAppIntegration(ctx, sqlc.CreateAppIntegrationParams{
		ID:             integration.ID,
		TenantID:       integration.TenantID,
		PlatformID:     integration.PlatformID,
		Name:           integration.Name,
		Description:    integration.Description,
		AgentName:      integration.AgentName,
		ActivationName: integration.ActivationName,
		WorkflowID:     integration.WorkflowID,
		Configuration:  cfg,
		Secrets:        secrets,
		MappingConfig:  mapping,
		WebhookPath:    integration.WebhookPath,
		IsEnabled:      integration.IsEnabled,
		CreatedBy:      integration.CreatedBy,
	})
	if err != nil {
		return mapError(err)
	}

	created, err := toAppIntegrationModel(row)
	if err != nil {
		return err
	}
	*integration = *created
	return nil
}

func (s *appIntegrationStore) Update(ctx context.Context, integration *model.AppIntegration) error {
	cfg, secrets, mapping, err := encodeAppIntegrationColumns(integration)
	if err != nil {
		return err
	}

	row, err := s.queries.UpdateAppIntegration(ctx, sqlc.UpdateAppIntegrationParams{
		ID:             integration.ID,
		Name:           integration.Name,
		Description:    integration.Description,
		AgentName:      integration.AgentName,
		ActivationName: integration.ActivationName,
		WorkflowID:     integration.WorkflowID,
		Configuration:  cfg,
		Secrets:        secrets,
		MappingConfig:  mapping,
		WebhookPath:    integration.WebhookPath,
		IsEnabled:      integration.IsEnabled,
		UpdatedBy:      integration.UpdatedBy,
	})
	if err != nil {
		return mapError(err)
	}

	updated, err := toAppIntegrationModel(row)
	if err != nil {
		return err
	}
	*integration = *updated
	return nil
}

func (s *appIntegrationStore) SetEnabled(ctx context.Context, id int64, enabled bool, updatedBy string) (*model.AppIntegration, error) {
	row, err := s.queries.SetAppIntegrationEnabled(ctx, sqlc.SetAppIntegrationEnabledParams{
		ID:        id,
		IsEnabled: enabled,
		UpdatedBy: &updatedBy,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toAppIntegrationModel(row)
}

func (s *appIntegrationStore) Delete(ctx context.Context, id int64) error {
	return s.queries.DeleteAppIntegration(ctx, id)
}

func (s *appIntegrationStore) ListByTenant(ctx context.Context, tenantID string) ([]model.AppIntegration, error) {
	rows, err := s.queries.ListAppIntegrationsByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result := make([]model.AppIntegration, 0, len(rows))
	for _, row := range rows {
		m, err := toAppIntegrationModel(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, nil
}

func encodeAppIntegrationColumns(integration *model.AppIntegration) (cfg, secrets, mapping []byte, err error) {
	configuration := integration.Configuration
	if configuration == nil {
		configuration = map[string]string{}
	}
	if cfg, err = marshalJSON(configuration); err != nil {
		return nil, nil, nil, err
	}
	if secrets, err = marshalJSON(integration.Secrets); err != nil {
		return nil, nil, nil, err
	}
	if mapping, err = marshalJSON(integration.MappingConfig); err != nil {
		return nil, nil, nil, err
	}
	return cfg, secrets, mapping, nil
}

// toAppIntegrationModel converts sqlc.AppIntegration to model.AppIntegration
func toAppIntegrationModel(row sqlc.AppIntegration) (*model.AppIntegration, error) {
	m := &model.AppIntegration{
		ID:             row.ID,
		TenantID:       row.TenantID,
		PlatformID:     row.PlatformID,
		Name:           row.Name,
		Description:    row.Description,
		AgentName:      row.AgentName,
		ActivationName: row.ActivationName,
		WorkflowID:     row.WorkflowID,
		WebhookPath:    row.WebhookPath,
		IsEnabled:      row.IsEnabled,
		CreatedBy:      row.CreatedBy,
		UpdatedBy:      row.UpdatedBy,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
		Configuration:  map[string]string{},
	}

	if len(row.Configuration) > 0 {
		if err := json.Unmarshal(row.Configuration, &m.Configuration); err != nil {
			return nil, fmt.Errorf("decoding configuration of integration %d: %w", row.ID, err)
		}
	}
	if len(row.Secrets) > 0 {
		if err := json.Unmarshal(row.Secrets, &m.Secrets); err != nil {
			return nil, fmt.Errorf("decoding secrets of integration %d: %w", row.ID, err)
		}
	}
	if len(row.MappingConfig) > 0 {
		if err := json.Unmarshal(row.MappingConfig, &m.MappingConfig); err != nil {
			return nil, fmt.Errorf("decoding mapping config of integration %d: %w", row.ID, err)
		}
	}

	return m, nil
}
