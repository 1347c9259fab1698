package dto

import (
	"sort"
	"time"

	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/service"
)

// IntegrationSecretsRequest carries secrets on create and update. Secrets are
// write-only; responses only report which ones are set.
type IntegrationSecretsRequest struct {
	SlackSigningSecret      string `json:"slack_signing_secret,omitempty"`
	SlackBotToken           string `json:"slack_bot_token,omitempty"`
	SlackIncomingWebhookURL string `json:"slack_incoming_webhook_url,omitempty"`
	TeamsAppID              string `json:"teams_app_id,omitempty"`
	TeamsAppPassword        string `json:"teams_app_password,omitempty"`
	OutlookTenantID         string `json:"outlook_tenant_id,omitempty"`
	OutlookClientID         string `json:"outlook_client_id,omitempty"`
	OutlookClientSecret     string `json:"outlook_client_secret,omitempty"`
	GenericOutboundURL      string `json:"generic_outbound_url,omitempty"`
	MatrixAccessToken       string `json:"matrix_access_token,omitempty"`
}

func (r *IntegrationSecretsRequest) toModel() model.IntegrationSecrets {
	if r == nil {
		return model.IntegrationSecrets{}
	}
	return model.IntegrationSecrets{
		SlackSigningSecret:      r.SlackSigningSecret,
		SlackBotToken:           r.SlackBotToken,
		SlackIncomingWebhookURL: r.SlackIncomingWebhookURL,
		TeamsAppID:              r.TeamsAppID,
		TeamsAppPassword:        r.TeamsAppPassword,
		OutlookTenantID:         r.OutlookTenantID,
		OutlookClientID:         r.OutlookClientID,
		OutlookClientSecret:     r.OutlookClientSecret,
		GenericOutboundURL:      r.GenericOutboundURL,
		MatrixAccessToken:       r.MatrixAccessToken,
	}
}

type CreateAppIntegrationRequest struct {
	PlatformID     string                     `json:"platform_id" binding:"required"`
	Name           string                     `json:"name" binding:"required,min=1,max=255"`
	Description    *string                    `json:"description,omitempty" binding:"omitempty,max=1024"`
	AgentName      string                     `json:"agent_name" binding:"required,min=1,max=255"`
	ActivationName string                     `json:"activation_name" binding:"required,min=1,max=255"`
	Configuration  map[string]string          `json:"configuration,omitempty"`
	Secrets        *IntegrationSecretsRequest `json:"secrets,omitempty"`
	MappingConfig  *model.MappingConfig       `json:"mapping_config,omitempty"`
	IsEnabled      *bool                      `json:"is_enabled,omitempty"`
}

func (r CreateAppIntegrationRequest) ToParams() service.CreateAppIntegrationParams {
	return service.CreateAppIntegrationParams{
		PlatformID:     r.PlatformID,
		Name:           r.Name,
		Description:    r.Description,
		AgentName:      r.AgentName,
		ActivationName: r.ActivationName,
		Configuration:  r.Configuration,
		Secrets:        r.Secrets.toModel(),
		MappingConfig:  r.MappingConfig,
		IsEnabled:      r.IsEnabled,
	}
}

type UpdateAppIntegrationRequest struct {
	Name           *string                    `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Description    *string                    `json:"description,omitempty" binding:"omitempty,max=1024"`
	AgentName      *string                    `json:"agent_name,omitempty" binding:"omitempty,min=1,max=255"`
	ActivationName *string                    `json:"activation_name,omitempty" binding:"omitempty,min=1,max=255"`
	Configuration  map[string]string          `json:"configuration,omitempty"`
	Secrets        *IntegrationSecretsRequest `json:"secrets,omitempty"`
	MappingConfig  *model.MappingConfig       `json:"mapping_config,omitempty"`
}

func (r UpdateAppIntegrationRequest) ToParams() service.UpdateAppIntegrationParams {
	params := service.UpdateAppIntegrationParams{
		Name:           r.Name,
		Description:    r.Description,
		AgentName:      r.AgentName,
		ActivationName: r.ActivationName,
		Configuration:  r.Configuration,
		MappingConfig:  r.MappingConfig,
	}
	if r.Secrets != nil {
		s := r.Secrets.toModel()
		params.Secrets = &s
	}
	return params
}

type AppIntegrationResponse struct {
	ID             int64               `json:"id,string"`
	PlatformID     string              `json:"platform_id"`
	Name           string              `json:"name"`
	Description    *string             `json:"description,omitempty"`
	AgentName      string              `json:"agent_name"`
	ActivationName string              `json:"activation_name"`
	WorkflowID     string              `json:"workflow_id"`
	Origin         string              `json:"origin"`
	Configuration  map[string]string   `json:"configuration"`
	MappingConfig  model.MappingConfig `json:"mapping_config"`
	SecretsSet     []string            `json:"secrets_set"`
	WebhookURL     string              `json:"webhook_url"`
	IsEnabled      bool                `json:"is_enabled"`
	CreatedBy      string              `json:"created_by"`
	UpdatedBy      *string             `json:"updated_by,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ToAppIntegrationResponse renders an integration for the admin API. The
// webhook URL embeds the webhook secret and is the only place it is shown.
func ToAppIntegrationResponse(integration *model.AppIntegration, publicURL string) *AppIntegrationResponse {
	return &AppIntegrationResponse{
		ID:             integration.ID,
		PlatformID:     integration.PlatformID,
		Name:           integration.Name,
		Description:    integration.Description,
		AgentName:      integration.AgentName,
		ActivationName: integration.ActivationName,
		WorkflowID:     integration.WorkflowID,
		Origin:         integration.Origin().String(),
		Configuration:  integration.Configuration,
		MappingConfig:  integration.MappingConfig,
		SecretsSet:     secretsSet(integration.Secrets),
		WebhookURL:     publicURL + integration.WebhookPath,
		IsEnabled:      integration.IsEnabled,
		CreatedBy:      integration.CreatedBy,
		UpdatedBy:      integration.UpdatedBy,
		CreatedAt:      integration.CreatedAt,
		UpdatedAt:      integration.UpdatedAt,
	}
}

func secretsSet(s model.IntegrationSecrets) []string {
	set := []string{}
	for name, v := range map[string]string{
		"slack_signing_secret":       s.SlackSigningSecret,
		"slack_bot_token":            s.SlackBotToken,
		"slack_incoming_webhook_url": s.SlackIncomingWebhookURL,
		"teams_app_id":               s.TeamsAppID,
		"teams_app_password":         s.TeamsAppPassword,
		"outlook_tenant_id":          s.OutlookTenantID,
		"outlook_client_id":          s.OutlookClientID,
		"outlook_client_secret":      s.OutlookClientSecret,
		"generic_outbound_url":       s.GenericOutboundURL,
		"matrix_access_token":        s.MatrixAccessToken,
	} {
		if v != "" {
			set = append(set, name)
		}
	}
	sort.Strings(set)
	return set
}
