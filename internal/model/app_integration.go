package model

import (
	"log/slog"
	"time"
)

// ConfigKeyWorkflowID overrides the derived workflow address of an integration.
const ConfigKeyWorkflowID = "workflowId"

// AppIntegration binds an external messaging platform endpoint to one agent activation.
type AppIntegration struct {
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Description    *string            `json:"description,omitempty"`
	UpdatedBy      *string            `json:"updated_by,omitempty"`
	Configuration  map[string]string  `json:"configuration"`
	Secrets        IntegrationSecrets `json:"-"`
	MappingConfig  MappingConfig      `json:"mapping_config"`
	TenantID       string             `json:"tenant_id"`
	PlatformID     string             `json:"platform_id"`
	Name           string             `json:"name"`
	AgentName      string             `json:"agent_name"`
	ActivationName string             `json:"activation_name"`
	WorkflowID     string             `json:"workflow_id"`
	WebhookPath    string             `json:"webhook_path"`
	CreatedBy      string             `json:"created_by"`
	ID             int64              `json:"id"`
	IsEnabled      bool               `json:"is_enabled"`
}

func (a *AppIntegration) Origin() Origin {
	return NewOrigin(a.PlatformID, a.ID)
}

// IntegrationSecrets is the typed secret bag of an integration.
type IntegrationSecrets struct {
	WebhookSecret           string `json:"webhook_secret,omitempty"`
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

// LogValue keeps secret material out of logs; only presence is reported.
func (s IntegrationSecrets) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("webhook_secret", s.WebhookSecret != ""),
		slog.Bool("slack_signing_secret", s.SlackSigningSecret != ""),
		slog.Bool("slack_bot_token", s.SlackBotToken != ""),
		slog.Bool("teams_app_password", s.TeamsAppPassword != ""),
		slog.Bool("outlook_client_secret", s.OutlookClientSecret != ""),
		slog.Bool("matrix_access_token", s.MatrixAccessToken != ""),
	)
}

type MappingSource string

const (
	MappingSourceUser    MappingSource = "user"
	MappingSourceChannel MappingSource = "channel"
	MappingSourceThread  MappingSource = "thread"
	MappingSourceEmail   MappingSource = "email"
	MappingSourcePath    MappingSource = "path"
)

// MappingConfig tells the normalizer how to derive participant and scope ids
// from a platform payload. Path sources use a dotted path into the raw JSON body.
type MappingConfig struct {
	ParticipantIDSource  MappingSource `json:"participant_id_source,omitempty"`
	ParticipantIDPath    string        `json:"participant_id_path,omitempty"`
	ScopeSource          MappingSource `json:"scope_source,omitempty"`
	ScopePath            string        `json:"scope_path,omitempty"`
	DefaultParticipantID string        `json:"default_participant_id,omitempty"`
}

func (m MappingConfig) Valid() bool {
	for _, s := range []MappingSource{m.ParticipantIDSource, m.ScopeSource} {
		switch s {
		case "", MappingSourceUser, MappingSourceChannel, MappingSourceThread, MappingSourceEmail, MappingSourcePath:
		default:
			return false
		}
	}
	if m.ParticipantIDSource == MappingSourcePath && m.ParticipantIDPath == "" {
		return false
	}
	if m.ScopeSource == MappingSourcePath && m.ScopePath == "" {
		return false
	}
	return true
}
