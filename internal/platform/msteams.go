package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"switchboard.app/server/internal/model"
)

const botFrameworkScope = "https://api.botframework.com/.default"

// Service urls outside these hosts never receive a bot token.
var teamsServiceHostSuffixes = []string{".botframework.com", ".trafficmanager.net", ".teams.microsoft.com"}

type teamsConfig struct {
	ServiceURL string `json:"serviceUrl,omitempty" jsonschema:"description=Bot Framework service url used when the message metadata carries none"`
}

type MSTeams struct {
	opts   Options
	tokens *tokenCache
}

func NewMSTeams(opts Options) *MSTeams {
	opts = opts.withDefaults()
	return &MSTeams{opts: opts, tokens: newTokenCache(opts.HTTPClient)}
}

func (t *MSTeams) ID() string { return IDMSTeams }

func (t *MSTeams) Descriptor() Descriptor {
	return Descriptor{
		Name:        "Microsoft Teams",
		Description: "Bot Framework messaging endpoint replying through the conversation activities API",
		Config:      &teamsConfig{},
		Secrets:     []string{"teams_app_id", "teams_app_password"},
		InboundAuth: "url_secret",
	}
}

func (t *MSTeams) LegacySecrets() []LegacySecret {
	return []LegacySecret{
		{ConfigKey: "appId", Field: func(b *model.IntegrationSecrets) *string { return &b.TeamsAppID }},
		{ConfigKey: "appPassword", Field: func(b *model.IntegrationSecrets) *string { return &b.TeamsAppPassword }},
	}
}

func (t *MSTeams) Validate(integration *model.AppIntegration) error {
	if integration.Secrets.TeamsAppID == "" || integration.Secrets.TeamsAppPassword == "" {
		return fmt.Errorf("%w: msteams requires an app id and app password", ErrInvalidConfig)
	}
	return nil
}

func (t *MSTeams) Test(integration *model.AppIntegration) []string {
	var issues []string
	if integration.Secrets.TeamsAppID == "" {
		issues = append(issues, "app id is missing")
	}
	if integration.Secrets.TeamsAppPassword == "" {
		issues = append(issues, "app password is missing")
	}
	return issues
}

func (t *MSTeams) Verify(integration *model.AppIntegration, req *InboundRequest) error {
	return verifyURLSecret(integration, req)
}

func (t *MSTeams) Handshake(*InboundRequest) *Handshake {
	return nil
}

type teamsAccount struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	AADObjectID string `json:"aadObjectId,omitempty"`
}

type teamsActivity struct {
	Type         string       `json:"type"`
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	ServiceURL   string       `json:"serviceUrl"`
	ChannelID    string       `json:"channelId"`
	ReplyToID    string       `json:"replyToId,omitempty"`
	From         teamsAccount `json:"from"`
	Recipient    teamsAccount `json:"recipient"`
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (t *MSTeams) Normalize(_ context.Context, integration *model.AppIntegration, req *InboundRequest) (*InboundMessage, error) {
	var act teamsActivity
	if err := json.Unmarshal(req.Body, &act); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if act.Type != "message" || act.From.ID == "" || act.From.ID == act.Recipient.ID {
		return nil, ErrIgnored
	}

	var content model.MessageContent
	switch {
	case strings.TrimSpace(act.Text) != "":
		content = model.NewTextContent(strings.TrimSpace(act.Text))
	case len(act.Value) > 0:
		// Adaptive card submissions carry their data in value.
		c, err := model.ContentFromJSON(act.Value)
		if err != nil {
			return nil, ErrIgnored
		}
		content = c
	default:
		return nil, ErrIgnored
	}

	participant, scope := resolveIdentity(integration.MappingConfig, identitySources{
		model.MappingSourceUser:    act.From.ID,
		model.MappingSourceChannel: act.Conversation.ID,
		model.MappingSourceThread:  act.Conversation.ID,
		model.MappingSourceEmail:   act.From.AADObjectID,
	}, req.Body, model.MappingSourceUser, model.MappingSourceChannel)

	metadata, err := json.Marshal(map[string]any{
		"teams": map[string]string{
			"serviceUrl":     act.ServiceURL,
			"conversationId": act.Conversation.ID,
			"activityId":     act.ID,
			"channelId":      act.ChannelID,
			"botId":          act.Recipient.ID,
		},
	})
	if err != nil {
		return nil, err
	}

	return &InboundMessage{
		ParticipantID:        participant,
		ParticipantChannelID: scope,
		Content:              content,
		Metadata:             metadata,
	}, nil
}

func (t *MSTeams) Send(ctx context.Context, integration *model.AppIntegration, msg OutboundMessage) error {
	serviceURL := integration.Configuration["serviceUrl"]
	if candidate := metadataString(msg.Metadata, "teams.serviceUrl", "serviceUrl"); candidate != "" && allowedTeamsServiceURL(candidate) {
		serviceURL = candidate
	}
	if serviceURL == "" {
		return fmt.Errorf("%w: no bot framework service url for message %d", ErrNotConfigured, msg.MessageID)
	}

	conversationID := metadataString(msg.Metadata, "teams.conversationId")
	if conversationID == "" {
		conversationID = msg.ParticipantChannelID
	}
	if conversationID == "" {
		return fmt.Errorf("%w: no teams conversation for message %d", ErrNotConfigured, msg.MessageID)
	}

	tok, err := t.tokens.token(ctx, t.opts.BotFrameworkTokenURL, integration.Secrets.TeamsAppID, integration.Secrets.TeamsAppPassword, botFrameworkScope)
	if err != nil {
		return fmt.Errorf("bot framework token: %w", err)
	}

	activity := map[string]any{
		"type":       "message",
		"textFormat": "xml",
		"text":       renderHTML(msg.Content.PlainText()),
	}
	if replyTo := metadataString(msg.Metadata, "teams.activityId"); replyTo != "" {
		activity["replyToId"] = replyTo
	}

	endpoint := strings.TrimRight(serviceURL, "/") + "/v3/conversations/" + url.PathEscape(conversationID) + "/activities"
	if err := doJSON(ctx, t.opts.HTTPClient, http.MethodPost, endpoint, activity, bearer(tok), nil); err != nil {
		return fmt.Errorf("teams send activity: %w", err)
	}
	return nil
}

func allowedTeamsServiceURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range teamsServiceHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
