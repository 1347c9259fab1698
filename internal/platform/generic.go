package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"switchboard.app/server/common/signature"
	"switchboard.app/server/internal/model"
)

// GenericSignatureHeader optionally signs generic inbound bodies with the webhook secret.
const GenericSignatureHeader = "X-Switchboard-Signature"

// EventTypeMessage is the event type of outgoing messages sent to generic endpoints.
const EventTypeMessage = "message"

type genericConfig struct{}

type Generic struct {
	opts Options
}

func NewGeneric(opts Options) *Generic {
	return &Generic{opts: opts.withDefaults()}
}

func (g *Generic) ID() string { return IDGeneric }

func (g *Generic) Descriptor() Descriptor {
	return Descriptor{
		Name:        "Generic webhook",
		Description: "Plain JSON inbound webhook with signed JSON replies to an outbound url",
		Config:      &genericConfig{},
		Secrets:     []string{"generic_outbound_url"},
		InboundAuth: "url_secret",
	}
}

func (g *Generic) LegacySecrets() []LegacySecret {
	outbound := func(b *model.IntegrationSecrets) *string { return &b.GenericOutboundURL }
	return []LegacySecret{
		{ConfigKey: "outboundUrl", Field: outbound},
		{ConfigKey: "webhookUrl", Field: outbound},
	}
}

func (g *Generic) Validate(*model.AppIntegration) error {
	return nil
}

func (g *Generic) Test(integration *model.AppIntegration) []string {
	if integration.Secrets.GenericOutboundURL == "" {
		return []string{"outbound url is not set, replies will not be delivered"}
	}
	return nil
}

func (g *Generic) Verify(integration *model.AppIntegration, req *InboundRequest) error {
	if err := verifyURLSecret(integration, req); err != nil {
		return err
	}
	if sig := req.Header.Get(GenericSignatureHeader); sig != "" {
		if !signature.Verify(integration.Secrets.WebhookSecret, req.Body, sig) {
			return ErrUnauthorized
		}
	}
	return nil
}

func (g *Generic) Handshake(*InboundRequest) *Handshake {
	return nil
}

type genericInbound struct {
	ParticipantID        string          `json:"participantId"`
	ParticipantChannelID string          `json:"participantChannelId"`
	UserID               string          `json:"userId"`
	ChannelID            string          `json:"channelId"`
	ThreadID             string          `json:"threadId"`
	Email                string          `json:"email"`
	Content              json.RawMessage `json:"content"`
	Metadata             json.RawMessage `json:"metadata"`
}

func (g *Generic) Normalize(_ context.Context, integration *model.AppIntegration, req *InboundRequest) (*InboundMessage, error) {
	var in genericInbound
	if err := json.Unmarshal(req.Body, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	user := in.ParticipantID
	if user == "" {
		user = in.UserID
	}
	channel := in.ParticipantChannelID
	if channel == "" {
		channel = in.ChannelID
	}

	participant, scope := resolveIdentity(integration.MappingConfig, identitySources{
		model.MappingSourceUser:    user,
		model.MappingSourceChannel: channel,
		model.MappingSourceThread:  in.ThreadID,
		model.MappingSourceEmail:   in.Email,
	}, req.Body, model.MappingSourceUser, model.MappingSourceChannel)

	// Empty content is left for the conversation service to reject.
	var content model.MessageContent
	if len(in.Content) > 0 {
		c, err := model.ContentFromJSON(in.Content)
		if err != nil && !errors.Is(err, model.ErrEmptyContent) {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		content = c
	}

	return &InboundMessage{
		ParticipantID:        participant,
		ParticipantChannelID: scope,
		Content:              content,
		Metadata:             in.Metadata,
	}, nil
}

// WebhookPayload is the body posted to generic and fan-out webhook endpoints.
type WebhookPayload struct {
	WorkflowID      string    `json:"workflowId"`
	EventType       string    `json:"eventType"`
	Payload         any       `json:"payload"`
	TriggeredAt     time.Time `json:"triggeredAt"`
	IsManualTrigger bool      `json:"isManualTrigger"`
}

// PostSignedWebhook delivers payload to url with the X-Webhook-* headers and
// returns the delivery id.
func PostSignedWebhook(ctx context.Context, client *http.Client, url, secret, webhookID string, payload WebhookPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding webhook payload: %w", err)
	}

	deliveryID := uuid.NewString()
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Webhook-Signature", signature.Sign(secret, body))
	header.Set("X-Webhook-Id", webhookID)
	header.Set("X-Webhook-Delivery", deliveryID)
	header.Set("X-Webhook-Event", payload.EventType)

	if err := doRaw(ctx, client, http.MethodPost, url, bytesReader(body), header, nil); err != nil {
		return deliveryID, err
	}
	return deliveryID, nil
}

func (g *Generic) Send(ctx context.Context, integration *model.AppIntegration, msg OutboundMessage) error {
	url := integration.Secrets.GenericOutboundURL
	if url == "" {
		return fmt.Errorf("%w: generic integration %d has no outbound url", ErrNotConfigured, integration.ID)
	}

	payload := WebhookPayload{
		WorkflowID: msg.WorkflowID,
		EventType:  EventTypeMessage,
		Payload: map[string]any{
			"messageId":            strconv.FormatInt(msg.MessageID, 10),
			"threadId":             strconv.FormatInt(msg.ThreadID, 10),
			"participantId":        msg.ParticipantID,
			"participantChannelId": msg.ParticipantChannelID,
			"content":              msg.Content.Value(),
			"metadata":             msg.Metadata,
		},
		TriggeredAt: g.opts.Now().UTC(),
	}

	if _, err := PostSignedWebhook(ctx, g.opts.HTTPClient, url, integration.Secrets.WebhookSecret, strconv.FormatInt(integration.ID, 10), payload); err != nil {
		return fmt.Errorf("generic outbound: %w", err)
	}
	return nil
}
