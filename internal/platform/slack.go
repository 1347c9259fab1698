package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"switchboard.app/server/common/signature"
	"switchboard.app/server/internal/model"
)

const (
	slackSignatureHeader = "X-Slack-Signature"
	slackTimestampHeader = "X-Slack-Request-Timestamp"
)

type slackConfig struct {
	Channel string `json:"channel,omitempty" jsonschema:"description=Channel used when an outgoing message has no participant channel"`
}

type Slack struct {
	opts Options
}

func NewSlack(opts Options) *Slack {
	return &Slack{opts: opts.withDefaults()}
}

func (s *Slack) ID() string { return IDSlack }

func (s *Slack) Descriptor() Descriptor {
	return Descriptor{
		Name:        "Slack",
		Description: "Slack Events API app with chat.postMessage or incoming webhook replies",
		Config:      &slackConfig{},
		Secrets:     []string{"slack_signing_secret", "slack_bot_token", "slack_incoming_webhook_url"},
		InboundAuth: "slack_signature",
	}
}

func (s *Slack) LegacySecrets() []LegacySecret {
	return []LegacySecret{
		{ConfigKey: "signingSecret", Field: func(b *model.IntegrationSecrets) *string { return &b.SlackSigningSecret }},
		{ConfigKey: "botToken", Field: func(b *model.IntegrationSecrets) *string { return &b.SlackBotToken }},
		{ConfigKey: "incomingWebhookUrl", Field: func(b *model.IntegrationSecrets) *string { return &b.SlackIncomingWebhookURL }},
	}
}

func (s *Slack) Validate(integration *model.AppIntegration) error {
	if integration.Secrets.SlackSigningSecret == "" {
		return fmt.Errorf("%w: slack requires a signing secret", ErrInvalidConfig)
	}
	return nil
}

func (s *Slack) Test(integration *model.AppIntegration) []string {
	var issues []string
	if integration.Secrets.SlackSigningSecret == "" {
		issues = append(issues, "signing secret is missing")
	}
	if integration.Secrets.SlackBotToken == "" && integration.Secrets.SlackIncomingWebhookURL == "" {
		issues = append(issues, "bot token or incoming webhook url is required to send replies")
	}
	return issues
}

// Verify checks the v0 request signature and rejects requests outside the replay window.
func (s *Slack) Verify(integration *model.AppIntegration, req *InboundRequest) error {
	secret := integration.Secrets.SlackSigningSecret
	ts := req.Header.Get(slackTimestampHeader)
	sig := req.Header.Get(slackSignatureHeader)
	if secret == "" || ts == "" || sig == "" {
		return ErrUnauthorized
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrUnauthorized
	}
	now := req.ReceivedAt
	if now.IsZero() {
		now = s.opts.Now()
	}
	skew := now.Sub(time.Unix(sec, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > s.opts.ReplayWindow {
		return ErrUnauthorized
	}

	expected := "v0=" + signature.HexDigest([]byte(secret), []byte("v0:"+ts+":"), req.Body)
	if !signature.Equal(expected, sig) {
		return ErrUnauthorized
	}
	return nil
}

func (s *Slack) Handshake(req *InboundRequest) *Handshake {
	ev, err := slackevents.ParseEvent(json.RawMessage(req.Body), slackevents.OptionNoVerifyToken())
	if err != nil || ev.Type != slackevents.URLVerification {
		return nil
	}
	challenge, ok := ev.Data.(*slackevents.EventsAPIURLVerificationEvent)
	if !ok {
		return nil
	}
	return &Handshake{ContentType: "text/plain", Body: []byte(challenge.Challenge)}
}

type slackMetadata struct {
	TeamID   string `json:"team_id,omitempty"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts,omitempty"`
	User     string `json:"user"`
}

func (s *Slack) Normalize(_ context.Context, integration *model.AppIntegration, req *InboundRequest) (*InboundMessage, error) {
	ev, err := slackevents.ParseEvent(json.RawMessage(req.Body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.Type != slackevents.CallbackEvent {
		return nil, ErrIgnored
	}

	var user, text, channel, ts, threadTS string
	switch inner := ev.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// Subtypes cover edits, deletions, joins and bot posts.
		if inner.BotID != "" || inner.SubType != "" || inner.User == "" {
			return nil, ErrIgnored
		}
		user, text, channel, ts, threadTS = inner.User, inner.Text, inner.Channel, inner.TimeStamp, inner.ThreadTimeStamp
	case *slackevents.AppMentionEvent:
		if inner.BotID != "" || inner.User == "" {
			return nil, ErrIgnored
		}
		user, text, channel, ts, threadTS = inner.User, inner.Text, inner.Channel, inner.TimeStamp, inner.ThreadTimeStamp
	default:
		return nil, ErrIgnored
	}
	if text == "" {
		return nil, ErrIgnored
	}

	thread := threadTS
	if thread == "" {
		thread = ts
	}

	participant, scope := resolveIdentity(integration.MappingConfig, identitySources{
		model.MappingSourceUser:    user,
		model.MappingSourceChannel: channel,
		model.MappingSourceThread:  thread,
	}, req.Body, model.MappingSourceUser, model.MappingSourceChannel)

	metadata, err := json.Marshal(map[string]slackMetadata{
		"slack": {TeamID: ev.TeamID, Channel: channel, TS: ts, ThreadTS: threadTS, User: user},
	})
	if err != nil {
		return nil, err
	}

	return &InboundMessage{
		ParticipantID:        participant,
		ParticipantChannelID: scope,
		Content:              model.NewTextContent(text),
		Metadata:             metadata,
	}, nil
}

// Send posts with the bot token when present, otherwise through the incoming webhook.
func (s *Slack) Send(ctx context.Context, integration *model.AppIntegration, msg OutboundMessage) error {
	text := msg.Content.PlainText()
	secrets := integration.Secrets

	if secrets.SlackBotToken != "" {
		channel := metadataString(msg.Metadata, "slack.channel", "channel")
		if channel == "" {
			channel = msg.ParticipantChannelID
		}
		if channel == "" {
			channel = integration.Configuration["channel"]
		}
		if channel == "" {
			return fmt.Errorf("%w: no slack channel for message %d", ErrNotConfigured, msg.MessageID)
		}

		clientOpts := []slack.Option{slack.OptionHTTPClient(s.opts.HTTPClient)}
		if s.opts.SlackAPIURL != "" {
			clientOpts = append(clientOpts, slack.OptionAPIURL(s.opts.SlackAPIURL))
		}
		api := slack.New(secrets.SlackBotToken, clientOpts...)

		msgOpts := []slack.MsgOption{slack.MsgOptionText(text, false)}
		if ts := metadataString(msg.Metadata, "slack.thread_ts", "slack.ts", "thread_ts"); ts != "" {
			msgOpts = append(msgOpts, slack.MsgOptionTS(ts))
		}

		if _, _, err := api.PostMessageContext(ctx, channel, msgOpts...); err != nil {
			return fmt.Errorf("slack chat.postMessage: %w", err)
		}
		return nil
	}

	if secrets.SlackIncomingWebhookURL != "" {
		if err := slack.PostWebhookCustomHTTPContext(ctx, secrets.SlackIncomingWebhookURL, s.opts.HTTPClient, &slack.WebhookMessage{Text: text}); err != nil {
			return fmt.Errorf("slack incoming webhook: %w", scrubURLError(err))
		}
		return nil
	}

	return fmt.Errorf("%w: slack integration %d has no bot token or incoming webhook", ErrNotConfigured, integration.ID)
}
