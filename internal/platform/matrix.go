package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"switchboard.app/server/internal/model"
)

type matrixConfig struct {
	Homeserver string `json:"homeserver" jsonschema:"required,description=Homeserver base url"`
	UserID     string `json:"userId,omitempty" jsonschema:"description=Bot user id; its own messages are ignored"`
}

type Matrix struct {
	opts Options
}

func NewMatrix(opts Options) *Matrix {
	return &Matrix{opts: opts.withDefaults()}
}

func (m *Matrix) ID() string { return IDMatrix }

func (m *Matrix) Descriptor() Descriptor {
	return Descriptor{
		Name:        "Matrix",
		Description: "Matrix room events pushed by an appservice or bridge, replies as m.room.message",
		Config:      &matrixConfig{},
		Secrets:     []string{"matrix_access_token"},
		InboundAuth: "url_secret",
	}
}

func (m *Matrix) LegacySecrets() []LegacySecret {
	return []LegacySecret{
		{ConfigKey: "accessToken", Field: func(b *model.IntegrationSecrets) *string { return &b.MatrixAccessToken }},
	}
}

func (m *Matrix) Validate(integration *model.AppIntegration) error {
	if issues := m.Test(integration); len(issues) > 0 {
		return fmt.Errorf("%w: matrix %s", ErrInvalidConfig, strings.Join(issues, ", "))
	}
	return nil
}

func (m *Matrix) Test(integration *model.AppIntegration) []string {
	var issues []string
	if integration.Configuration["homeserver"] == "" {
		issues = append(issues, "homeserver is missing")
	}
	if integration.Secrets.MatrixAccessToken == "" {
		issues = append(issues, "access token is missing")
	}
	return issues
}

func (m *Matrix) Verify(integration *model.AppIntegration, req *InboundRequest) error {
	return verifyURLSecret(integration, req)
}

func (m *Matrix) Handshake(*InboundRequest) *Handshake {
	return nil
}

// Normalize accepts either an appservice transaction ({"events": [...]}) or a single event.
func (m *Matrix) Normalize(_ context.Context, integration *model.AppIntegration, req *InboundRequest) (*InboundMessage, error) {
	var txn struct {
		Events []*event.Event `json:"events"`
	}
	if err := json.Unmarshal(req.Body, &txn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(txn.Events) == 0 {
		var single event.Event
		if err := json.Unmarshal(req.Body, &single); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if single.Type.Type != "" {
			txn.Events = []*event.Event{&single}
		}
	}

	self := id.UserID(integration.Configuration["userId"])
	for _, evt := range txn.Events {
		if evt == nil || evt.Type.Type != event.EventMessage.Type || (self != "" && evt.Sender == self) {
			continue
		}
		if err := evt.Content.ParseRaw(event.EventMessage); err != nil {
			continue
		}
		content := evt.Content.AsMessage()
		if content.MsgType != event.MsgText || strings.TrimSpace(content.Body) == "" {
			continue
		}
		// Edits arrive as new m.room.message events with a replace relation.
		if content.RelatesTo != nil && content.RelatesTo.Type == event.RelReplace {
			continue
		}

		sender := evt.Sender.String()
		room := evt.RoomID.String()
		participant, scope := resolveIdentity(integration.MappingConfig, identitySources{
			model.MappingSourceUser:    sender,
			model.MappingSourceChannel: room,
			model.MappingSourceThread:  room,
		}, req.Body, model.MappingSourceUser, model.MappingSourceChannel)

		metadata, err := json.Marshal(map[string]any{
			"matrix": map[string]string{
				"roomId":  room,
				"eventId": evt.ID.String(),
				"sender":  sender,
			},
		})
		if err != nil {
			return nil, err
		}

		return &InboundMessage{
			ParticipantID:        participant,
			ParticipantChannelID: scope,
			Content:              model.NewTextContent(content.Body),
			Metadata:             metadata,
		}, nil
	}

	return nil, ErrIgnored
}

func (m *Matrix) Send(ctx context.Context, integration *model.AppIntegration, msg OutboundMessage) error {
	homeserver := integration.Configuration["homeserver"]
	if homeserver == "" || integration.Secrets.MatrixAccessToken == "" {
		return fmt.Errorf("%w: matrix integration %d lacks homeserver or token", ErrNotConfigured, integration.ID)
	}

	room := metadataString(msg.Metadata, "matrix.roomId")
	if room == "" {
		room = msg.ParticipantChannelID
	}
	if room == "" {
		return fmt.Errorf("%w: no matrix room for message %d", ErrNotConfigured, msg.MessageID)
	}

	client, err := mautrix.NewClient(homeserver, id.UserID(integration.Configuration["userId"]), integration.Secrets.MatrixAccessToken)
	if err != nil {
		return fmt.Errorf("creating matrix client: %w", err)
	}
	client.Client = m.opts.HTTPClient

	text := msg.Content.PlainText()
	content := &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          text,
		Format:        event.FormatHTML,
		FormattedBody: renderHTML(text),
	}

	if _, err := client.SendMessageEvent(ctx, id.RoomID(room), event.EventMessage, content); err != nil {
		return fmt.Errorf("matrix send: %w", err)
	}
	return nil
}
