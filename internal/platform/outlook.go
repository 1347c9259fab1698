package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"switchboard.app/server/common/signature"
	"switchboard.app/server/internal/model"
)

const graphScope = "https://graph.microsoft.com/.default"

type outlookConfig struct {
	Mailbox string `json:"mailbox" jsonschema:"required,description=Mailbox (user principal name) that receives and sends mail"`
	Subject string `json:"subject,omitempty" jsonschema:"description=Subject of replies that do not continue a thread"`
}

type Outlook struct {
	opts   Options
	tokens *tokenCache
}

func NewOutlook(opts Options) *Outlook {
	opts = opts.withDefaults()
	return &Outlook{opts: opts, tokens: newTokenCache(opts.HTTPClient)}
}

func (o *Outlook) ID() string { return IDOutlook }

func (o *Outlook) Descriptor() Descriptor {
	return Descriptor{
		Name:        "Outlook",
		Description: "Microsoft Graph mail change notifications with sendMail replies",
		Config:      &outlookConfig{},
		Secrets:     []string{"outlook_tenant_id", "outlook_client_id", "outlook_client_secret"},
		InboundAuth: "url_secret",
	}
}

func (o *Outlook) LegacySecrets() []LegacySecret {
	return []LegacySecret{
		{ConfigKey: "tenantId", Field: func(b *model.IntegrationSecrets) *string { return &b.OutlookTenantID }},
		{ConfigKey: "clientId", Field: func(b *model.IntegrationSecrets) *string { return &b.OutlookClientID }},
		{ConfigKey: "clientSecret", Field: func(b *model.IntegrationSecrets) *string { return &b.OutlookClientSecret }},
	}
}

func (o *Outlook) Validate(integration *model.AppIntegration) error {
	if issues := o.Test(integration); len(issues) > 0 {
		return fmt.Errorf("%w: outlook %s", ErrInvalidConfig, strings.Join(issues, ", "))
	}
	return nil
}

func (o *Outlook) Test(integration *model.AppIntegration) []string {
	var issues []string
	s := integration.Secrets
	if s.OutlookTenantID == "" {
		issues = append(issues, "tenant id is missing")
	}
	if s.OutlookClientID == "" {
		issues = append(issues, "client id is missing")
	}
	if s.OutlookClientSecret == "" {
		issues = append(issues, "client secret is missing")
	}
	if integration.Configuration["mailbox"] == "" {
		issues = append(issues, "mailbox is missing")
	}
	return issues
}

func (o *Outlook) Verify(integration *model.AppIntegration, req *InboundRequest) error {
	return verifyURLSecret(integration, req)
}

// Handshake answers the Graph subscription validation request.
func (o *Outlook) Handshake(req *InboundRequest) *Handshake {
	token := req.Query.Get("validationToken")
	if token == "" {
		return nil
	}
	return &Handshake{ContentType: "text/plain", Body: []byte(token)}
}

type graphNotification struct {
	Value []struct {
		SubscriptionID string `json:"subscriptionId"`
		ClientState    string `json:"clientState"`
		ChangeType     string `json:"changeType"`
		Resource       string `json:"resource"`
		ResourceData   struct {
			ID string `json:"id"`
		} `json:"resourceData"`
	} `json:"value"`
}

type graphEmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type graphMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Subject        string `json:"subject"`
	BodyPreview    string `json:"bodyPreview"`
	UniqueBody     *struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"uniqueBody"`
	From struct {
		EmailAddress graphEmailAddress `json:"emailAddress"`
	} `json:"from"`
}

// Normalize resolves the first created-message notification by fetching the
// message from Graph.
func (o *Outlook) Normalize(ctx context.Context, integration *model.AppIntegration, req *InboundRequest) (*InboundMessage, error) {
	var n graphNotification
	if err := json.Unmarshal(req.Body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var resource string
	for _, v := range n.Value {
		if v.ClientState != "" && !signature.Equal(integration.Secrets.WebhookSecret, v.ClientState) {
			return nil, ErrUnauthorized
		}
		if strings.EqualFold(v.ChangeType, "created") && v.Resource != "" {
			resource = v.Resource
			break
		}
	}
	if resource == "" {
		return nil, ErrIgnored
	}

	tok, err := o.token(ctx, integration)
	if err != nil {
		return nil, err
	}

	var msg graphMessage
	endpoint := strings.TrimRight(o.opts.GraphURL, "/") + "/" + strings.TrimLeft(resource, "/") +
		"?$select=id,conversationId,subject,bodyPreview,uniqueBody,from"
	header := bearer(tok)
	header.Set("Prefer", `outlook.body-content-type="text"`)
	if err := doJSON(ctx, o.opts.HTTPClient, http.MethodGet, endpoint, nil, header, &msg); err != nil {
		return nil, fmt.Errorf("fetching graph message: %w", err)
	}

	sender := strings.ToLower(msg.From.EmailAddress.Address)
	if sender == "" || strings.EqualFold(sender, integration.Configuration["mailbox"]) {
		return nil, ErrIgnored
	}

	text := msg.BodyPreview
	if msg.UniqueBody != nil && strings.TrimSpace(msg.UniqueBody.Content) != "" {
		text = strings.TrimSpace(msg.UniqueBody.Content)
	}
	if text == "" {
		return nil, ErrIgnored
	}

	participant, scope := resolveIdentity(integration.MappingConfig, identitySources{
		model.MappingSourceUser:    sender,
		model.MappingSourceEmail:   sender,
		model.MappingSourceChannel: sender,
		model.MappingSourceThread:  msg.ConversationID,
	}, req.Body, model.MappingSourceEmail, model.MappingSourceEmail)

	metadata, err := json.Marshal(map[string]any{
		"outlook": map[string]string{
			"messageId":      msg.ID,
			"conversationId": msg.ConversationID,
			"subject":        msg.Subject,
			"from":           sender,
		},
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

// Send replies to the original mail when its id is known, otherwise sends a new mail.
func (o *Outlook) Send(ctx context.Context, integration *model.AppIntegration, msg OutboundMessage) error {
	mailbox := integration.Configuration["mailbox"]
	if mailbox == "" {
		return fmt.Errorf("%w: outlook integration %d has no mailbox", ErrNotConfigured, integration.ID)
	}
	recipient := msg.ParticipantChannelID
	if recipient == "" {
		recipient = metadataString(msg.Metadata, "outlook.from")
	}
	if recipient == "" {
		return fmt.Errorf("%w: no recipient for message %d", ErrNotConfigured, msg.MessageID)
	}

	tok, err := o.token(ctx, integration)
	if err != nil {
		return err
	}

	body := map[string]string{
		"contentType": "HTML",
		"content":     renderHTML(msg.Content.PlainText()),
	}
	base := strings.TrimRight(o.opts.GraphURL, "/") + "/users/" + url.PathEscape(mailbox)

	if replyTo := metadataString(msg.Metadata, "outlook.messageId"); replyTo != "" {
		endpoint := base + "/messages/" + url.PathEscape(replyTo) + "/reply"
		if err := doJSON(ctx, o.opts.HTTPClient, http.MethodPost, endpoint, map[string]any{
			"message": map[string]any{"body": body},
		}, bearer(tok), nil); err != nil {
			return fmt.Errorf("graph reply: %w", err)
		}
		return nil
	}

	subject := metadataString(msg.Metadata, "outlook.subject", "subject")
	if subject == "" {
		subject = integration.Configuration["subject"]
	}
	if subject == "" {
		subject = integration.Name
	}

	if err := doJSON(ctx, o.opts.HTTPClient, http.MethodPost, base+"/sendMail", map[string]any{
		"message": map[string]any{
			"subject": subject,
			"body":    body,
			"toRecipients": []map[string]any{
				{"emailAddress": graphEmailAddress{Address: recipient}},
			},
		},
		"saveToSentItems": true,
	}, bearer(tok), nil); err != nil {
		return fmt.Errorf("graph sendMail: %w", err)
	}
	return nil
}

func (o *Outlook) token(ctx context.Context, integration *model.AppIntegration) (*oauth2.Token, error) {
	s := integration.Secrets
	tokenURL := strings.TrimRight(o.opts.LoginURL, "/") + "/" + url.PathEscape(s.OutlookTenantID) + "/oauth2/v2.0/token"
	tok, err := o.tokens.token(ctx, tokenURL, s.OutlookClientID, s.OutlookClientSecret, graphScope)
	if err != nil {
		return nil, fmt.Errorf("graph token: %w", err)
	}
	return tok, nil
}
