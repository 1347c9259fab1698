// Package platform holds the per-platform behaviour of app integrations:
// inbound authenticity, payload normalization, outbound delivery and
// configuration rules.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"switchboard.app/server/internal/model"
)

var (
	// ErrUnauthorized is returned when an inbound request fails authenticity checks.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIgnored is returned for platform events that carry no user message.
	ErrIgnored = errors.New("event ignored")

	// ErrMalformed is returned when an inbound payload cannot be decoded.
	ErrMalformed = errors.New("malformed payload")

	// ErrInvalidConfig is returned when an integration misses platform requirements.
	ErrInvalidConfig = errors.New("invalid integration configuration")

	// ErrNotConfigured is returned when outbound delivery has no destination configured.
	ErrNotConfigured = errors.New("outbound delivery not configured")
)

const (
	IDSlack   = "slack"
	IDMSTeams = "msteams"
	IDOutlook = "outlook"
	IDGeneric = "generic"
	IDMatrix  = "matrix"
)

// InboundRequest is the raw webhook call as received by the ingress.
type InboundRequest struct {
	ReceivedAt time.Time
	Header     http.Header
	Query      url.Values
	Body       []byte
	URLSecret  string
}

// Handshake is a platform verification exchange answered before normalization.
type Handshake struct {
	ContentType string
	Body        []byte
}

// InboundMessage is a platform event reduced to what the conversation service needs.
type InboundMessage struct {
	Metadata             json.RawMessage
	Content              model.MessageContent
	ParticipantID        string
	ParticipantChannelID string
}

// OutboundMessage is an outgoing conversation message addressed to a platform.
type OutboundMessage struct {
	Metadata             json.RawMessage
	Content              model.MessageContent
	WorkflowID           string
	ParticipantID        string
	ParticipantChannelID string
	MessageID            int64
	ThreadID             int64
}

type Verifier interface {
	Verify(integration *model.AppIntegration, req *InboundRequest) error
}

type Normalizer interface {
	// Handshake returns nil when req is a regular event.
	Handshake(req *InboundRequest) *Handshake
	Normalize(ctx context.Context, integration *model.AppIntegration, req *InboundRequest) (*InboundMessage, error)
}

type OutboundHandler interface {
	Send(ctx context.Context, integration *model.AppIntegration, msg OutboundMessage) error
}

// Platform is one registered messaging platform.
type Platform interface {
	Verifier
	Normalizer
	OutboundHandler

	ID() string
	Descriptor() Descriptor
	LegacySecrets() []LegacySecret

	// Validate checks the static requirements of an integration.
	Validate(integration *model.AppIntegration) error

	// Test reports problems that would prevent the integration from working.
	Test(integration *model.AppIntegration) []string
}
