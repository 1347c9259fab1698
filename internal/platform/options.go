package platform

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options tunes the built-in platforms. Zero values select production endpoints.
type Options struct {
	HTTPClient   *http.Client
	Now          func() time.Time
	ReplayWindow time.Duration

	SlackAPIURL          string
	GraphURL             string
	LoginURL             string
	BotFrameworkTokenURL string
}

const (
	defaultReplayWindow         = 5 * time.Minute
	defaultGraphURL             = "https://graph.microsoft.com/v1.0"
	defaultLoginURL             = "https://login.microsoftonline.com"
	defaultBotFrameworkTokenURL = "https://login.microsoftonline.com/botframework.com/oauth2/v2.0/token"
)

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ReplayWindow <= 0 {
		o.ReplayWindow = defaultReplayWindow
	}
	if o.GraphURL == "" {
		o.GraphURL = defaultGraphURL
	}
	if o.LoginURL == "" {
		o.LoginURL = defaultLoginURL
	}
	if o.BotFrameworkTokenURL == "" {
		o.BotFrameworkTokenURL = defaultBotFrameworkTokenURL
	}
	return o
}
