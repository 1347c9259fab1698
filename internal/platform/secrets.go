package platform

import (
	"switchboard.app/server/common/signature"
	"switchboard.app/server/internal/model"
)

// LegacySecret maps a configuration key that used to hold a secret onto its
// field in the typed secret bag.
type LegacySecret struct {
	ConfigKey string
	Field     func(s *model.IntegrationSecrets) *string
}

// MigrateSecrets moves legacy secret keys out of the configuration into the
// bag. A value already present in the bag wins. Running it twice is a no-op.
func MigrateSecrets(p Platform, integration *model.AppIntegration) bool {
	changed := false
	for _, legacy := range p.LegacySecrets() {
		value, ok := integration.Configuration[legacy.ConfigKey]
		if !ok {
			continue
		}

		field := legacy.Field(&integration.Secrets)
		if *field == "" && value != "" {
			*field = value
		}
		delete(integration.Configuration, legacy.ConfigKey)
		changed = true
	}
	return changed
}

// verifyURLSecret is the authenticity check of platforms that embed the
// integration webhook secret in the callback URL.
func verifyURLSecret(integration *model.AppIntegration, req *InboundRequest) error {
	if !signature.Equal(integration.Secrets.WebhookSecret, req.URLSecret) {
		return ErrUnauthorized
	}
	return nil
}
