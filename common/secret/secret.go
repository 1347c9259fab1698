// Package secret generates random alphanumeric secrets.
package secret

import (
	"crypto/rand"
	"fmt"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// WebhookSecretLength is the length of integration webhook secrets.
	WebhookSecretLength = 32

	// largest multiple of len(alphabet) that fits in a byte
	maxUnbiased = 256 - 256%len(alphabet)
)

// Generate returns n characters drawn uniformly from [A-Za-z0-9].
func Generate(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// WebhookSecret returns a fresh integration webhook secret.
func WebhookSecret() (string, error) {
	return Generate(WebhookSecretLength)
}
