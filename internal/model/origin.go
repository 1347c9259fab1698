package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OriginPrefix marks messages that belong to an app integration.
const OriginPrefix = "app:"

var ErrMalformedOrigin = errors.New("malformed origin")

// Origin identifies the integration a message came from or must be delivered to.
// Its string form is "app:{platformId}:{integrationId}".
type Origin struct {
	PlatformID    string
	IntegrationID int64
}

func NewOrigin(platformID string, integrationID int64) Origin {
	return Origin{PlatformID: strings.ToLower(platformID), IntegrationID: integrationID}
}

func (o Origin) String() string {
	return fmt.Sprintf("app:%s:%d", o.PlatformID, o.IntegrationID)
}

// IsAppOrigin reports whether s claims to be an app origin.
func IsAppOrigin(s string) bool {
	return strings.HasPrefix(s, OriginPrefix)
}

// ParseOrigin parses "app:{platformId}:{integrationId}". It requires exactly
// three non-empty segments and a positive integration id.
func ParseOrigin(s string) (Origin, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] != "app" || parts[1] == "" || parts[2] == "" {
		return Origin{}, fmt.Errorf("%w: %q", ErrMalformedOrigin, s)
	}

	integrationID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || integrationID <= 0 {
		return Origin{}, fmt.Errorf("%w: bad integration id in %q", ErrMalformedOrigin, s)
	}

	return Origin{PlatformID: strings.ToLower(parts[1]), IntegrationID: integrationID}, nil
}
