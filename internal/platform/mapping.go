package platform

import (
	"github.com/tidwall/gjson"

	"switchboard.app/server/internal/model"
)

// identitySources are the candidate ids a platform extracted from an event.
type identitySources map[model.MappingSource]string

// resolveIdentity applies the integration mapping config. Platforms pass their
// natural defaults for participant and scope sources. The scope falls back to
// the participant id, the participant falls back to DefaultParticipantID.
func resolveIdentity(m model.MappingConfig, values identitySources, body []byte, defParticipant, defScope model.MappingSource) (participant, scope string) {
	participant = resolveSource(m.ParticipantIDSource, m.ParticipantIDPath, defParticipant, values, body)
	if participant == "" {
		participant = m.DefaultParticipantID
	}

	scope = resolveSource(m.ScopeSource, m.ScopePath, defScope, values, body)
	if scope == "" {
		scope = participant
	}
	return participant, scope
}

func resolveSource(source model.MappingSource, path string, def model.MappingSource, values identitySources, body []byte) string {
	if source == "" {
		source = def
	}
	if source == model.MappingSourcePath {
		if path == "" {
			return ""
		}
		return gjson.GetBytes(body, path).String()
	}
	return values[source]
}

// metadataString reads a dotted path out of message metadata.
func metadataString(metadata []byte, paths ...string) string {
	if len(metadata) == 0 {
		return ""
	}
	for _, p := range paths {
		if v := gjson.GetBytes(metadata, p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
