package platform

import (
	"github.com/invopop/jsonschema"
)

// Descriptor describes a platform for the integration catalog.
type Descriptor struct {
	Name        string
	Description string
	// Config is a zero value of the struct documenting the configuration keys.
	Config any
	// Secrets lists the secret bag fields the platform reads.
	Secrets     []string
	InboundAuth string
}

type CatalogEntry struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	InboundAuth  string             `json:"inbound_auth"`
	Secrets      []string           `json:"secrets"`
	ConfigSchema *jsonschema.Schema `json:"config_schema"`
}

// Catalog returns every registered platform with its configuration schema.
func (r *Registry) Catalog() []CatalogEntry {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	platforms := r.All()
	out := make([]CatalogEntry, 0, len(platforms))
	for _, p := range platforms {
		d := p.Descriptor()
		entry := CatalogEntry{
			ID:          p.ID(),
			Name:        d.Name,
			Description: d.Description,
			InboundAuth: d.InboundAuth,
			Secrets:     d.Secrets,
		}
		if d.Config != nil {
			entry.ConfigSchema = reflector.Reflect(d.Config)
		}
		out = append(out, entry)
	}
	return out
}
