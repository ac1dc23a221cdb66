// Package mappers normalizes provider-shaped payloads into the one canonical
// InboundAction record. Each channel provider registers its own Mapper; the
// reconciliation pipeline never sees provider-specific shapes.
package mappers

import "github.com/staysync/booking-backend/internal/models"

// Mapper translates one provider payload into exactly one InboundAction.
// Implementations are pure: no store access, no side effects.
type Mapper interface {
	// Provider is the name used in the webhook route and as the
	// ExternalRef source of the actions it produces.
	Provider() string

	// MapWebhook normalizes one webhook body. A payload that cannot be
	// normalized (unknown action code, missing booking id, malformed
	// dates) yields a MappingError.
	MapWebhook(payload []byte) (*models.InboundAction, error)
}

// Registry holds the known provider mappers
type Registry struct {
	mappers map[string]Mapper
}

// NewRegistry creates a registry from the given mappers
func NewRegistry(mappers ...Mapper) *Registry {
	r := &Registry{mappers: make(map[string]Mapper)}
	for _, m := range mappers {
		r.mappers[m.Provider()] = m
	}
	return r
}

// Get returns the mapper for a provider name
func (r *Registry) Get(provider string) (Mapper, bool) {
	m, ok := r.mappers[provider]
	return m, ok
}

// Providers lists the registered provider names
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.mappers))
	for name := range r.mappers {
		names = append(names, name)
	}
	return names
}
