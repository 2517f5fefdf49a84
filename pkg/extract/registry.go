// ABOUTME: Extractor registry
// ABOUTME: Name-to-provider resolution with deterministic last-wins precedence

package extract

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Registration binds an extractor name to its provider. Origin names the
// component that performed the registration and is only used for
// override reporting.
type Registration struct {
	Name     string
	Origin   string
	Provider Provider
}

// Registry resolves extractor names to providers. Multiple registrations
// under one name are allowed; the last one wins deterministically and
// the overridden ones are reported when resolved.
type Registry struct {
	entries map[string][]Registration
	log     *zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zerolog.Logger) *Registry {
	return &Registry{
		entries: map[string][]Registration{},
		log:     log,
	}
}

// Register adds a registration.
func (r *Registry) Register(reg Registration) {
	r.entries[reg.Name] = append(r.entries[reg.Name], reg)
}

// Names returns all registered extractor names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Resolve returns the effective registration for a name. Returns
// ErrUnknownExtractor when nothing is registered under the name.
func (r *Registry) Resolve(name string) (Registration, error) {
	registrations := r.entries[name]
	if len(registrations) == 0 {
		return Registration{}, fmt.Errorf("%w: %q", ErrUnknownExtractor, name)
	}

	winner := registrations[len(registrations)-1]
	for _, overridden := range registrations[:len(registrations)-1] {
		r.log.Warn().
			Str("extractor", name).
			Str("used_origin", winner.Origin).
			Str("overridden_origin", overridden.Origin).
			Msg("extractor registration overridden")
	}
	return winner, nil
}
