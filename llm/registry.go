// Provider registry: immutable id -> ProviderSpec table.

package llm

import (
	"fmt"
	"maps"
	"strings"
	"sync"
)

// Registry maps provider ids to their specs. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	specs map[string]ProviderSpec
	order []string
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the built-in registry, constructed once.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		reg, err := NewRegistry()
		if err != nil {
			panic(fmt.Sprintf("llm: built-in registry is invalid: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// NewRegistry builds a registry from the built-ins plus extra specs. An
// extra spec with a new id registers a provider; one with an existing id
// overrides the non-zero fields of that entry.
func NewRegistry(extra ...ProviderSpec) (*Registry, error) {
	r := &Registry{specs: make(map[string]ProviderSpec)}
	for _, p := range AllProviderTypes() {
		r.put(builtinSpec(p))
	}
	for _, spec := range extra {
		spec.ID = normalizeID(spec.ID)
		if err := spec.validate(); err != nil {
			return nil, err
		}
		if existing, ok := r.specs[spec.ID]; ok {
			spec = overrideSpec(existing, spec)
		}
		r.put(spec)
	}
	return r, nil
}

func (r *Registry) put(spec ProviderSpec) {
	if _, ok := r.specs[spec.ID]; !ok {
		r.order = append(r.order, spec.ID)
	}
	r.specs[spec.ID] = spec
}

func normalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if p, err := ParseProviderType(id); err == nil {
		return p.String()
	}
	return id
}

func overrideSpec(base, o ProviderSpec) ProviderSpec {
	if o.Name != "" {
		base.Name = o.Name
	}
	if o.BaseURL != "" {
		base.BaseURL = o.BaseURL
	}
	if o.Endpoints.Chat != "" {
		base.Endpoints.Chat = o.Endpoints.Chat
	}
	if o.Endpoints.Models != "" {
		base.Endpoints.Models = o.Endpoints.Models
	}
	if o.DefaultModel != "" {
		base.DefaultModel = o.DefaultModel
	}
	if o.Timeout > 0 {
		base.Timeout = o.Timeout
	}
	if o.Auth.Type != "" {
		base.Auth = o.Auth
	}
	if o.RequestFormat != FormatInherit {
		base.RequestFormat = o.RequestFormat
	}
	if o.ResponseFormat != FormatInherit {
		base.ResponseFormat = o.ResponseFormat
	}
	if len(o.ExtraParams) > 0 {
		merged := maps.Clone(base.ExtraParams)
		if merged == nil {
			merged = make(map[string]any, len(o.ExtraParams))
		}
		maps.Copy(merged, o.ExtraParams)
		base.ExtraParams = merged
	}
	return base
}

// Get returns the spec registered under id (aliases accepted).
func (r *Registry) Get(id string) (ProviderSpec, bool) {
	spec, ok := r.specs[normalizeID(id)]
	if ok {
		spec.ExtraParams = maps.Clone(spec.ExtraParams)
	}
	return spec, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.specs[normalizeID(id)]
	return ok
}

// List returns all specs in registration order.
func (r *Registry) List() []ProviderSpec {
	out := make([]ProviderSpec, 0, len(r.order))
	for _, id := range r.order {
		spec, _ := r.Get(id)
		out = append(out, spec)
	}
	return out
}

// Resolve finds the spec for a client. Unregistered providers resolve to
// the OpenAI-compatible spec when their chat endpoint is a chat/completions
// path, otherwise to a configuration error.
func (r *Registry) Resolve(provider, chatEndpoint string) (ProviderSpec, error) {
	if spec, ok := r.Get(provider); ok {
		return spec, nil
	}
	if strings.Contains(chatEndpoint, compatibleChatEndpointKey) {
		spec := builtinSpec(ProviderOpenAICompatible)
		spec.ID = normalizeID(provider)
		return spec, nil
	}
	return ProviderSpec{}, configError("unsupported provider %q: register it or use a chat/completions endpoint", provider)
}
