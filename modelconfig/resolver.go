package modelconfig

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/richinex/booster/llm"
)

// Resolver ties model configurations to a provider registry.
type Resolver struct {
	registry *llm.Registry
	log      zerolog.Logger
}

// NewResolver creates a resolver over reg (DefaultRegistry when nil).
func NewResolver(reg *llm.Registry, log zerolog.Logger) *Resolver {
	if reg == nil {
		reg = llm.DefaultRegistry()
	}
	return &Resolver{registry: reg, log: log}
}

// Registry returns the registry the resolver builds clients against.
func (r *Resolver) Registry() *llm.Registry {
	return r.registry
}

// DefaultConfig returns the built-in configuration of a standard slot.
func (r *Resolver) DefaultConfig(t StandardModelType) (ModelConfig, bool) {
	spec, ok := r.registry.Get(string(t))
	if !ok {
		return ModelConfig{}, false
	}
	return ModelConfig{
		ID:           string(t),
		ProviderName: spec.Name,
		BaseURL:      spec.BaseURL,
		Model:        spec.DefaultModel,
		Timeout:      spec.Timeout,
		Endpoint:     spec.Endpoints.Chat,
	}, true
}

// DefaultConfigs returns defaults for every standard slot the registry knows.
func (r *Resolver) DefaultConfigs() map[StandardModelType]ModelConfig {
	out := make(map[StandardModelType]ModelConfig)
	for _, t := range StandardModelTypes() {
		if cfg, ok := r.DefaultConfig(t); ok {
			out[t] = cfg
		}
	}
	return out
}

// MergeWithDefaults completes a submitted form. Standard slots start from
// the built-in defaults, take the user's non-empty fields, keep the default
// provider name and fall back to the default base URL and endpoint. Custom
// interfaces and unknown types are returned with empty defaults.
func (r *Resolver) MergeWithDefaults(form ModelConfig, standard bool, modelType string) ModelConfig {
	if !standard {
		return form
	}
	def, ok := r.DefaultConfig(StandardModelType(modelType))
	if !ok {
		return form
	}

	merged := def
	if form.ID != "" {
		merged.ID = form.ID
	}
	merged.Name = form.Name
	merged.APIKey = form.APIKey
	if form.Model != "" {
		merged.Model = form.Model
	}
	if form.Timeout > 0 {
		merged.Timeout = form.Timeout
	}
	if form.BaseURL != "" {
		merged.BaseURL = form.BaseURL
	}
	if form.Endpoint != "" {
		merged.Endpoint = form.Endpoint
	}
	merged.Enabled = form.Enabled
	return merged
}

// ClientConfig converts a stored configuration into a client configuration.
// Custom interfaces whose endpoint is a chat/completions path are forced
// onto the OpenAI-compatible wire format with bearer auth.
func (r *Resolver) ClientConfig(m ModelConfig, custom bool) llm.ClientConfig {
	cfg := llm.ClientConfig{
		APIKey:  m.APIKey,
		BaseURL: FormatBaseURL(m.BaseURL),
		Model:   strings.TrimSpace(m.Model),
		Timeout: m.Timeout,
	}
	if !custom {
		cfg.Provider = m.ID
		if strings.TrimSpace(m.Endpoint) != "" {
			cfg.Endpoints.Chat = FormatEndpoint(m.Endpoint)
		}
		return cfg
	}

	cfg.Provider = customProviderID(m.ProviderName)
	cfg.Endpoints.Chat = FormatEndpoint(m.Endpoint)
	if strings.Contains(cfg.Endpoints.Chat, "chat/completions") {
		cfg.Auth = &llm.AuthSpec{Type: llm.AuthBearer}
		cfg.RequestFormat = llm.FormatOpenAI
		cfg.ResponseFormat = llm.FormatOpenAI
		if !r.registry.Has(cfg.Provider) {
			cfg.Endpoints.Models = "/models"
		}
	}
	return cfg
}

// NewClient builds a client for a stored configuration.
func (r *Resolver) NewClient(m ModelConfig, custom bool) (*llm.Client, error) {
	return llm.NewClient(r.registry, r.ClientConfig(m, custom), llm.WithLogger(r.log))
}

func customProviderID(providerName string) string {
	id := strings.ToLower(strings.TrimSpace(providerName))
	id = strings.Join(strings.Fields(id), "-")
	if id == "" {
		return "custom"
	}
	return id
}

// ModelOption is a catalog entry ready for a picker.
type ModelOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FormatModelOptions converts catalog entries, naming unnamed models by id.
func FormatModelOptions(models []llm.ModelInfo) []ModelOption {
	out := make([]ModelOption, 0, len(models))
	for _, m := range models {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		out = append(out, ModelOption{ID: m.ID, Name: name})
	}
	return out
}

// FetchModelList validates the connection fields, then lists the provider's
// models. originalAPIKey, when set, replaces a masked key from the form.
func (r *Resolver) FetchModelList(ctx context.Context, m ModelConfig, custom bool, modelType, originalAPIKey string) ([]ModelOption, error) {
	if v := ValidateBaseConfig(m, !custom); !v.Valid {
		return nil, &llm.Error{Kind: llm.KindValidation, Message: v.Message}
	}
	if originalAPIKey != "" {
		m.APIKey = originalAPIKey
	}
	if !custom && modelType != "" {
		m.ID = modelType
	}
	if strings.TrimSpace(m.Model) == "" {
		m.Model = "default"
	}

	client, err := r.NewClient(m, custom)
	if err != nil {
		return nil, err
	}
	models, err := client.GetModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch models from %s: %w", client.Provider(), err)
	}
	r.log.Debug().Str("provider", client.Provider()).Int("count", len(models)).Msg("model list fetched")
	return FormatModelOptions(models), nil
}

// DisplayModel is one row of the model picker.
type DisplayModel struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	ProviderName string      `json:"providerName"`
	Model        string      `json:"model"`
	IsStandard   bool        `json:"isStandard"`
	IsEnabled    bool        `json:"isEnabled"`
	APIKey       string      `json:"apiKey"`
	Config       ModelConfig `json:"config"`
}

func (d DisplayModel) sortKey() string {
	return d.ProviderName + " - " + d.Model
}

// PrepareModelsForDisplay lists standard and custom models with enabled
// entries first, custom before standard, then by "providerName - model".
// Ties fall back to id so the order is deterministic.
func PrepareModelsForDisplay(configs map[StandardModelType]ModelConfig, custom []CustomInterface) []DisplayModel {
	out := make([]DisplayModel, 0, len(configs)+len(custom))
	for id, cfg := range configs {
		out = append(out, DisplayModel{
			ID:           string(id),
			Name:         cfg.ProviderName + " - " + cfg.Model,
			ProviderName: cfg.ProviderName,
			Model:        cfg.Model,
			IsStandard:   true,
			IsEnabled:    cfg.Enabled,
			APIKey:       cfg.APIKey,
			Config:       cfg,
		})
	}
	for _, ci := range custom {
		out = append(out, DisplayModel{
			ID:           ci.ID,
			Name:         ci.Name,
			ProviderName: ci.ProviderName,
			Model:        ci.Model,
			IsEnabled:    ci.Enabled,
			APIKey:       ci.APIKey,
			Config:       ModelConfig(ci),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsEnabled != b.IsEnabled {
			return a.IsEnabled
		}
		if a.IsStandard != b.IsStandard {
			return !a.IsStandard
		}
		if ka, kb := a.sortKey(), b.sortKey(); ka != kb {
			return ka < kb
		}
		return a.ID < b.ID
	})
	return out
}

// MaskForDisplay returns a copy with every API key masked.
func MaskForDisplay(models []DisplayModel) []DisplayModel {
	out := make([]DisplayModel, len(models))
	for i, m := range models {
		m.APIKey = MaskAPIKey(m.APIKey)
		m.Config.APIKey = m.APIKey
		out[i] = m
	}
	return out
}
