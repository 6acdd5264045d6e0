package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/richinex/booster/modelconfig"
)

// ModelSettingsKey is the record holding all model settings.
const ModelSettingsKey = "model-settings"

// ModelSettings is everything the model picker persists.
type ModelSettings struct {
	Configs          map[string]modelconfig.ModelConfig `json:"configs"`
	CustomInterfaces []modelconfig.CustomInterface      `json:"customInterfaces"`
	ActiveModel      string                             `json:"activeModel,omitempty"`
}

// StandardConfigs returns the standard slots keyed by type.
func (s ModelSettings) StandardConfigs() map[modelconfig.StandardModelType]modelconfig.ModelConfig {
	out := make(map[modelconfig.StandardModelType]modelconfig.ModelConfig, len(s.Configs))
	for id, cfg := range s.Configs {
		out[modelconfig.StandardModelType(id)] = cfg
	}
	return out
}

// Find returns the config for id and whether it is a custom interface.
func (s ModelSettings) Find(id string) (modelconfig.ModelConfig, bool, bool) {
	if cfg, ok := s.Configs[id]; ok {
		return cfg, false, true
	}
	for _, ci := range s.CustomInterfaces {
		if ci.ID == id {
			return modelconfig.ModelConfig(ci), true, true
		}
	}
	return modelconfig.ModelConfig{}, false, false
}

// ModelStore reads and writes ModelSettings. Every read goes to the
// underlying store so other writers are seen immediately.
type ModelStore struct {
	kv       KVStore
	defaults func() map[modelconfig.StandardModelType]modelconfig.ModelConfig
	mu       sync.Mutex
}

// NewModelStore creates a store. defaults, when non-nil, seeds standard
// slots missing from the persisted record.
func NewModelStore(kv KVStore, defaults func() map[modelconfig.StandardModelType]modelconfig.ModelConfig) *ModelStore {
	return &ModelStore{kv: kv, defaults: defaults}
}

// Load returns the current settings.
func (m *ModelStore) Load(ctx context.Context) (ModelSettings, error) {
	settings := ModelSettings{Configs: map[string]modelconfig.ModelConfig{}}

	raw, err := m.kv.Get(ctx, ModelSettingsKey)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return settings, fmt.Errorf("failed to load model settings: %w", err)
	default:
		if err := json.Unmarshal(raw, &settings); err != nil {
			return settings, fmt.Errorf("failed to decode model settings: %w", err)
		}
		if settings.Configs == nil {
			settings.Configs = map[string]modelconfig.ModelConfig{}
		}
	}

	if m.defaults != nil {
		for t, def := range m.defaults() {
			if _, ok := settings.Configs[string(t)]; !ok {
				settings.Configs[string(t)] = def
			}
		}
	}
	return settings, nil
}

func (m *ModelStore) save(ctx context.Context, s ModelSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode model settings: %w", err)
	}
	return m.kv.Set(ctx, ModelSettingsKey, raw)
}

func (m *ModelStore) update(ctx context.Context, fn func(*ModelSettings) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&s); err != nil {
		return err
	}
	return m.save(ctx, s)
}

// SaveModelConfig stores a standard slot under cfg.ID.
func (m *ModelStore) SaveModelConfig(ctx context.Context, cfg modelconfig.ModelConfig) error {
	if !modelconfig.IsStandardModelType(cfg.ID) {
		return fmt.Errorf("unknown standard model type %q", cfg.ID)
	}
	return m.update(ctx, func(s *ModelSettings) error {
		s.Configs[cfg.ID] = cfg
		return nil
	})
}

// AddCustomInterface stores a new custom interface and returns it with its
// generated id.
func (m *ModelStore) AddCustomInterface(ctx context.Context, ci modelconfig.CustomInterface) (modelconfig.CustomInterface, error) {
	ci.ID = uuid.NewString()
	err := m.update(ctx, func(s *ModelSettings) error {
		s.CustomInterfaces = append(s.CustomInterfaces, ci)
		return nil
	})
	return ci, err
}

// UpdateCustomInterface replaces the interface with ci.ID.
func (m *ModelStore) UpdateCustomInterface(ctx context.Context, ci modelconfig.CustomInterface) error {
	return m.update(ctx, func(s *ModelSettings) error {
		for i := range s.CustomInterfaces {
			if s.CustomInterfaces[i].ID == ci.ID {
				s.CustomInterfaces[i] = ci
				return nil
			}
		}
		return fmt.Errorf("custom interface %s: %w", ci.ID, ErrNotFound)
	})
}

// DeleteCustomInterface removes an interface and clears it as active model.
func (m *ModelStore) DeleteCustomInterface(ctx context.Context, id string) error {
	return m.update(ctx, func(s *ModelSettings) error {
		for i := range s.CustomInterfaces {
			if s.CustomInterfaces[i].ID == id {
				s.CustomInterfaces = append(s.CustomInterfaces[:i], s.CustomInterfaces[i+1:]...)
				if s.ActiveModel == id {
					s.ActiveModel = ""
				}
				return nil
			}
		}
		return fmt.Errorf("custom interface %s: %w", id, ErrNotFound)
	})
}

// SetActiveModel selects the model used when none is named.
func (m *ModelStore) SetActiveModel(ctx context.Context, id string) error {
	return m.update(ctx, func(s *ModelSettings) error {
		if _, _, ok := s.Find(id); !ok {
			return fmt.Errorf("model %s: %w", id, ErrNotFound)
		}
		s.ActiveModel = id
		return nil
	})
}
