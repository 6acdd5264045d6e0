// Package service resolves stored model configurations into LLM calls.
//
// Every call reads the settings record afresh, so a model saved through one
// surface (HTTP or CLI) is used by the next call on any other.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/booster/comparison"
	"github.com/richinex/booster/connection"
	"github.com/richinex/booster/llm"
	"github.com/richinex/booster/modelconfig"
	"github.com/richinex/booster/storage"
)

var (
	// ErrModelNotFound is returned for an id that names no stored model.
	ErrModelNotFound = errors.New("model not found")
	// ErrNoActiveModel is returned when no id is given and none is active.
	ErrNoActiveModel = errors.New("no active model selected")
)

// ValidationError reports the first invalid field of a submitted config.
type ValidationError struct {
	modelconfig.Validation
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Service is the entry point the server and CLI share.
type Service struct {
	store       *storage.ModelStore
	resolver    *modelconfig.Resolver
	tester      *connection.Tester
	comparer    *comparison.Runner
	temperature float64
	timeout     time.Duration
	log         zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTemperature sets the temperature used when a request leaves it unset.
func WithTemperature(t float64) Option {
	return func(s *Service) {
		s.temperature = t
	}
}

// WithTimeout sets the request timeout for stored models that set none.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithTester replaces the connection tester.
func WithTester(t *connection.Tester) Option {
	return func(s *Service) {
		s.tester = t
	}
}

// New creates a service over kv. reg may be nil for the built-in registry.
func New(kv storage.KVStore, reg *llm.Registry, log zerolog.Logger, opts ...Option) *Service {
	if reg == nil {
		reg = llm.DefaultRegistry()
	}
	resolver := modelconfig.NewResolver(reg, log)
	s := &Service{
		store:       storage.NewModelStore(kv, resolver.DefaultConfigs),
		resolver:    resolver,
		tester:      connection.NewTester(reg, connection.WithLogger(log)),
		comparer:    comparison.NewRunner(reg, log),
		temperature: llm.DefaultTemperature,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the provider registry.
func (s *Service) Registry() *llm.Registry {
	return s.resolver.Registry()
}

// Settings returns the stored settings with unmasked keys.
func (s *Service) Settings(ctx context.Context) (storage.ModelSettings, error) {
	return s.store.Load(ctx)
}

// Models returns the model picker rows with masked keys.
func (s *Service) Models(ctx context.Context) ([]modelconfig.DisplayModel, string, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return nil, "", err
	}
	rows := modelconfig.PrepareModelsForDisplay(settings.StandardConfigs(), settings.CustomInterfaces)
	return modelconfig.MaskForDisplay(rows), settings.ActiveModel, nil
}

// SaveStandardModel merges form with the slot defaults, keeps the stored key
// when the form carries its masked form, validates and saves.
func (s *Service) SaveStandardModel(ctx context.Context, modelType string, form modelconfig.ModelConfig) (modelconfig.ModelConfig, error) {
	if !modelconfig.IsStandardModelType(modelType) {
		return modelconfig.ModelConfig{}, fmt.Errorf("%s: %w", modelType, ErrModelNotFound)
	}
	settings, err := s.store.Load(ctx)
	if err != nil {
		return modelconfig.ModelConfig{}, err
	}

	form.ID = modelType
	form.APIKey = modelconfig.ResolveAPIKey(form.APIKey, settings.Configs[modelType].APIKey)
	merged := s.resolver.MergeWithDefaults(form, true, modelType)
	merged.BaseURL = modelconfig.FormatBaseURL(merged.BaseURL)
	merged.Endpoint = modelconfig.FormatEndpoint(merged.Endpoint)

	if v := modelconfig.ValidateModelConfig(merged, true); !v.Valid {
		return modelconfig.ModelConfig{}, &ValidationError{v}
	}
	if err := s.store.SaveModelConfig(ctx, merged); err != nil {
		return modelconfig.ModelConfig{}, err
	}
	s.log.Info().Str("model_id", modelType).Str("model", merged.Model).Bool("enabled", merged.Enabled).Msg("model config saved")
	return merged, nil
}

// AddCustomInterface validates and stores a new custom interface.
func (s *Service) AddCustomInterface(ctx context.Context, form modelconfig.CustomInterface) (modelconfig.CustomInterface, error) {
	ci := normalizeCustom(form)
	if v := modelconfig.ValidateModelConfig(modelconfig.ModelConfig(ci), false); !v.Valid {
		return modelconfig.CustomInterface{}, &ValidationError{v}
	}
	saved, err := s.store.AddCustomInterface(ctx, ci)
	if err != nil {
		return modelconfig.CustomInterface{}, err
	}
	s.log.Info().Str("model_id", saved.ID).Str("provider", saved.ProviderName).Msg("custom interface added")
	return saved, nil
}

// UpdateCustomInterface validates and replaces a stored custom interface.
func (s *Service) UpdateCustomInterface(ctx context.Context, form modelconfig.CustomInterface) (modelconfig.CustomInterface, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return modelconfig.CustomInterface{}, err
	}
	existing, custom, ok := settings.Find(form.ID)
	if !ok || !custom {
		return modelconfig.CustomInterface{}, fmt.Errorf("%s: %w", form.ID, ErrModelNotFound)
	}

	ci := normalizeCustom(form)
	ci.APIKey = modelconfig.ResolveAPIKey(ci.APIKey, existing.APIKey)
	if v := modelconfig.ValidateModelConfig(modelconfig.ModelConfig(ci), false); !v.Valid {
		return modelconfig.CustomInterface{}, &ValidationError{v}
	}
	if err := s.store.UpdateCustomInterface(ctx, ci); err != nil {
		return modelconfig.CustomInterface{}, err
	}
	return ci, nil
}

func normalizeCustom(ci modelconfig.CustomInterface) modelconfig.CustomInterface {
	ci.Name = strings.TrimSpace(ci.Name)
	ci.ProviderName = strings.TrimSpace(ci.ProviderName)
	if ci.Name == "" {
		ci.Name = ci.ProviderName
	}
	ci.BaseURL = modelconfig.FormatBaseURL(ci.BaseURL)
	ci.Endpoint = modelconfig.FormatEndpoint(ci.Endpoint)
	ci.Model = strings.TrimSpace(ci.Model)
	return ci
}

// DeleteCustomInterface removes a custom interface.
func (s *Service) DeleteCustomInterface(ctx context.Context, id string) error {
	if err := s.store.DeleteCustomInterface(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", id, ErrModelNotFound)
		}
		return err
	}
	s.log.Info().Str("model_id", id).Msg("custom interface deleted")
	return nil
}

// SetActiveModel selects the model used when a call names none.
func (s *Service) SetActiveModel(ctx context.Context, id string) error {
	if err := s.store.SetActiveModel(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", id, ErrModelNotFound)
		}
		return err
	}
	return nil
}

// lookup returns the stored config for id, or for the active model when id
// is empty.
func (s *Service) lookup(ctx context.Context, id string) (modelconfig.ModelConfig, bool, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return modelconfig.ModelConfig{}, false, err
	}
	if id == "" {
		id = settings.ActiveModel
	}
	if id == "" {
		return modelconfig.ModelConfig{}, false, ErrNoActiveModel
	}
	cfg, custom, ok := settings.Find(id)
	if !ok {
		return modelconfig.ModelConfig{}, false, fmt.Errorf("%s: %w", id, ErrModelNotFound)
	}
	return s.withDefaultTimeout(cfg), custom, nil
}

func (s *Service) withDefaultTimeout(m modelconfig.ModelConfig) modelconfig.ModelConfig {
	if m.Timeout <= 0 {
		m.Timeout = s.timeout
	}
	return m
}

// ClientConfig resolves a stored model into a client configuration.
func (s *Service) ClientConfig(ctx context.Context, modelID string) (llm.ClientConfig, error) {
	cfg, custom, err := s.lookup(ctx, modelID)
	if err != nil {
		return llm.ClientConfig{}, err
	}
	return s.resolver.ClientConfig(cfg, custom), nil
}

// ClientFor builds a client for a stored model.
func (s *Service) ClientFor(ctx context.Context, modelID string) (*llm.Client, error) {
	cfg, custom, err := s.lookup(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return s.resolver.NewClient(cfg, custom)
}

// Request is a chat call against a stored model.
type Request struct {
	ModelID       string            `json:"modelId,omitempty"`
	UserMessage   string            `json:"userMessage"`
	SystemMessage string            `json:"systemMessage,omitempty"`
	History       []llm.ChatMessage `json:"history,omitempty"`
	Temperature   *float64          `json:"temperature,omitempty"`
	MaxTokens     int               `json:"maxTokens,omitempty"`
}

func (s *Service) chatRequest(r Request) llm.ChatRequest {
	temp := r.Temperature
	if temp == nil {
		temp = llm.Temp(s.temperature)
	}
	return llm.ChatRequest{
		UserMessage:   r.UserMessage,
		SystemMessage: r.SystemMessage,
		History:       r.History,
		Options:       llm.Options{Temperature: temp, MaxTokens: r.MaxTokens},
	}
}

// Chat sends a buffered request.
func (s *Service) Chat(ctx context.Context, r Request) (*llm.ChatResponse, error) {
	client, err := s.ClientFor(ctx, r.ModelID)
	if err != nil {
		return nil, err
	}
	return client.Chat(ctx, s.chatRequest(r))
}

// Stream streams a request into h. The returned error covers only model
// resolution; stream failures go to h.OnError.
func (s *Service) Stream(ctx context.Context, r Request, h llm.StreamHandler) error {
	client, err := s.ClientFor(ctx, r.ModelID)
	if err != nil {
		return err
	}
	s.StreamWith(ctx, client, r, h)
	return nil
}

// StreamWith streams r through an already resolved client.
func (s *Service) StreamWith(ctx context.Context, client *llm.Client, r Request, h llm.StreamHandler) {
	client.StreamChat(ctx, s.chatRequest(r), h)
}

// CallLLM runs a request and returns the full text. With stream set, deltas
// are forwarded to h as they arrive and the accumulated text is returned.
func (s *Service) CallLLM(ctx context.Context, r Request, stream bool, h llm.StreamHandler) (string, error) {
	if !stream {
		resp, err := s.Chat(ctx, r)
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}

	var (
		full      strings.Builder
		streamErr error
	)
	err := s.Stream(ctx, r, llm.StreamFuncs{
		Data: func(delta string) {
			full.WriteString(delta)
			if h != nil {
				h.OnData(delta)
			}
		},
		Error: func(err error) {
			streamErr = err
			if h != nil {
				h.OnError(err)
			}
		},
		Complete: func() {
			if h != nil {
				h.OnComplete()
			}
		},
	})
	if err != nil {
		return "", err
	}
	return full.String(), streamErr
}

// TestConnection probes raw connection parameters.
func (s *Service) TestConnection(ctx context.Context, p connection.Params) connection.Result {
	return s.tester.Test(ctx, p)
}

// TestModel probes a stored model.
func (s *Service) TestModel(ctx context.Context, modelID string) (connection.Result, error) {
	return s.TestModelWith(ctx, modelID, s.tester)
}

// TestModelWith probes a stored model with a specific tester.
func (s *Service) TestModelWith(ctx context.Context, modelID string, t *connection.Tester) (connection.Result, error) {
	cfg, err := s.ClientConfig(ctx, modelID)
	if err != nil {
		return connection.Result{}, err
	}
	return t.Test(ctx, connection.Params{
		Provider:       cfg.Provider,
		APIKey:         cfg.APIKey,
		BaseURL:        s.baseURL(cfg),
		Model:          s.model(cfg),
		Endpoint:       cfg.Endpoints.Chat,
		Timeout:        cfg.Timeout,
		Auth:           cfg.Auth,
		RequestFormat:  cfg.RequestFormat,
		ResponseFormat: cfg.ResponseFormat,
	}), nil
}

func (s *Service) baseURL(cfg llm.ClientConfig) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if spec, ok := s.Registry().Get(cfg.Provider); ok {
		return spec.BaseURL
	}
	return ""
}

func (s *Service) model(cfg llm.ClientConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	if spec, ok := s.Registry().Get(cfg.Provider); ok {
		return spec.DefaultModel
	}
	return ""
}

// FetchModels lists the catalog for a model slot. form holds the values
// being edited; a masked key in it resolves to the stored key. An empty form
// uses the stored config.
func (s *Service) FetchModels(ctx context.Context, id string, form *modelconfig.ModelConfig) ([]modelconfig.ModelOption, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	stored, custom, found := settings.Find(id)
	if !found {
		custom = !modelconfig.IsStandardModelType(id)
	}

	m := stored
	if form != nil {
		m = *form
	}
	m = s.withDefaultTimeout(m)
	var original string
	if found && m.APIKey == modelconfig.MaskAPIKey(stored.APIKey) {
		original = stored.APIKey
	}
	return s.resolver.FetchModelList(ctx, m, custom, id, original)
}

// Compare streams one user message through two system prompts against a
// stored model.
func (s *Service) Compare(ctx context.Context, modelID, userMessage string, original, optimized comparison.Side) error {
	cfg, err := s.ClientConfig(ctx, modelID)
	if err != nil {
		return err
	}
	return s.comparer.Run(ctx, comparison.Params{
		UserMessage: userMessage,
		Config:      cfg,
		Options:     llm.Options{Temperature: llm.Temp(s.temperature)},
		Original:    original,
		Optimized:   optimized,
	})
}
