// Built-in providers and a builder-first API for client configs.
//
// Quick Start:
//
//	// Defaults, API key from environment
//	client, err := llm.ProviderOpenAI.FromEnv()
//
//	// Custom model and timeout
//	client, err := llm.ProviderOllama.Model("llama3").Timeout(5 * time.Minute).APIKey("ollama")
//
//	// Just the config, for a custom registry
//	cfg := llm.NewConfigBuilder(llm.ProviderGemini).Model("gemini-2.0-pro").Config(key)

package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ProviderType enumerates the built-in providers.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderClaude is the Anthropic provider (Claude models).
	ProviderClaude
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderHunyuan is the Tencent Hunyuan provider.
	ProviderHunyuan
	// ProviderSiliconFlow is the SiliconFlow provider.
	ProviderSiliconFlow
	// ProviderOllama is a local Ollama server.
	ProviderOllama
	// ProviderOpenAICompatible is the generic fallback for any server that
	// speaks the OpenAI chat completions protocol.
	ProviderOpenAICompatible
)

// Default models.
const (
	ModelOpenAIGPT4oMini      = "gpt-4o-mini"
	ModelClaudeSonnet4        = "claude-sonnet-4-20250514"
	ModelGeminiFlash2         = "gemini-2.0-flash"
	ModelDeepSeekChat         = "deepseek-chat"
	ModelHunyuanTurboSLatest  = "hunyuan-turbos-latest"
	ModelSiliconFlowQwQ32B    = "Qwen/QwQ-32B"
	ModelOllamaQwen3          = "qwen3:32b"
	defaultProviderTimeout    = 60 * time.Second
	defaultOllamaTimeout      = 180 * time.Second
	defaultChatEndpoint       = "/chat/completions"
	defaultModelsEndpoint     = "/models"
	compatibleChatEndpointKey = "chat/completions"
)

// String returns the registry id of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderClaude:
		return "claude"
	case ProviderGemini:
		return "gemini"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderHunyuan:
		return "hunyuan"
	case ProviderSiliconFlow:
		return "siliconflow"
	case ProviderOllama:
		return "ollama"
	case ProviderOpenAICompatible:
		return "openai-compatible"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderClaude:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderHunyuan:
		return "HUNYUAN_API_KEY"
	case ProviderSiliconFlow:
		return "SILICONFLOW_API_KEY"
	case ProviderOllama:
		return "OLLAMA_API_KEY"
	case ProviderOpenAICompatible:
		return "OPENAI_COMPATIBLE_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	return builtinSpec(p).DefaultModel
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "claude", "anthropic":
		return ProviderClaude, nil
	case "gemini", "google":
		return ProviderGemini, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "hunyuan":
		return ProviderHunyuan, nil
	case "siliconflow":
		return ProviderSiliconFlow, nil
	case "ollama":
		return ProviderOllama, nil
	case "openai-compatible", "openai_compatible", "compatible":
		return ProviderOpenAICompatible, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// AllProviderTypes lists the registered built-ins; the compatible fallback
// is not listed.
func AllProviderTypes() []ProviderType {
	return []ProviderType{
		ProviderOpenAI, ProviderClaude, ProviderGemini, ProviderDeepSeek,
		ProviderHunyuan, ProviderSiliconFlow, ProviderOllama,
	}
}

func builtinSpec(p ProviderType) ProviderSpec {
	openAILike := func(name, baseURL, model string) ProviderSpec {
		return ProviderSpec{
			ID:             p.String(),
			Name:           name,
			BaseURL:        baseURL,
			Endpoints:      Endpoints{Chat: defaultChatEndpoint, Models: defaultModelsEndpoint},
			DefaultModel:   model,
			Timeout:        defaultProviderTimeout,
			Auth:           AuthSpec{Type: AuthBearer},
			RequestFormat:  FormatOpenAI,
			ResponseFormat: FormatOpenAI,
		}
	}

	switch p {
	case ProviderOpenAI:
		return openAILike("OpenAI", "https://api.openai.com/v1", ModelOpenAIGPT4oMini)
	case ProviderClaude:
		s := openAILike("Claude", "https://api.anthropic.com/v1", ModelClaudeSonnet4)
		s.Endpoints.Chat = "/messages"
		s.Auth = AuthSpec{Type: AuthAPIKey}
		s.RequestFormat, s.ResponseFormat = FormatAnthropic, FormatAnthropic
		return s
	case ProviderGemini:
		s := openAILike("Gemini", "https://generativelanguage.googleapis.com/v1beta", ModelGeminiFlash2)
		s.Endpoints.Chat = "/models/{model}:generateContent"
		s.Auth = AuthSpec{Type: AuthQueryParam, ParamName: "key"}
		s.RequestFormat, s.ResponseFormat = FormatGemini, FormatGemini
		return s
	case ProviderDeepSeek:
		return openAILike("DeepSeek", "https://api.deepseek.com/v1", ModelDeepSeekChat)
	case ProviderHunyuan:
		s := openAILike("Hunyuan", "https://api.hunyuan.cloud.tencent.com/v1", ModelHunyuanTurboSLatest)
		s.ExtraParams = map[string]any{"enable_enhancement": true}
		return s
	case ProviderSiliconFlow:
		return openAILike("SiliconFlow", "https://api.siliconflow.cn/v1", ModelSiliconFlowQwQ32B)
	case ProviderOllama:
		s := openAILike("Ollama", "http://localhost:11434", ModelOllamaQwen3)
		s.Endpoints = Endpoints{Chat: "/api/chat", Models: "/api/tags"}
		s.Timeout = defaultOllamaTimeout
		s.Auth = AuthSpec{Type: AuthNone}
		s.RequestFormat, s.ResponseFormat = FormatOllama, FormatOllama
		return s
	case ProviderOpenAICompatible:
		s := openAILike("OpenAI Compatible", "", "")
		return s
	default:
		return ProviderSpec{}
	}
}

// ConfigBuilder builds a ClientConfig for a built-in provider.
type ConfigBuilder struct {
	provider ProviderType
	model    string
	baseURL  string
	timeout  time.Duration
	registry *Registry
}

// NewConfigBuilder creates a builder with the provider's defaults.
func NewConfigBuilder(provider ProviderType) *ConfigBuilder {
	return &ConfigBuilder{provider: provider}
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ConfigBuilder {
	return NewConfigBuilder(p).Model(model)
}

// APIKey creates a client with an explicit API key and defaults for everything else.
func (p ProviderType) APIKey(key string) (*Client, error) {
	return NewConfigBuilder(p).APIKey(key)
}

// FromEnv creates a client with defaults, reading the API key from environment.
func (p ProviderType) FromEnv() (*Client, error) {
	return NewConfigBuilder(p).FromEnv()
}

// Model sets the model.
func (b *ConfigBuilder) Model(model string) *ConfigBuilder {
	b.model = model
	return b
}

// BaseURL overrides the provider base URL.
func (b *ConfigBuilder) BaseURL(baseURL string) *ConfigBuilder {
	b.baseURL = baseURL
	return b
}

// Timeout overrides the provider timeout.
func (b *ConfigBuilder) Timeout(d time.Duration) *ConfigBuilder {
	b.timeout = d
	return b
}

// Registry builds clients against reg instead of DefaultRegistry.
func (b *ConfigBuilder) Registry(reg *Registry) *ConfigBuilder {
	b.registry = reg
	return b
}

// Config returns the ClientConfig without creating a client.
func (b *ConfigBuilder) Config(apiKey string) ClientConfig {
	cfg := ClientConfig{
		Provider: b.provider.String(),
		APIKey:   apiKey,
		BaseURL:  b.baseURL,
		Model:    b.model,
		Timeout:  b.timeout,
	}
	if b.provider == ProviderOpenAICompatible {
		cfg.Endpoints.Chat = defaultChatEndpoint
	}
	return cfg
}

// APIKey creates the client with an explicit key.
func (b *ConfigBuilder) APIKey(key string, opts ...Option) (*Client, error) {
	reg := b.registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	return NewClient(reg, b.Config(key), opts...)
}

// FromEnv creates the client, reading the API key from the environment.
func (b *ConfigBuilder) FromEnv(opts ...Option) (*Client, error) {
	envVar := b.provider.EnvVar()
	key := os.Getenv(envVar)
	if key == "" {
		return nil, configError("environment variable %s not set", envVar)
	}
	return b.APIKey(key, opts...)
}
