// Package modelconfig resolves user-facing model configurations into LLM
// client configurations.
//
// It validates and normalizes what the settings UI submits, merges it with
// provider defaults, masks keys for display and orders the model list.
package modelconfig

import (
	"strings"
	"time"
)

// StandardModelType identifies a built-in provider slot.
type StandardModelType string

const (
	TypeOpenAI      StandardModelType = "openai"
	TypeClaude      StandardModelType = "claude"
	TypeGemini      StandardModelType = "gemini"
	TypeDeepSeek    StandardModelType = "deepseek"
	TypeHunyuan     StandardModelType = "hunyuan"
	TypeSiliconFlow StandardModelType = "siliconflow"
	TypeOllama      StandardModelType = "ollama"
)

// StandardModelTypes lists the standard slots in display order.
func StandardModelTypes() []StandardModelType {
	return []StandardModelType{TypeOpenAI, TypeClaude, TypeGemini, TypeDeepSeek, TypeHunyuan, TypeSiliconFlow, TypeOllama}
}

// IsStandardModelType reports whether id names a standard slot.
func IsStandardModelType(id string) bool {
	for _, t := range StandardModelTypes() {
		if string(t) == id {
			return true
		}
	}
	return false
}

// DefaultEndpoint is used when no endpoint is configured.
const DefaultEndpoint = "/chat/completions"

// ModelConfig is a persisted record for a standard model slot.
type ModelConfig struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	ProviderName string        `json:"providerName"`
	APIKey       string        `json:"apiKey"`
	BaseURL      string        `json:"baseUrl,omitempty"`
	Model        string        `json:"model"`
	Timeout      time.Duration `json:"timeout,omitempty"`
	Endpoint     string        `json:"endpoint,omitempty"`
	Enabled      bool          `json:"enabled"`
}

// CustomInterface is a user-defined endpoint. It shares ModelConfig's
// shape; its ID is a generated uuid and Name is user-chosen.
type CustomInterface ModelConfig

// Validation is the outcome of a config check.
type Validation struct {
	Valid bool `json:"valid"`
	// Field is the first failing field.
	Field string `json:"field,omitempty"`
	// Key is a message key the UI can localize.
	Key     string `json:"key,omitempty"`
	Message string `json:"message,omitempty"`
}

var valid = Validation{Valid: true}

func invalid(field, key, msg string) Validation {
	return Validation{Field: field, Key: key, Message: msg}
}

// ValidateBaseConfig checks what is needed to reach a provider: API key,
// provider name for standard configs, then base URL.
func ValidateBaseConfig(m ModelConfig, standard bool) Validation {
	if strings.TrimSpace(m.APIKey) == "" {
		return invalid("apiKey", "toast.validation.apiKeyRequired", "API Key required")
	}
	if standard && strings.TrimSpace(m.ProviderName) == "" {
		return invalid("providerName", "toast.validation.providerRequired", "Provider name required")
	}
	if strings.TrimSpace(m.BaseURL) == "" {
		return invalid("baseUrl", "toast.validation.baseUrlRequired", "Base URL required")
	}
	return valid
}

// ValidateModelConfig is ValidateBaseConfig plus a model name.
func ValidateModelConfig(m ModelConfig, standard bool) Validation {
	if v := ValidateBaseConfig(m, standard); !v.Valid {
		return v
	}
	if strings.TrimSpace(m.Model) == "" {
		return invalid("model", "toast.validation.modelRequired", "Model name required")
	}
	return valid
}

// FormatBaseURL trims whitespace and trailing slashes. It never adds a scheme.
func FormatBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// FormatEndpoint returns DefaultEndpoint for an empty value, otherwise
// ensures one leading slash and collapses repeated slashes.
func FormatEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultEndpoint
	}
	var b strings.Builder
	b.Grow(len(raw) + 1)
	b.WriteByte('/')
	prevSlash := true
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// MaskAPIKey hides all but the first and last three characters. Keys of
// eight characters or fewer are masked entirely. The length is preserved.
func MaskAPIKey(key string) string {
	r := []rune(key)
	if len(r) <= 8 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:3]) + strings.Repeat("*", len(r)-6) + string(r[len(r)-3:])
}

// ResolveAPIKey returns original when submitted is its masked form, so
// saving an untouched form does not overwrite the stored key.
func ResolveAPIKey(submitted, original string) string {
	if original != "" && submitted == MaskAPIKey(original) {
		return original
	}
	return submitted
}
