// Package llm provides a unified client over heterogeneous LLM providers.
//
// A provider is described by a ProviderSpec and served through a strategy
// triple. Each part hides one concern:
// - AuthStrategy: where the API key travels
// - RequestFormatter: the provider's request body shape
// - ResponseParser: full responses and stream chunks back to plain text
//
// All variants are closed enums selected by switch, so a ProviderSpec can be
// loaded from data and still only ever produce known strategies.

package llm

import (
	"fmt"
	"strings"
	"time"
)

// FormatType is the closed set of wire formats. The zero value inherits.
type FormatType string

const (
	FormatInherit   FormatType = ""
	FormatOpenAI    FormatType = "openai_compatible"
	FormatGemini    FormatType = "gemini"
	FormatOllama    FormatType = "ollama"
	FormatAnthropic FormatType = "anthropic"
)

// ParseFormatType parses a format name (case-insensitive).
func ParseFormatType(s string) (FormatType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FormatInherit, nil
	case "openai", "openai_compatible", "openai-compatible":
		return FormatOpenAI, nil
	case "gemini", "google":
		return FormatGemini, nil
	case "ollama":
		return FormatOllama, nil
	case "anthropic", "claude":
		return FormatAnthropic, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// RequestFormatter turns a ChatRequest into a provider request body.
type RequestFormatter interface {
	FormatRequest(req ChatRequest, stream bool) ([]byte, error)
}

// ResponseParser turns provider output into plain text.
type ResponseParser interface {
	// ParseResponse decodes a complete, successful response body.
	ParseResponse(body []byte) (*ChatResponse, error)
	// ParseStreamChunk reduces one stream frame to a text delta. An empty
	// delta with a nil error means the frame carries no text.
	ParseStreamChunk(chunk []byte) (string, error)
}

// ProviderSpec is one registry entry.
type ProviderSpec struct {
	ID             string         `yaml:"id"`
	Name           string         `yaml:"name"`
	BaseURL        string         `yaml:"base_url"`
	Endpoints      Endpoints      `yaml:"endpoints"`
	DefaultModel   string         `yaml:"default_model"`
	Timeout        time.Duration  `yaml:"timeout"`
	Auth           AuthSpec       `yaml:"auth"`
	RequestFormat  FormatType     `yaml:"request_format"`
	ResponseFormat FormatType     `yaml:"response_format"`
	ExtraParams    map[string]any `yaml:"extra_params"`
}

func (s ProviderSpec) validate() error {
	if s.ID == "" {
		return fmt.Errorf("provider id is required")
	}
	for _, f := range []FormatType{s.RequestFormat, s.ResponseFormat} {
		if _, err := ParseFormatType(string(f)); err != nil {
			return fmt.Errorf("provider %s: %w", s.ID, err)
		}
	}
	if _, err := ParseAuthType(string(s.Auth.Type)); err != nil {
		return fmt.Errorf("provider %s: %w", s.ID, err)
	}
	return nil
}

func newFormatter(format FormatType, model, chatEndpoint string, extra map[string]any) (RequestFormatter, error) {
	switch format {
	case FormatOpenAI, FormatInherit:
		return openAIFormatter{model: model, extra: extra}, nil
	case FormatGemini:
		return geminiFormatter{extra: extra}, nil
	case FormatOllama:
		return ollamaFormatter{model: model, generate: strings.Contains(chatEndpoint, "/api/generate"), extra: extra}, nil
	case FormatAnthropic:
		return anthropicFormatter{model: model, extra: extra}, nil
	default:
		return nil, configError("unsupported request format %q", format)
	}
}

func newParser(format FormatType) (ResponseParser, error) {
	switch format {
	case FormatOpenAI, FormatInherit:
		return openAIParser{}, nil
	case FormatGemini:
		return geminiParser{}, nil
	case FormatOllama:
		return ollamaParser{}, nil
	case FormatAnthropic:
		return anthropicParser{}, nil
	default:
		return nil, configError("unsupported response format %q", format)
	}
}
