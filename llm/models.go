// Package llm provides shared data models for the unified LLM client.
package llm

import (
	"fmt"
	"time"
)

// Message roles accepted in chat history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTemperature is used when a request leaves Temperature unset.
const DefaultTemperature = 0.7

// DefaultTimeout bounds buffered requests when neither the caller nor the
// provider sets one.
const DefaultTimeout = 120 * time.Second

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// Options tune a single request.
type Options struct {
	// Temperature nil means DefaultTemperature. An explicit 0 is sent as 0.
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   int            `json:"maxTokens,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Temp returns a pointer for Options.Temperature.
func Temp(v float64) *float64 {
	return &v
}

// ChatRequest is the provider-neutral chat request. The client never mutates it.
type ChatRequest struct {
	UserMessage   string        `json:"userMessage"`
	SystemMessage string        `json:"systemMessage,omitempty"`
	History       []ChatMessage `json:"history,omitempty"`
	Options       Options       `json:"options,omitempty"`
}

func (r ChatRequest) temperature() float64 {
	if r.Options.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Options.Temperature
}

// messages flattens the request into system, history, user order.
func (r ChatRequest) messages() []ChatMessage {
	out := make([]ChatMessage, 0, len(r.History)+2)
	if r.SystemMessage != "" {
		out = append(out, SystemMessage(r.SystemMessage))
	}
	out = append(out, r.History...)
	return append(out, UserMessage(r.UserMessage))
}

// Validate checks the request before any network call.
func (r ChatRequest) Validate() error {
	if r.UserMessage == "" {
		return newError(KindValidation, "user message is required", nil)
	}
	for i, m := range r.History {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return newError(KindValidation, fmt.Sprintf("history[%d]: invalid role %q", i, m.Role), nil)
		}
	}
	if t := r.Options.Temperature; t != nil && (*t < 0 || *t > 2) {
		return newError(KindValidation, fmt.Sprintf("temperature must be between 0 and 2, got %v", *t), nil)
	}
	if r.Options.MaxTokens < 0 {
		return newError(KindValidation, "max tokens must be positive", nil)
	}
	return nil
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ChatResponse is the provider-neutral chat result.
type ChatResponse struct {
	Content string         `json:"content"`
	Usage   *Usage         `json:"usage,omitempty"`
	Model   string         `json:"model,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ModelInfo is one entry of a provider's model catalog.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ConnectionStatus reports a successful connectivity probe.
type ConnectionStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Endpoints are paths appended to the base URL.
type Endpoints struct {
	Chat   string `json:"chat,omitempty" yaml:"chat"`
	Models string `json:"models,omitempty" yaml:"models"`
}

// ClientConfig configures a single client. Zero-valued fields inherit from
// the provider's registry entry.
type ClientConfig struct {
	Provider       string        `json:"provider"`
	APIKey         string        `json:"apiKey"`
	BaseURL        string        `json:"baseUrl,omitempty"`
	Model          string        `json:"model,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	Endpoints      Endpoints     `json:"endpoints,omitempty"`
	Auth           *AuthSpec     `json:"auth,omitempty"`
	RequestFormat  FormatType    `json:"requestFormat,omitempty"`
	ResponseFormat FormatType    `json:"responseFormat,omitempty"`
}

// StreamHandler receives the incremental output of StreamChat.
// OnError or OnComplete is called at most once, and never both.
type StreamHandler interface {
	OnData(delta string)
	OnError(err error)
	OnComplete()
}

// StreamFuncs adapts plain functions to StreamHandler. Nil fields are no-ops.
type StreamFuncs struct {
	Data     func(string)
	Error    func(error)
	Complete func()
}

func (f StreamFuncs) OnData(delta string) {
	if f.Data != nil {
		f.Data(delta)
	}
}

func (f StreamFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f StreamFuncs) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}
