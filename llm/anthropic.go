// Anthropic Messages wire format using anthropic-sdk-go types.
//
// Information Hiding:
// - System prompt carried outside the message list
// - Mandatory max_tokens
// - Content blocks and typed stream events

package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// anthropicMaxTokens is sent when the request leaves MaxTokens unset.
const anthropicMaxTokens = 4096

var (
	_ RequestFormatter = anthropicFormatter{}
	_ ResponseParser   = anthropicParser{}
)

type anthropicFormatter struct {
	model string
	extra map[string]any
}

func (f anthropicFormatter) FormatRequest(req ChatRequest, stream bool) ([]byte, error) {
	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens == 0 {
		maxTokens = anthropicMaxTokens
	}
	messages, system := convertToAnthropicMessages(req.messages())
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(f.model),
		MaxTokens:   maxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(req.temperature()),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if stream {
		if body, err = sjson.SetBytes(body, "stream", true); err != nil {
			return nil, fmt.Errorf("failed to set stream: %w", err)
		}
	}
	return mergeParams(body, f.extra, req.Options.Extra)
}

// convertToAnthropicMessages lifts system messages into the system prompt.
func convertToAnthropicMessages(messages []ChatMessage) ([]anthropic.MessageParam, string) {
	var system []string
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out, strings.Join(system, "\n\n")
}

type anthropicParser struct{}

func (anthropicParser) ParseResponse(body []byte) (*ChatResponse, error) {
	var message anthropic.Message
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, err
	}
	if gjson.GetBytes(body, "type").String() == "error" {
		return nil, classifyHTTP(0, body)
	}

	var content strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}

	out := &ChatResponse{
		Content: content.String(),
		Model:   string(message.Model),
		Meta:    map[string]any{"id": message.ID},
	}
	if message.StopReason != "" {
		out.Meta["finishReason"] = string(message.StopReason)
	}
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		out.Usage = &Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}
	return out, nil
}

func (anthropicParser) ParseStreamChunk(chunk []byte) (string, error) {
	if gjson.GetBytes(chunk, "type").String() == "error" {
		return "", classifyHTTP(0, chunk)
	}
	var event anthropic.MessageStreamEventUnion
	if err := json.Unmarshal(chunk, &event); err != nil {
		return "", err
	}
	delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
	if !ok {
		return "", nil
	}
	if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok {
		return text.Text, nil
	}
	return "", nil
}
