// OpenAI-compatible wire format using go-openai types.
//
// Information Hiding:
// - Chat Completions request body shape
// - Choice/delta layout of full and streamed responses
// - Explicit temperature (go-openai omits zero values)

package llm

import (
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/sjson"
)

var (
	_ RequestFormatter = openAIFormatter{}
	_ ResponseParser   = openAIParser{}
)

type openAIFormatter struct {
	model string
	extra map[string]any
}

func (f openAIFormatter) FormatRequest(req ChatRequest, stream bool) ([]byte, error) {
	body, err := json.Marshal(openai.ChatCompletionRequest{
		Model:     f.model,
		Messages:  convertToOpenAIMessages(req.messages()),
		MaxTokens: req.Options.MaxTokens,
		Stream:    stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if body, err = sjson.SetBytes(body, "temperature", req.temperature()); err != nil {
		return nil, fmt.Errorf("failed to set temperature: %w", err)
	}
	return mergeParams(body, f.extra, req.Options.Extra)
}

func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

type openAIParser struct{}

func (openAIParser) ParseResponse(body []byte) (*ChatResponse, error) {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	// Some gateways answer 200 with an error object.
	if len(resp.Choices) == 0 && hasErrorField(body) {
		return nil, classifyHTTP(0, body)
	}

	out := &ChatResponse{Model: resp.Model, Meta: map[string]any{}}
	if resp.ID != "" {
		out.Meta["id"] = resp.ID
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Content = choice.Message.Content
		if choice.FinishReason != "" {
			out.Meta["finishReason"] = string(choice.FinishReason)
		}
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

func (openAIParser) ParseStreamChunk(chunk []byte) (string, error) {
	if hasErrorField(chunk) {
		return "", classifyHTTP(0, chunk)
	}
	var resp openai.ChatCompletionStreamResponse
	if err := json.Unmarshal(chunk, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

// mergeParams sets top-level body fields; later maps win.
func mergeParams(body []byte, params ...map[string]any) ([]byte, error) {
	var err error
	for _, p := range params {
		for k, v := range p {
			if body, err = sjson.SetBytes(body, escapeKey(k), v); err != nil {
				return nil, fmt.Errorf("failed to set %s: %w", k, err)
			}
		}
	}
	return body, nil
}

// escapeKey keeps sjson from reading dots in a field name as a path.
func escapeKey(k string) string {
	out := make([]byte, 0, len(k))
	for i := 0; i < len(k); i++ {
		switch k[i] {
		case '.', '*', '?', '|', '#', '@':
			out = append(out, '\\')
		}
		out = append(out, k[i])
	}
	return string(out)
}
