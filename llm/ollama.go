// Ollama native wire format.
//
// Information Hiding:
// - /api/chat messages vs /api/generate prompt bodies
// - sampling options nested under "options"
// - NDJSON stream frames with a "done" flag

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

var (
	_ RequestFormatter = ollamaFormatter{}
	_ ResponseParser   = ollamaParser{}
)

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages,omitempty"`
	Prompt   string        `json:"prompt,omitempty"`
	System   string        `json:"system,omitempty"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Model   string `json:"model"`
	Message *struct {
		Content string `json:"content"`
	} `json:"message,omitempty"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

func (r ollamaResponse) text() string {
	if r.Message != nil {
		return r.Message.Content
	}
	return r.Response
}

type ollamaFormatter struct {
	model    string
	generate bool
	extra    map[string]any
}

func (f ollamaFormatter) FormatRequest(req ChatRequest, stream bool) ([]byte, error) {
	body := ollamaRequest{
		Model:  f.model,
		Stream: stream,
		Options: ollamaOptions{
			Temperature: req.temperature(),
			NumPredict:  req.Options.MaxTokens,
		},
	}
	if f.generate {
		body.System = req.SystemMessage
		body.Prompt = generatePrompt(req)
	} else {
		body.Messages = req.messages()
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return mergeParams(raw, f.extra, req.Options.Extra)
}

// generatePrompt folds history into a single prompt for /api/generate.
func generatePrompt(req ChatRequest) string {
	if len(req.History) == 0 {
		return req.UserMessage
	}
	var b strings.Builder
	for _, m := range req.History {
		fmt.Fprintf(&b, "%s: %s\n\n", m.Role, m.Content)
	}
	fmt.Fprintf(&b, "%s: %s", RoleUser, req.UserMessage)
	return b.String()
}

type ollamaParser struct{}

func (ollamaParser) ParseResponse(body []byte) (*ChatResponse, error) {
	resp, err := decodeOllama(body)
	if err != nil {
		return nil, err
	}
	out := &ChatResponse{Content: resp.text(), Model: resp.Model, Meta: map[string]any{}}
	if resp.DoneReason != "" {
		out.Meta["finishReason"] = resp.DoneReason
	}
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
		out.Usage = &Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		}
	}
	return out, nil
}

func (ollamaParser) ParseStreamChunk(chunk []byte) (string, error) {
	resp, err := decodeOllama(chunk)
	if err != nil {
		return "", err
	}
	return resp.text(), nil
}

func decodeOllama(body []byte) (ollamaResponse, error) {
	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, err
	}
	if resp.Error != "" {
		return resp, classifyHTTP(0, body)
	}
	return resp, nil
}
