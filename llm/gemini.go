// Gemini generateContent wire format using google.golang.org/genai types.
//
// Information Hiding:
// - contents/parts layout with "model" as the assistant role
// - systemInstruction instead of a system message
// - model and streaming selected by URL, not by body fields

package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

var (
	_ RequestFormatter = geminiFormatter{}
	_ ResponseParser   = geminiParser{}
)

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []*genai.Content        `json:"contents"`
	SystemInstruction *genai.Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiFormatter struct {
	extra map[string]any
}

// FormatRequest ignores stream: Gemini streams by endpoint.
func (f geminiFormatter) FormatRequest(req ChatRequest, _ bool) ([]byte, error) {
	contents, system := convertToGeminiMessages(req.messages())
	body := geminiRequest{
		Contents: contents,
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.temperature(),
			MaxOutputTokens: req.Options.MaxTokens,
		},
	}
	if system != "" {
		body.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return mergeParams(raw, f.extra, req.Options.Extra)
}

func convertToGeminiMessages(messages []ChatMessage) ([]*genai.Content, string) {
	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}

// geminiStreamEndpoint switches a generateContent path to its SSE variant.
func geminiStreamEndpoint(endpoint string) string {
	if strings.Contains(endpoint, ":generateContent") {
		endpoint = strings.Replace(endpoint, ":generateContent", ":streamGenerateContent", 1)
	}
	if !strings.Contains(endpoint, ":streamGenerateContent") || strings.Contains(endpoint, "alt=") {
		return endpoint
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "alt=sse"
}

type geminiParser struct{}

func (geminiParser) ParseResponse(body []byte) (*ChatResponse, error) {
	resp, err := decodeGemini(body)
	if err != nil {
		return nil, err
	}
	out := &ChatResponse{
		Content: resp.Text(),
		Model:   resp.ModelVersion,
		Meta:    map[string]any{},
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		out.Meta["finishReason"] = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		out.Usage = &Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func (geminiParser) ParseStreamChunk(chunk []byte) (string, error) {
	resp, err := decodeGemini(chunk)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func decodeGemini(body []byte) (*genai.GenerateContentResponse, error) {
	if hasErrorField(body) {
		return nil, classifyHTTP(int(gjson.GetBytes(body, "error.code").Int()), body)
	}
	var resp genai.GenerateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
