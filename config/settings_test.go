package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/richinex/booster/llm"
)

func TestNewDefaults(t *testing.T) {
	for _, key := range []string{"LLM_TEMPERATURE", "LLM_TIMEOUT_SECONDS", "BOOSTER_ADDR", "BOOSTER_CORS_ORIGINS", "BOOSTER_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", settings.LLM.Temperature)
	}
	if settings.LLM.Timeout != 120*time.Second {
		t.Errorf("expected 120s timeout, got %v", settings.LLM.Timeout)
	}
	if settings.Server.Addr != ":8000" {
		t.Errorf("expected ':8000', got %q", settings.Server.Addr)
	}
	if len(settings.Server.CORSOrigins) != 1 || settings.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("unexpected CORS origins: %v", settings.Server.CORSOrigins)
	}
	if settings.LogLevel != "info" {
		t.Errorf("expected log level 'info', got %q", settings.LogLevel)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "0")
	t.Setenv("LLM_TIMEOUT_SECONDS", "30")
	t.Setenv("BOOSTER_CORS_ORIGINS", "http://a.test, http://b.test,")

	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Temperature != 0 {
		t.Errorf("expected explicit zero temperature, got %v", settings.LLM.Temperature)
	}
	if settings.LLM.Timeout != 30*time.Second {
		t.Errorf("expected 30s, got %v", settings.LLM.Timeout)
	}
	if len(settings.Server.CORSOrigins) != 2 || settings.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("unexpected CORS origins: %v", settings.Server.CORSOrigins)
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"LLM_TEMPERATURE", "warm"},
		{"LLM_TEMPERATURE", "2.5"},
		{"LLM_TIMEOUT_SECONDS", "soon"},
		{"LLM_TIMEOUT_SECONDS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := New(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestAPIKeyFor(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	key, err := APIKeyFor("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := APIKeyFor("openai"); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := APIKeyFor(""); err == nil {
		t.Error("expected error for empty provider")
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := map[string]string{
		"gemini":     "GEMINI_API_KEY",
		"anthropic":  "ANTHROPIC_API_KEY",
		"my-gateway": "MY_GATEWAY_API_KEY",
		"Local LLM":  "LOCAL_LLM_API_KEY",
	}
	for provider, want := range tests {
		if got := APIKeyEnvVar(provider); got != want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", provider, got, want)
		}
	}
}

const providersYAML = `
providers:
  - id: openai
    base_url: https://proxy.example.com/v1
    timeout: 45s
  - id: my-gateway
    name: My Gateway
    base_url: https://gateway.example.com
    default_model: house-model
    endpoints:
      chat: /v1/chat/completions
      models: /v1/models
    auth:
      type: header
      header_name: X-Token
    request_format: openai
    response_format: openai
    extra_params:
      top_p: 0.9
`

func TestParseProviders(t *testing.T) {
	specs, err := ParseProviders([]byte(providersYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[0].Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", specs[0].Timeout)
	}

	gw := specs[1]
	if gw.Auth.Type != llm.AuthHeader || gw.Auth.HeaderName != "X-Token" {
		t.Errorf("unexpected auth: %+v", gw.Auth)
	}
	if gw.RequestFormat != llm.FormatOpenAI || gw.ResponseFormat != llm.FormatOpenAI {
		t.Errorf("formats not normalized: %q %q", gw.RequestFormat, gw.ResponseFormat)
	}
	if gw.ExtraParams["top_p"] != 0.9 {
		t.Errorf("unexpected extra params: %v", gw.ExtraParams)
	}
}

func TestParseProvidersRejectsBadEntries(t *testing.T) {
	bad := []string{
		"providers:\n  - name: nameless\n",
		"providers:\n  - id: x\n    auth:\n      type: magic\n",
		"providers:\n  - id: x\n    request_format: soap\n",
		"providers: [",
	}
	for _, doc := range bad {
		if _, err := ParseProviders([]byte(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestSettingsRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte(providersYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	reg, err := Settings{ProvidersFile: path}.Registry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	openai, _ := reg.Get("openai")
	if openai.BaseURL != "https://proxy.example.com/v1" {
		t.Errorf("override not applied: %s", openai.BaseURL)
	}
	if !reg.Has("my-gateway") {
		t.Error("expected custom provider to be registered")
	}

	if _, err := (Settings{ProvidersFile: filepath.Join(t.TempDir(), "missing.yaml")}).Registry(); err == nil {
		t.Error("expected error for missing providers file")
	}

	def, err := Settings{}.Registry()
	if err != nil || def != llm.DefaultRegistry() {
		t.Errorf("expected default registry, got %v %v", def, err)
	}
}
