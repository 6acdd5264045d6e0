package modelconfig

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/booster/llm"
)

func newResolver() *Resolver {
	return NewResolver(llm.DefaultRegistry(), zerolog.Nop())
}

func TestValidateBaseConfigOrder(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ModelConfig
		standard bool
		field    string
	}{
		{"all missing reports api key", ModelConfig{}, true, "apiKey"},
		{"whitespace key", ModelConfig{APIKey: "  ", ProviderName: "OpenAI", BaseURL: "x"}, true, "apiKey"},
		{"provider name for standard", ModelConfig{APIKey: "k"}, true, "providerName"},
		{"custom skips provider name", ModelConfig{APIKey: "k"}, false, "baseUrl"},
		{"base url", ModelConfig{APIKey: "k", ProviderName: "OpenAI", BaseURL: " "}, true, "baseUrl"},
		{"valid", ModelConfig{APIKey: "k", ProviderName: "OpenAI", BaseURL: "https://x"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateBaseConfig(tt.cfg, tt.standard)
			assert.Equal(t, tt.field, v.Field)
			assert.Equal(t, tt.field == "", v.Valid)
			if !v.Valid {
				assert.NotEmpty(t, v.Message)
				assert.NotEmpty(t, v.Key)
			}
		})
	}
}

func TestValidateModelConfig(t *testing.T) {
	v := ValidateModelConfig(ModelConfig{APIKey: "k", ProviderName: "OpenAI", BaseURL: "https://x"}, true)
	assert.False(t, v.Valid)
	assert.Equal(t, "model", v.Field)

	v = ValidateModelConfig(ModelConfig{APIKey: "k", ProviderName: "OpenAI", BaseURL: "https://x", Model: "gpt"}, true)
	assert.True(t, v.Valid)
}

func TestFormatBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.x.com/v1", FormatBaseURL("  https://api.x.com/v1/ "))
	assert.Equal(t, "https://api.x.com/v1", FormatBaseURL("https://api.x.com/v1///"))
	assert.Equal(t, "api.x.com", FormatBaseURL("api.x.com"))
	assert.Equal(t, "", FormatBaseURL("  "))
}

func TestFormatEndpoint(t *testing.T) {
	tests := map[string]string{
		"":                  "/chat/completions",
		"   ":               "/chat/completions",
		"chat/completions":  "/chat/completions",
		"/v1/messages":      "/v1/messages",
		"//a//b/":           "/a/b/",
		"api///generate":    "/api/generate",
		"/models/{model}:x": "/models/{model}:x",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatEndpoint(in), "FormatEndpoint(%q)", in)
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "sk-**********xyz", MaskAPIKey("sk-1234567890xyz"))
	assert.Equal(t, "********", MaskAPIKey("12345678"))
	assert.Equal(t, "abc***ghi", MaskAPIKey("abcdefghi"))
	assert.Equal(t, "", MaskAPIKey(""))
	assert.Equal(t, "***", MaskAPIKey("abc"))

	for _, key := range []string{"", "a", "12345678", "123456789", "sk-proj-abcdefghijklmnop"} {
		assert.Len(t, MaskAPIKey(key), len(key))
	}
}

func TestResolveAPIKey(t *testing.T) {
	original := "sk-1234567890xyz"
	assert.Equal(t, original, ResolveAPIKey(MaskAPIKey(original), original))
	assert.Equal(t, "sk-new", ResolveAPIKey("sk-new", original))
	assert.Equal(t, "sk-new", ResolveAPIKey("sk-new", ""))
}

func TestMergeWithDefaultsStandard(t *testing.T) {
	r := newResolver()
	merged := r.MergeWithDefaults(ModelConfig{
		ProviderName: "Something Else",
		APIKey:       "sk-x",
		Enabled:      true,
	}, true, "openai")

	assert.Equal(t, "openai", merged.ID)
	assert.Equal(t, "OpenAI", merged.ProviderName)
	assert.Equal(t, "https://api.openai.com/v1", merged.BaseURL)
	assert.Equal(t, "/chat/completions", merged.Endpoint)
	assert.Equal(t, "sk-x", merged.APIKey)
	assert.Equal(t, llm.ModelOpenAIGPT4oMini, merged.Model)
	assert.Equal(t, 60*time.Second, merged.Timeout)
	assert.True(t, merged.Enabled)

	merged = r.MergeWithDefaults(ModelConfig{
		APIKey:   "k",
		BaseURL:  "https://proxy.local/v1",
		Endpoint: "/v2/chat",
		Model:    "gpt-4.1",
	}, true, "openai")
	assert.Equal(t, "https://proxy.local/v1", merged.BaseURL)
	assert.Equal(t, "/v2/chat", merged.Endpoint)
	assert.Equal(t, "gpt-4.1", merged.Model)
}

func TestMergeWithDefaultsCustomAndUnknown(t *testing.T) {
	r := newResolver()
	form := ModelConfig{ID: "abc", Name: "Mine", ProviderName: "Local", APIKey: "k"}

	merged := r.MergeWithDefaults(form, false, "")
	assert.Equal(t, form, merged)
	assert.Empty(t, merged.BaseURL)
	assert.Empty(t, merged.Model)
	assert.False(t, merged.Enabled)

	assert.Equal(t, form, r.MergeWithDefaults(form, true, "nonexistent"))
}

func TestDefaultConfigs(t *testing.T) {
	defaults := newResolver().DefaultConfigs()
	require.Len(t, defaults, len(StandardModelTypes()))

	gemini := defaults[TypeGemini]
	assert.Equal(t, "Gemini", gemini.ProviderName)
	assert.Equal(t, "/models/{model}:generateContent", gemini.Endpoint)
	assert.Equal(t, 180*time.Second, defaults[TypeOllama].Timeout)
}

func TestClientConfigStandard(t *testing.T) {
	cfg := newResolver().ClientConfig(ModelConfig{
		ID:       "deepseek",
		APIKey:   "k",
		BaseURL:  "https://api.deepseek.com/v1/",
		Model:    "deepseek-chat",
		Endpoint: "chat/completions",
	}, false)

	assert.Equal(t, "deepseek", cfg.Provider)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.BaseURL)
	assert.Equal(t, "/chat/completions", cfg.Endpoints.Chat)
	assert.Nil(t, cfg.Auth)
}

func TestClientConfigCustomCompatible(t *testing.T) {
	r := newResolver()
	cfg := r.ClientConfig(ModelConfig{
		ID:           "uuid-1",
		ProviderName: "My Local LLM",
		APIKey:       "k",
		BaseURL:      "http://localhost:8080",
		Model:        "llama",
		Endpoint:     "/v1/chat/completions",
	}, true)

	assert.Equal(t, "my-local-llm", cfg.Provider)
	assert.Equal(t, llm.FormatOpenAI, cfg.RequestFormat)
	assert.Equal(t, "/models", cfg.Endpoints.Models)

	c, err := r.NewClient(ModelConfig{
		ProviderName: "My Local LLM",
		APIKey:       "k",
		BaseURL:      "http://localhost:8080",
		Model:        "llama",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "/chat/completions", c.Endpoints().Chat)
}

func TestClientConfigCustomWithNativeEndpoint(t *testing.T) {
	r := newResolver()
	_, err := r.NewClient(ModelConfig{ProviderName: "Mystery", APIKey: "k", BaseURL: "http://x", Model: "m", Endpoint: "/api/generate"}, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrConfiguration))

	c, err := r.NewClient(ModelConfig{ProviderName: "Ollama", APIKey: "k", BaseURL: "http://x", Model: "m", Endpoint: "/api/generate"}, true)
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.Provider())
}

func TestPrepareModelsForDisplay(t *testing.T) {
	configs := map[StandardModelType]ModelConfig{
		TypeOpenAI:   {ID: "openai", ProviderName: "OpenAI", Model: "gpt-4o-mini", Enabled: true, APIKey: "sk-1"},
		TypeDeepSeek: {ID: "deepseek", ProviderName: "DeepSeek", Model: "deepseek-chat", Enabled: true},
		TypeGemini:   {ID: "gemini", ProviderName: "Gemini", Model: "gemini-2.0-flash"},
	}
	custom := []CustomInterface{
		{ID: "c1", Name: "Zeta", ProviderName: "Zeta", Model: "z1", Enabled: true},
		{ID: "c2", Name: "Alpha", ProviderName: "Alpha", Model: "a1"},
	}

	got := PrepareModelsForDisplay(configs, custom)
	var ids []string
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"c1", "deepseek", "openai", "c2", "gemini"}, ids)
	assert.Equal(t, "OpenAI - gpt-4o-mini", got[2].Name)
	assert.True(t, got[2].IsStandard)
	assert.Equal(t, "Zeta", got[0].Name)
	assert.False(t, got[0].IsStandard)
}

func TestPrepareModelsForDisplayIsIdempotent(t *testing.T) {
	configs := map[StandardModelType]ModelConfig{
		TypeOpenAI:      {ProviderName: "Same", Model: "m", Enabled: true},
		TypeSiliconFlow: {ProviderName: "Same", Model: "m", Enabled: true},
		TypeHunyuan:     {ProviderName: "Hunyuan", Model: "h"},
	}
	first := PrepareModelsForDisplay(configs, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, PrepareModelsForDisplay(configs, nil))
	}

	resorted := make(map[StandardModelType]ModelConfig)
	for _, m := range first {
		resorted[StandardModelType(m.ID)] = m.Config
	}
	assert.Equal(t, first, PrepareModelsForDisplay(resorted, nil))
}

func TestMaskForDisplay(t *testing.T) {
	models := PrepareModelsForDisplay(map[StandardModelType]ModelConfig{
		TypeOpenAI: {ProviderName: "OpenAI", Model: "m", APIKey: "sk-1234567890xyz"},
	}, nil)
	masked := MaskForDisplay(models)

	assert.Equal(t, "sk-**********xyz", masked[0].APIKey)
	assert.Equal(t, "sk-**********xyz", masked[0].Config.APIKey)
	assert.Equal(t, "sk-1234567890xyz", models[0].APIKey)
}

func TestFetchModelList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer real-key", r.Header.Get("Authorization"))
		io.WriteString(w, `{"data":[{"id":"m1"},{"id":"m2","name":"Model Two"}]}`)
	}))
	defer srv.Close()

	r := newResolver()
	form := ModelConfig{
		ProviderName: "OpenAI",
		APIKey:       MaskAPIKey("real-key-0000"),
		BaseURL:      srv.URL,
	}
	got, err := r.FetchModelList(context.Background(), form, false, "openai", "real-key")
	require.NoError(t, err)
	assert.Equal(t, []ModelOption{{ID: "m1", Name: "m1"}, {ID: "m2", Name: "Model Two"}}, got)
}

func TestFetchModelListValidatesFirst(t *testing.T) {
	_, err := newResolver().FetchModelList(context.Background(), ModelConfig{APIKey: "k"}, true, "", "")
	require.Error(t, err)
	assert.Equal(t, llm.KindValidation, llm.KindOf(err))
	assert.Contains(t, err.Error(), "Base URL required")
}

func TestFetchModelListPropagatesKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newResolver().FetchModelList(context.Background(),
		ModelConfig{ProviderName: "Custom", APIKey: "k", BaseURL: srv.URL}, true, "", "")
	require.Error(t, err)
	assert.Equal(t, llm.KindAuth, llm.KindOf(err))
}
