package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryBuiltins(t *testing.T) {
	reg := DefaultRegistry()
	assert.Same(t, reg, DefaultRegistry())

	var ids []string
	for _, spec := range reg.List() {
		ids = append(ids, spec.ID)
	}
	assert.Equal(t, []string{"openai", "claude", "gemini", "deepseek", "hunyuan", "siliconflow", "ollama"}, ids)

	ollama, ok := reg.Get("OLLAMA")
	require.True(t, ok)
	assert.Equal(t, 180*time.Second, ollama.Timeout)
	assert.Equal(t, AuthNone, ollama.Auth.Type)
	assert.Equal(t, "/api/tags", ollama.Endpoints.Models)

	assert.True(t, reg.Has("anthropic"))
	assert.True(t, reg.Has("google"))
	assert.False(t, reg.Has("openai-compatible"))
}

func TestNewRegistryRegisterAndOverride(t *testing.T) {
	reg, err := NewRegistry(
		ProviderSpec{
			ID:             "Moonshot",
			Name:           "Moonshot",
			BaseURL:        "https://api.moonshot.cn/v1",
			DefaultModel:   "moonshot-v1-8k",
			Endpoints:      Endpoints{Chat: "/chat/completions", Models: "/models"},
			RequestFormat:  FormatOpenAI,
			ResponseFormat: FormatOpenAI,
		},
		ProviderSpec{ID: "deepseek", DefaultModel: "deepseek-reasoner", ExtraParams: map[string]any{"x": 1}},
	)
	require.NoError(t, err)

	moon, ok := reg.Get("moonshot")
	require.True(t, ok)
	assert.Equal(t, "moonshot-v1-8k", moon.DefaultModel)

	ds, _ := reg.Get("deepseek")
	assert.Equal(t, "deepseek-reasoner", ds.DefaultModel)
	assert.Equal(t, "https://api.deepseek.com/v1", ds.BaseURL)
	assert.Equal(t, 1, ds.ExtraParams["x"])

	assert.Equal(t, "moonshot", reg.List()[len(reg.List())-1].ID)

	// The default registry is untouched.
	base, _ := DefaultRegistry().Get("deepseek")
	assert.Equal(t, ModelDeepSeekChat, base.DefaultModel)
}

func TestNewRegistryRejectsInvalidSpecs(t *testing.T) {
	_, err := NewRegistry(ProviderSpec{})
	assert.Error(t, err)

	_, err = NewRegistry(ProviderSpec{ID: "x", RequestFormat: "soap"})
	assert.Error(t, err)

	_, err = NewRegistry(ProviderSpec{ID: "x", Auth: AuthSpec{Type: "kerberos"}})
	assert.Error(t, err)
}

func TestRegistryResolve(t *testing.T) {
	reg := DefaultRegistry()

	spec, err := reg.Resolve("gpt", "")
	require.NoError(t, err)
	assert.Equal(t, "openai", spec.ID)

	spec, err = reg.Resolve("local", "/v1/chat/completions")
	require.NoError(t, err)
	assert.Equal(t, "local", spec.ID)
	assert.Equal(t, FormatOpenAI, spec.RequestFormat)
	assert.Equal(t, AuthBearer, spec.Auth.Type)

	_, err = reg.Resolve("local", "/api/generate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestRegistryGetReturnsCopies(t *testing.T) {
	reg := DefaultRegistry()
	spec, _ := reg.Get("hunyuan")
	spec.ExtraParams["enable_enhancement"] = false

	again, _ := reg.Get("hunyuan")
	assert.Equal(t, true, again.ExtraParams["enable_enhancement"])
}
