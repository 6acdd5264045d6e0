package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/richinex/booster/modelconfig"
)

func testDefaults() map[modelconfig.StandardModelType]modelconfig.ModelConfig {
	return map[modelconfig.StandardModelType]modelconfig.ModelConfig{
		modelconfig.TypeOpenAI: {ID: "openai", ProviderName: "OpenAI", Model: "gpt-4o-mini"},
		modelconfig.TypeOllama: {ID: "ollama", ProviderName: "Ollama", Model: "qwen3:32b"},
	}
}

func TestModelStoreSeedsDefaults(t *testing.T) {
	store := NewModelStore(NewInMemoryKV(), testDefaults)

	s, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.Configs) != 2 {
		t.Errorf("expected 2 seeded configs, got %d", len(s.Configs))
	}
	if s.Configs["openai"].Model != "gpt-4o-mini" {
		t.Errorf("unexpected openai default: %+v", s.Configs["openai"])
	}
}

func TestModelStoreSaveModelConfig(t *testing.T) {
	ctx := context.Background()
	store := NewModelStore(NewInMemoryKV(), testDefaults)

	cfg := modelconfig.ModelConfig{ID: "openai", ProviderName: "OpenAI", APIKey: "sk-1", Model: "gpt-4.1", Enabled: true}
	if err := store.SaveModelConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveModelConfig failed: %v", err)
	}

	s, _ := store.Load(ctx)
	if s.Configs["openai"] != cfg {
		t.Errorf("expected saved config, got %+v", s.Configs["openai"])
	}
	if s.Configs["ollama"].Model != "qwen3:32b" {
		t.Errorf("untouched default lost: %+v", s.Configs["ollama"])
	}

	if err := store.SaveModelConfig(ctx, modelconfig.ModelConfig{ID: "bogus"}); err == nil {
		t.Error("expected error for unknown standard type")
	}
}

func TestModelStoreCustomInterfaces(t *testing.T) {
	ctx := context.Background()
	kv, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer kv.Close()
	store := NewModelStore(kv, nil)

	ci, err := store.AddCustomInterface(ctx, modelconfig.CustomInterface{Name: "Local", ProviderName: "Local", APIKey: "k", BaseURL: "http://localhost:8000", Model: "m"})
	if err != nil {
		t.Fatalf("AddCustomInterface failed: %v", err)
	}
	if ci.ID == "" {
		t.Fatal("expected generated id")
	}

	ci.Model = "m2"
	if err := store.UpdateCustomInterface(ctx, ci); err != nil {
		t.Fatalf("UpdateCustomInterface failed: %v", err)
	}
	if err := store.SetActiveModel(ctx, ci.ID); err != nil {
		t.Fatalf("SetActiveModel failed: %v", err)
	}

	s, _ := store.Load(ctx)
	got, custom, ok := s.Find(ci.ID)
	if !ok || !custom || got.Model != "m2" {
		t.Errorf("Find returned %+v custom=%v ok=%v", got, custom, ok)
	}
	if s.ActiveModel != ci.ID {
		t.Errorf("expected active model %s, got %s", ci.ID, s.ActiveModel)
	}

	if err := store.DeleteCustomInterface(ctx, ci.ID); err != nil {
		t.Fatalf("DeleteCustomInterface failed: %v", err)
	}
	s, _ = store.Load(ctx)
	if len(s.CustomInterfaces) != 0 || s.ActiveModel != "" {
		t.Errorf("expected interface and active model cleared, got %+v", s)
	}

	if err := store.DeleteCustomInterface(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetActiveModel(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
