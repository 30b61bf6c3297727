package llm

import (
	"context"
	"sort"
	"testing"
)

// fakeProvider 同时实现 Embedding 和 Chat 接口，用于注册表测试。
type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string {
	return f.name
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (f *fakeProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "fake response", nil
}

func (f *fakeProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return "fake generated text", nil
}

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("registry-full", func(config map[string]any) (Provider, error) {
		name := "registry-full"
		if n, ok := config["name"].(string); ok {
			name = n
		}
		return &fakeProvider{name: name}, nil
	})

	provider, err := NewProvider("registry-full", map[string]any{"name": "custom-name"})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if provider.Name() != "custom-name" {
		t.Errorf("expected name 'custom-name', got '%s'", provider.Name())
	}
}

func TestUnknownProviderErrors(t *testing.T) {
	if _, err := NewProvider("registry-missing", nil); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := NewEmbeddingProvider("registry-missing", nil); err == nil {
		t.Error("expected error for unknown embedding provider")
	}
	if _, err := NewChatProvider("registry-missing", nil); err == nil {
		t.Error("expected error for unknown chat provider")
	}
}

func TestSpecializedFactoryFallback(t *testing.T) {
	// 专用工厂注册的名称只对对应角色可见
	RegisterEmbeddingProvider("registry-embed-only", func(_ map[string]any) (EmbeddingProvider, error) {
		return &fakeProvider{name: "registry-embed-only"}, nil
	})
	RegisterChatProvider("registry-chat-only", func(_ map[string]any) (ChatProvider, error) {
		return &fakeProvider{name: "registry-chat-only"}, nil
	})

	if _, err := NewEmbeddingProvider("registry-embed-only", nil); err != nil {
		t.Errorf("NewEmbeddingProvider failed: %v", err)
	}
	if _, err := NewChatProvider("registry-chat-only", nil); err != nil {
		t.Errorf("NewChatProvider failed: %v", err)
	}

	// 嵌入角色不应解析到 chat-only 名称，反之亦然
	if _, err := NewEmbeddingProvider("registry-chat-only", nil); err == nil {
		t.Error("expected error resolving chat-only name as embedding provider")
	}
	if _, err := NewChatProvider("registry-embed-only", nil); err == nil {
		t.Error("expected error resolving embed-only name as chat provider")
	}

	// 完整供应商对两个角色都可见
	RegisterProvider("registry-both", func(_ map[string]any) (Provider, error) {
		return &fakeProvider{name: "registry-both"}, nil
	})
	if _, err := NewEmbeddingProvider("registry-both", nil); err != nil {
		t.Errorf("embedding fallback to full provider failed: %v", err)
	}
	if _, err := NewChatProvider("registry-both", nil); err != nil {
		t.Errorf("chat fallback to full provider failed: %v", err)
	}
}

func TestSpecializedFactoryPrecedence(t *testing.T) {
	// 同名时专用工厂优先于完整供应商工厂
	RegisterProvider("registry-shadowed", func(_ map[string]any) (Provider, error) {
		return &fakeProvider{name: "full"}, nil
	})
	RegisterChatProvider("registry-shadowed", func(_ map[string]any) (ChatProvider, error) {
		return &fakeProvider{name: "specialized"}, nil
	})

	chat, err := NewChatProvider("registry-shadowed", nil)
	if err != nil {
		t.Fatalf("NewChatProvider failed: %v", err)
	}
	if chat.Name() != "specialized" {
		t.Errorf("expected specialized factory to win, got '%s'", chat.Name())
	}

	full, err := NewProvider("registry-shadowed", nil)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if full.Name() != "full" {
		t.Errorf("expected full factory for NewProvider, got '%s'", full.Name())
	}
}

func TestListProviders(t *testing.T) {
	RegisterProvider("registry-listed", func(_ map[string]any) (Provider, error) {
		return &fakeProvider{name: "registry-listed"}, nil
	})

	providers := ListProviders()
	if len(providers) == 0 {
		t.Fatal("expected at least one registered provider")
	}
	if !sort.StringsAreSorted(providers) {
		t.Errorf("expected sorted provider list, got %v", providers)
	}

	found := false
	for _, p := range providers {
		if p == "registry-listed" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected 'registry-listed' in provider list")
	}
}

func TestMessageRole(t *testing.T) {
	tests := []struct {
		role     Role
		expected string
	}{
		{RoleSystem, "system"},
		{RoleUser, "user"},
		{RoleAssistant, "assistant"},
	}

	for _, tt := range tests {
		if string(tt.role) != tt.expected {
			t.Errorf("expected role '%s', got '%s'", tt.expected, string(tt.role))
		}
	}
}
