package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kart-io/regqa/pkg/llm"
)

const testAPIKey = "test-key"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != "https://generativelanguage.googleapis.com/v1beta" {
		t.Errorf("expected BaseURL https://generativelanguage.googleapis.com/v1beta, got %s", cfg.BaseURL)
	}
	if cfg.EmbedModel != "text-embedding-004" {
		t.Errorf("expected EmbedModel text-embedding-004, got %s", cfg.EmbedModel)
	}
	if cfg.EmbedDim != 768 {
		t.Errorf("expected EmbedDim 768, got %d", cfg.EmbedDim)
	}
	if cfg.ChatModel != "gemini-1.5-flash" {
		t.Errorf("expected ChatModel gemini-1.5-flash, got %s", cfg.ChatModel)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("expected Timeout 60s, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", cfg.MaxRetries)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		config    map[string]any
		wantError bool
	}{
		{
			name: "valid config",
			config: map[string]any{
				"api_key": testAPIKey,
			},
			wantError: false,
		},
		{
			name: "custom config",
			config: map[string]any{
				"api_key":     testAPIKey,
				"embed_model": "text-embedding-005",
				"embed_dim":   1536,
				"chat_model":  "gemini-1.5-pro",
				"temperature": 0.3,
				"max_tokens":  4096,
			},
			wantError: false,
		},
		{
			name:      "missing api_key",
			config:    map[string]any{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)
			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if provider == nil {
				t.Fatal("expected provider, got nil")
			}
			if provider.Name() != ProviderName {
				t.Errorf("expected provider name %s, got %s", ProviderName, provider.Name())
			}
		})
	}
}

// newEmbedServer 返回固定向量的模拟 batchEmbedContents 服务。
func newEmbedServer(t *testing.T, vectors [][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":batchEmbedContents") {
			t.Errorf("expected batchEmbedContents path, got %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != testAPIKey {
			t.Error("expected x-goog-api-key header")
		}
		if r.URL.Query().Get("key") != "" {
			t.Error("api key must not appear in the URL")
		}

		embeddings := make([]map[string]any, len(vectors))
		for i, vec := range vectors {
			embeddings[i] = map[string]any{"values": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
}

func TestProviderEmbed(t *testing.T) {
	server := newEmbedServer(t, [][]float32{
		{0.1, 0.2, 0.3},
		{0.4, 0.5, 0.6},
	})
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	cfg.EmbedDim = 3
	provider := NewProviderWithConfig(cfg)

	embeddings, err := provider.Embed(context.Background(), []string{"并网验收", "电价政策"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(embeddings) != 2 {
		t.Errorf("expected 2 embeddings, got %d", len(embeddings))
	}
	if len(embeddings[0]) != 3 {
		t.Errorf("expected embedding dimension 3, got %d", len(embeddings[0]))
	}
}

func TestProviderEmbedRejectsEmptyInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = testAPIKey
	provider := NewProviderWithConfig(cfg)

	if _, err := provider.Embed(context.Background(), nil); err == nil {
		t.Error("expected error for empty input slice")
	}
}

func TestProviderEmbedDimensionMismatch(t *testing.T) {
	server := newEmbedServer(t, [][]float32{{0.1, 0.2, 0.3}})
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	// 默认期望 768 维，模拟服务只返回 3 维
	provider := NewProviderWithConfig(cfg)

	_, err := provider.Embed(context.Background(), []string{"维度校验"})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if !strings.Contains(err.Error(), "维度") {
		t.Errorf("expected dimension error message, got: %v", err)
	}
}

func TestProviderEmbedCountMismatch(t *testing.T) {
	server := newEmbedServer(t, [][]float32{{0.1, 0.2, 0.3}})
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	cfg.EmbedDim = 3
	provider := NewProviderWithConfig(cfg)

	// 两条输入只回一个向量
	if _, err := provider.Embed(context.Background(), []string{"甲", "乙"}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

// newChatServer 返回固定回复并记录请求体的模拟 generateContent 服务。
func newChatServer(t *testing.T, content string, received *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("expected generateContent path, got %s", r.URL.Path)
		}
		if received != nil {
			if err := json.NewDecoder(r.Body).Decode(received); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]any{{"text": content}},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
}

func TestProviderChat(t *testing.T) {
	var received chatRequest
	server := newChatServer(t, "测试响应", &received)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	provider := NewProviderWithConfig(cfg)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "你是能源政策助手"},
		{Role: llm.RoleUser, Content: "并网验收流程"},
		{Role: llm.RoleAssistant, Content: "需要以下材料"},
		{Role: llm.RoleUser, Content: "还有吗"},
	}
	response, err := provider.Chat(context.Background(), messages)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if response != "测试响应" {
		t.Errorf("expected response '测试响应', got '%s'", response)
	}

	// system 走 systemInstruction，assistant 映射为 model 角色
	if received.SystemInstruction == nil {
		t.Fatal("expected systemInstruction to carry the system message")
	}
	if got := received.SystemInstruction.Parts[0].Text; got != "你是能源政策助手" {
		t.Errorf("unexpected systemInstruction text: %s", got)
	}
	if len(received.Contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(received.Contents))
	}
	wantRoles := []string{"user", "model", "user"}
	for i, want := range wantRoles {
		if received.Contents[i].Role != want {
			t.Errorf("content %d: expected role %s, got %s", i, want, received.Contents[i].Role)
		}
	}
}

func TestProviderGenerate(t *testing.T) {
	server := newChatServer(t, "生成的文本", nil)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	provider := NewProviderWithConfig(cfg)

	response, err := provider.Generate(context.Background(), "说明电价政策", "你是一个助手")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if response != "生成的文本" {
		t.Errorf("expected response '生成的文本', got '%s'", response)
	}
}

func TestGenerationConfigOmittedByDefault(t *testing.T) {
	var received chatRequest
	server := newChatServer(t, "ok", &received)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	provider := NewProviderWithConfig(cfg)

	if _, err := provider.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "你好"}}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if received.GenerationConfig != nil {
		t.Error("expected generationConfig omitted when no params are set")
	}
}

func TestGenerationConfigFromOptions(t *testing.T) {
	var received chatRequest
	server := newChatServer(t, "ok", &received)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	cfg.Temperature = 0.3
	cfg.TopK = 40
	cfg.MaxTokens = 2048
	provider := NewProviderWithConfig(cfg)

	if _, err := provider.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "你好"}}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if received.GenerationConfig == nil {
		t.Fatal("expected generationConfig to be sent")
	}
	if received.GenerationConfig.Temperature != 0.3 {
		t.Errorf("expected Temperature 0.3, got %f", received.GenerationConfig.Temperature)
	}
	if received.GenerationConfig.TopK != 40 {
		t.Errorf("expected TopK 40, got %d", received.GenerationConfig.TopK)
	}
	if received.GenerationConfig.MaxOutputTokens != 2048 {
		t.Errorf("expected MaxOutputTokens 2048, got %d", received.GenerationConfig.MaxOutputTokens)
	}
}
