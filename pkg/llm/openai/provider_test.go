package openai

import (
	"context"
	"encoding/json"
	"io"
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
	if cfg.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected BaseURL https://api.openai.com/v1, got %s", cfg.BaseURL)
	}
	if cfg.EmbedModel != "text-embedding-3-small" {
		t.Errorf("expected EmbedModel text-embedding-3-small, got %s", cfg.EmbedModel)
	}
	if cfg.EmbedDim != 1536 {
		t.Errorf("expected EmbedDim 1536, got %d", cfg.EmbedDim)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("expected ChatModel gpt-4o-mini, got %s", cfg.ChatModel)
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
				"api_key":      testAPIKey,
				"base_url":     "https://gateway.internal/v1",
				"embed_model":  "text-embedding-3-large",
				"embed_dim":    3072,
				"chat_model":   "gpt-4o",
				"organization": "org-123",
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
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if provider == nil {
					t.Error("expected provider, got nil")
				}
				if provider != nil && provider.Name() != ProviderName {
					t.Errorf("expected provider name %s, got %s", ProviderName, provider.Name())
				}
			}
		})
	}
}

func TestParseStop(t *testing.T) {
	if got := parseStop([]string{"\n\n", "参考依据："}); len(got) != 2 {
		t.Errorf("expected 2 stop sequences from []string, got %d", len(got))
	}
	// viper 解码 YAML 列表得到 []interface{}，非字符串元素跳过
	if got := parseStop([]interface{}{"\n", 42, "END"}); len(got) != 2 {
		t.Errorf("expected 2 stop sequences from []interface{}, got %d", len(got))
	}
	if got := parseStop("not-a-list"); got != nil {
		t.Errorf("expected nil for unsupported type, got %v", got)
	}
}

// embedServer 返回按给定顺序排列 data 条目的模拟 embedding 服务，
// 每个条目用 (index, vector) 描述，顺序可以打乱以测试重排。
func embedServer(t *testing.T, entries ...map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected path /embeddings, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer "+testAPIKey {
			t.Error("expected Authorization Bearer test-key")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": entries})
	}))
}

func TestProviderEmbed(t *testing.T) {
	// data 条目乱序返回，index 字段决定归位
	server := embedServer(t,
		map[string]any{"index": 1, "embedding": []float32{0.4, 0.5, 0.6}},
		map[string]any{"index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
	)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	cfg.EmbedDim = 3
	provider := NewProviderWithConfig(cfg)

	embeddings, err := provider.Embed(context.Background(), []string{"海上风电竞争配置", "分布式光伏备案"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	if embeddings[0][0] != 0.1 {
		t.Errorf("expected first embedding reordered to index 0, got leading value %f", embeddings[0][0])
	}
	if embeddings[1][0] != 0.4 {
		t.Errorf("expected second embedding reordered to index 1, got leading value %f", embeddings[1][0])
	}
}

func TestProviderEmbedMissingVector(t *testing.T) {
	// 两条输入只返回一个向量
	server := embedServer(t,
		map[string]any{"index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
	)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	cfg.EmbedDim = 3
	provider := NewProviderWithConfig(cfg)

	_, err := provider.Embed(context.Background(), []string{"输入一", "输入二"})
	if err == nil {
		t.Fatal("expected error for missing vector")
	}
	if !strings.Contains(err.Error(), "未返回向量") {
		t.Errorf("expected missing vector error, got: %v", err)
	}
}

func TestProviderEmbedDimensionMismatch(t *testing.T) {
	server := embedServer(t,
		map[string]any{"index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
	)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	// 默认期望 1536 维，模拟服务只返回 3 维
	provider := NewProviderWithConfig(cfg)

	_, err := provider.Embed(context.Background(), []string{"维度校验"})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if !strings.Contains(err.Error(), "维度") {
		t.Errorf("expected dimension error message, got: %v", err)
	}
}

func TestProviderEmbedEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = testAPIKey
	provider := NewProviderWithConfig(cfg)

	if _, err := provider.Embed(context.Background(), []string{}); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestProviderEmbedSingle(t *testing.T) {
	server := embedServer(t,
		map[string]any{"index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
	)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	cfg.EmbedDim = 3
	provider := NewProviderWithConfig(cfg)

	embedding, err := provider.EmbedSingle(context.Background(), "山东省陆上风电项目核准流程")
	if err != nil {
		t.Fatalf("EmbedSingle failed: %v", err)
	}

	if len(embedding) != 3 {
		t.Errorf("expected embedding dimension 3, got %d", len(embedding))
	}
}

// chatServer 返回固定回复的模拟 chat completion 服务。
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer "+testAPIKey {
			t.Error("expected Authorization Bearer test-key")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
	}))
}

func TestProviderChat(t *testing.T) {
	server := chatServer(t, "根据《广东省电网建设条例》，并网申请应在竣工验收后三十日内提出。")
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	provider := NewProviderWithConfig(cfg)

	messages := []llm.Message{
		{Role: llm.RoleUser, Content: "广东的风电项目什么时候申请并网？"},
	}
	response, err := provider.Chat(context.Background(), messages)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if !strings.Contains(response, "三十日内") {
		t.Errorf("unexpected response: %s", response)
	}
}

func TestProviderChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	provider := NewProviderWithConfig(cfg)

	_, err := provider.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "你好"},
	})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestProviderGenerate(t *testing.T) {
	var receivedReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&receivedReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "生成的文本"}},
			},
		})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	provider := NewProviderWithConfig(cfg)

	response, err := provider.Generate(context.Background(), "总结征地补偿标准", "你是能源政策问答助手")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if response != "生成的文本" {
		t.Errorf("expected response '生成的文本', got '%s'", response)
	}

	// system prompt 应作为首条 system 消息下发
	if len(receivedReq.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(receivedReq.Messages))
	}
	if receivedReq.Messages[0].Role != "system" {
		t.Errorf("expected first message role system, got %s", receivedReq.Messages[0].Role)
	}
	if receivedReq.Messages[1].Role != "user" {
		t.Errorf("expected second message role user, got %s", receivedReq.Messages[1].Role)
	}
}

func TestChatRequestParams(t *testing.T) {
	var rawBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		if rawBody, err = io.ReadAll(r.Body); err != nil {
			t.Errorf("failed to read request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	cfg.Temperature = 0.2
	cfg.MaxTokens = 1024
	cfg.Stop = []string{"\n\n"}
	provider := NewProviderWithConfig(cfg)

	if _, err := provider.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "你好"},
	}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	var receivedReq chatRequest
	if err := json.Unmarshal(rawBody, &receivedReq); err != nil {
		t.Fatalf("failed to decode captured request: %v", err)
	}
	if receivedReq.Temperature != 0.2 {
		t.Errorf("expected Temperature 0.2, got %f", receivedReq.Temperature)
	}
	if receivedReq.MaxTokens != 1024 {
		t.Errorf("expected MaxTokens 1024, got %d", receivedReq.MaxTokens)
	}
	if len(receivedReq.Stop) != 1 {
		t.Errorf("expected 1 stop sequence, got %d", len(receivedReq.Stop))
	}

	// 未配置的参数不应出现在请求体里，交给 API 用默认值
	if strings.Contains(string(rawBody), "top_p") {
		t.Error("expected top_p omitted when unset")
	}
}

func TestOrganizationHeader(t *testing.T) {
	var gotOrg string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrg = r.Header.Get("OpenAI-Organization")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	cfg.EmbedDim = 3
	cfg.Organization = "org-123"
	provider := NewProviderWithConfig(cfg)

	if _, err := provider.EmbedSingle(context.Background(), "test"); err != nil {
		t.Fatalf("EmbedSingle failed: %v", err)
	}
	if gotOrg != "org-123" {
		t.Errorf("expected OpenAI-Organization org-123, got %q", gotOrg)
	}
}
