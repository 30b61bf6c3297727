// Package llm 提供统一的 LLM 供应商抽象层。
// 问答链路中的向量嵌入与重排打分可以使用不同供应商的模型，
// 供应商通过注册表按名称解析，新增供应商只需匿名导入其子包。
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// Chat 进行多轮对话。
	Chat(ctx context.Context, messages []Message) (string, error)

	// Generate 根据提示生成文本（单轮）。
	Generate(ctx context.Context, prompt string, systemPrompt string) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Provider 同时支持 Embedding 和 Chat 的完整供应商。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// 工厂函数类型。完整供应商注册后对嵌入和对话两个角色都可见，
// 单能力供应商（如只有对话端点的 DeepSeek）注册对应的专用工厂。
type (
	ProviderFactory          func(config map[string]any) (Provider, error)
	EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)
	ChatProviderFactory      func(config map[string]any) (ChatProvider, error)
)

// providerRegistry 按名称维护三类工厂。
// 解析时专用工厂优先于完整供应商工厂，同名时专用实现生效。
type providerRegistry struct {
	mu        sync.RWMutex
	full      map[string]ProviderFactory
	embedding map[string]EmbeddingProviderFactory
	chat      map[string]ChatProviderFactory
}

var registry = &providerRegistry{
	full:      make(map[string]ProviderFactory),
	embedding: make(map[string]EmbeddingProviderFactory),
	chat:      make(map[string]ChatProviderFactory),
}

func (r *providerRegistry) newProvider(name string, config map[string]any) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.full[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return factory(config)
}

func (r *providerRegistry) newEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if factory, ok := r.embedding[name]; ok {
		return factory(config)
	}
	if factory, ok := r.full[name]; ok {
		return factory(config)
	}
	return nil, fmt.Errorf("unknown embedding provider: %s", name)
}

func (r *providerRegistry) newChatProvider(name string, config map[string]any) (ChatProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if factory, ok := r.chat[name]; ok {
		return factory(config)
	}
	if factory, ok := r.full[name]; ok {
		return factory(config)
	}
	return nil, fmt.Errorf("unknown chat provider: %s", name)
}

func (r *providerRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	collect := func(name string) {
		if !seen[name] {
			seen[name] = true
		}
	}
	for name := range r.full {
		collect(name)
	}
	for name := range r.embedding {
		collect(name)
	}
	for name := range r.chat {
		collect(name)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterProvider 注册完整供应商工厂，通常在供应商子包的 init 中调用。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.full[name] = factory
}

// RegisterEmbeddingProvider 注册仅支持 Embedding 的供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embedding[name] = factory
}

// RegisterChatProvider 注册仅支持 Chat 的供应商工厂。
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.chat[name] = factory
}

// NewProvider 根据名称创建完整供应商实例。
func NewProvider(name string, config map[string]any) (Provider, error) {
	return registry.newProvider(name, config)
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
// 专用 Embedding 工厂优先，其次回退到完整供应商工厂。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	return registry.newEmbeddingProvider(name, config)
}

// NewChatProvider 根据名称创建 Chat 供应商实例。
// 专用 Chat 工厂优先，其次回退到完整供应商工厂。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	return registry.newChatProvider(name, config)
}

// ListProviders 按字典序列出所有已注册的供应商名称。
func ListProviders() []string {
	return registry.names()
}
