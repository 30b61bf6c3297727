package llm

import (
	"context"

	"github.com/kart-io/regqa/pkg/resilience"
)

// ResilientEmbeddingProvider 带重试与熔断的 Embedding Provider 包装器。
// 上游限流或抖动时按退避策略重试，连续失败则熔断，
// 避免单个供应商故障拖垮整条查询链路。
type ResilientEmbeddingProvider struct {
	provider EmbeddingProvider
	retry    *resilience.RetryConfig
	cb       *resilience.CircuitBreaker
}

// NewResilientEmbeddingProvider 创建带韧性功能的 Embedding Provider。
func NewResilientEmbeddingProvider(
	provider EmbeddingProvider,
	retryConfig *resilience.RetryConfig,
	cbConfig *resilience.CircuitBreakerConfig,
) *ResilientEmbeddingProvider {
	if retryConfig == nil {
		retryConfig = resilience.DefaultRetryConfig()
	}
	if cbConfig == nil {
		cbConfig = resilience.DefaultCircuitBreakerConfig()
	}
	if retryConfig.RetryableErrors == nil {
		retryConfig.RetryableErrors = resilience.IsRetryableError
	}

	return &ResilientEmbeddingProvider{
		provider: provider,
		retry:    retryConfig,
		cb:       resilience.NewCircuitBreaker(cbConfig),
	}
}

// Embed 为多个文本生成向量嵌入（带重试和熔断）。
func (r *ResilientEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	var err error

	err = resilience.RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		result, err = r.provider.Embed(ctx, texts)
		return err
	})

	return result, err
}

// EmbedSingle 为单个文本生成向量嵌入（带重试和熔断）。
func (r *ResilientEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	var err error

	err = resilience.RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		result, err = r.provider.EmbedSingle(ctx, text)
		return err
	})

	return result, err
}

// Name 返回供应商名称。
func (r *ResilientEmbeddingProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker 获取熔断器实例（用于监控）。
func (r *ResilientEmbeddingProvider) CircuitBreaker() *resilience.CircuitBreaker {
	return r.cb
}

// ResilientChatProvider 带重试与熔断的 Chat Provider 包装器。
type ResilientChatProvider struct {
	provider ChatProvider
	retry    *resilience.RetryConfig
	cb       *resilience.CircuitBreaker
}

// NewResilientChatProvider 创建带韧性功能的 Chat Provider。
func NewResilientChatProvider(
	provider ChatProvider,
	retryConfig *resilience.RetryConfig,
	cbConfig *resilience.CircuitBreakerConfig,
) *ResilientChatProvider {
	if retryConfig == nil {
		retryConfig = resilience.DefaultRetryConfig()
	}
	if cbConfig == nil {
		cbConfig = resilience.DefaultCircuitBreakerConfig()
	}
	if retryConfig.RetryableErrors == nil {
		retryConfig.RetryableErrors = resilience.IsRetryableError
	}

	return &ResilientChatProvider{
		provider: provider,
		retry:    retryConfig,
		cb:       resilience.NewCircuitBreaker(cbConfig),
	}
}

// Chat 进行多轮对话（带重试和熔断）。
func (r *ResilientChatProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	var result string
	var err error

	err = resilience.RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		result, err = r.provider.Chat(ctx, messages)
		return err
	})

	return result, err
}

// Generate 根据提示生成文本（带重试和熔断）。
func (r *ResilientChatProvider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	var result string
	var err error

	err = resilience.RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		result, err = r.provider.Generate(ctx, prompt, systemPrompt)
		return err
	})

	return result, err
}

// Name 返回供应商名称。
func (r *ResilientChatProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker 获取熔断器实例（用于监控）。
func (r *ResilientChatProvider) CircuitBreaker() *resilience.CircuitBreaker {
	return r.cb
}

// EmbeddingBreakerStats 返回 Embedding Provider 的熔断器统计。
// 传入的 provider 未经韧性包装时返回 nil。
func EmbeddingBreakerStats(provider EmbeddingProvider) map[string]interface{} {
	if rp, ok := provider.(*ResilientEmbeddingProvider); ok {
		return rp.cb.Stats()
	}
	return nil
}

// ChatBreakerStats 返回 Chat Provider 的熔断器统计。
// 传入的 provider 未经韧性包装时返回 nil。
func ChatBreakerStats(provider ChatProvider) map[string]interface{} {
	if rp, ok := provider.(*ResilientChatProvider); ok {
		return rp.cb.Stats()
	}
	return nil
}

var (
	_ EmbeddingProvider = (*ResilientEmbeddingProvider)(nil)
	_ ChatProvider      = (*ResilientChatProvider)(nil)
)
