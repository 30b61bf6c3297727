// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/regqa/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。
// 同一结构体同时服务嵌入与对话两个角色，AddFlags 的 prefixes
// 区分角色（如 "embedding"、"chat"）。
type ProviderOptions struct {
	// Provider 供应商名称（siliconflow, deepseek, openai, ollama）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址，留空使用供应商默认地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥。
	// 留空时 Complete 会尝试从 <PROVIDER>_API_KEY 环境变量读取，
	// 仍为空则该角色在运行期按不可用降级处理，不阻止进程启动。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Temperature 生成温度，0 表示使用 API 默认值。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens 最大生成 token 数，0 表示使用 API 默认值。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`
}

// NewEmbeddingOptions 创建默认嵌入供应商配置。
// 默认使用 SiliconFlow 的 BAAI/bge-m3 模型，输出 1024 维归一化向量。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "siliconflow",
		Model:      "BAAI/bge-m3",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// NewChatOptions 创建默认对话供应商配置。
// 重排与结构化抽取要求输出稳定，默认使用较低温度。
func NewChatOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:    "deepseek",
		Model:       "deepseek-chat",
		Timeout:     60 * time.Second,
		MaxRetries:  3,
		Temperature: 0.2,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"temperature":  o.Temperature,
		"max_tokens":   o.MaxTokens,
		"organization": o.Organization,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Provider, options.Join(prefixes...)+"provider", o.Provider, "LLM provider (siliconflow, deepseek, openai, ollama).")
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"base-url", o.BaseURL, "LLM API base URL, empty for provider default.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"api-key", o.APIKey, "LLM API key (DEPRECATED: use <PROVIDER>_API_KEY env var instead).")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"model", o.Model, "LLM model name.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"max-retries", o.MaxRetries, "LLM maximum number of retries.")
	fs.Float64Var(&o.Temperature, options.Join(prefixes...)+"temperature", o.Temperature, "LLM sampling temperature, 0 for API default.")
	fs.IntVar(&o.MaxTokens, options.Join(prefixes...)+"max-tokens", o.MaxTokens, "LLM max completion tokens, 0 for API default.")
	fs.StringVar(&o.Organization, options.Join(prefixes...)+"organization", o.Organization, "LLM organization ID (optional).")
}

// Validate validates the LLM provider options.
// API key 缺失不是配置错误，对应角色在运行期降级为不可用。
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be in range 0-2"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults and env fallbacks.
func (o *ProviderOptions) Complete() error {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}

	// 如果配置为空，从 <PROVIDER>_API_KEY 环境变量读取
	if o.APIKey == "" && o.Provider != "" {
		o.APIKey = os.Getenv(strings.ToUpper(o.Provider) + "_API_KEY")
	}
	return nil
}
