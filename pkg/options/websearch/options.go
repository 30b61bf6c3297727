// Package websearch provides web question answering configuration options.
package websearch

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/regqa/pkg/options"
	"github.com/kart-io/regqa/pkg/websearch/perplexity"
)

var _ options.IOptions = (*Options)(nil)

// Options contains web search backend configuration.
type Options struct {
	// APIKey API 密钥。
	// 留空时 Complete 会尝试从 PERPLEXITY_API_KEY 环境变量读取，
	// 仍为空则联网检索分支在运行期按不可用降级处理。
	APIKey string `json:"-" mapstructure:"api-key"`

	// BaseURL API 基础地址，留空使用官方地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Model 使用的联网检索模型。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 单次联网检索请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxTokens 最大生成 token 数。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	// Temperature 生成温度，法规问答要求答案贴近原文，默认用较低温度。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// Recency 检索结果的时效过滤（day, week, month, year）。
	Recency string `json:"recency" mapstructure:"recency"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Model:       "sonar",
		Timeout:     60 * time.Second,
		MaxTokens:   1024,
		Temperature: 0.2,
		Recency:     "year",
	}
}

// ToPerplexityConfig 转换为 Perplexity 客户端配置。
func (o *Options) ToPerplexityConfig() *perplexity.Config {
	return &perplexity.Config{
		APIKey:      o.APIKey,
		BaseURL:     o.BaseURL,
		Model:       o.Model,
		Timeout:     o.Timeout,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
		Recency:     o.Recency,
	}
}

// AddFlags adds flags for web search options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"websearch.api-key", o.APIKey, "Web search API key (DEPRECATED: use PERPLEXITY_API_KEY env var instead).")
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"websearch.base-url", o.BaseURL, "Web search API base URL, empty for official endpoint.")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"websearch.model", o.Model, "Web search model name.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"websearch.timeout", o.Timeout, "Web search request timeout.")
	fs.IntVar(&o.MaxTokens, options.Join(prefixes...)+"websearch.max-tokens", o.MaxTokens, "Web search max completion tokens.")
	fs.Float64Var(&o.Temperature, options.Join(prefixes...)+"websearch.temperature", o.Temperature, "Web search sampling temperature.")
	fs.StringVar(&o.Recency, options.Join(prefixes...)+"websearch.recency", o.Recency, "Web search recency filter (day, week, month, year).")
}

// Validate validates the web search options.
// API key 缺失不是配置错误，联网检索分支在运行期降级为不可用。
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	switch o.Recency {
	case "", "day", "week", "month", "year":
	default:
		errs = append(errs, fmt.Errorf("recency must be one of day, week, month, year"))
	}
	return errs
}

// Complete completes the web search options with env fallbacks.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("PERPLEXITY_API_KEY")
	}
	return nil
}
