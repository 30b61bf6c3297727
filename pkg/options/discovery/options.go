// Package discovery provides document discovery configuration options.
package discovery

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/regqa/pkg/discovery/cse"
	"github.com/kart-io/regqa/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains document discovery backend configuration.
type Options struct {
	// APIKey Google Custom Search API 密钥。
	// 留空时 Complete 会尝试从 GOOGLE_CSE_API_KEY 环境变量读取，
	// 仍为空则发现分支在运行期按不可用降级处理。
	APIKey string `json:"-" mapstructure:"api-key"`

	// EngineID 自定义搜索引擎 ID。
	// 留空时 Complete 会尝试从 GOOGLE_CSE_ENGINE_ID 环境变量读取。
	EngineID string `json:"engine-id" mapstructure:"engine-id"`

	// Timeout 单次发现请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxSiteClauses 检索词中附加的 site: 限定子句上限。
	MaxSiteClauses int `json:"max-site-clauses" mapstructure:"max-site-clauses"`

	// NumResults 默认返回结果数。
	NumResults int `json:"num-results" mapstructure:"num-results"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Timeout:        30 * time.Second,
		MaxSiteClauses: 8,
		NumResults:     8,
	}
}

// ToCSEConfig 转换为 Google CSE 客户端配置。
func (o *Options) ToCSEConfig() *cse.Config {
	return &cse.Config{
		APIKey:         o.APIKey,
		EngineID:       o.EngineID,
		Timeout:        o.Timeout,
		MaxSiteClauses: o.MaxSiteClauses,
		NumResults:     o.NumResults,
	}
}

// AddFlags adds flags for discovery options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"discovery.api-key", o.APIKey, "Google CSE API key (DEPRECATED: use GOOGLE_CSE_API_KEY env var instead).")
	fs.StringVar(&o.EngineID, options.Join(prefixes...)+"discovery.engine-id", o.EngineID, "Google CSE engine ID.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"discovery.timeout", o.Timeout, "Discovery request timeout.")
	fs.IntVar(&o.MaxSiteClauses, options.Join(prefixes...)+"discovery.max-site-clauses", o.MaxSiteClauses, "Maximum site: clauses appended to the query.")
	fs.IntVar(&o.NumResults, options.Join(prefixes...)+"discovery.num-results", o.NumResults, "Default number of discovery results.")
}

// Validate validates the discovery options.
// 凭证缺失不是配置错误，发现分支在运行期降级为不可用。
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if o.MaxSiteClauses <= 0 {
		errs = append(errs, fmt.Errorf("max-site-clauses must be positive"))
	}
	if o.NumResults <= 0 || o.NumResults > 10 {
		errs = append(errs, fmt.Errorf("num-results must be in range 1-10"))
	}
	return errs
}

// Complete completes the discovery options with env fallbacks.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("GOOGLE_CSE_API_KEY")
	}
	if o.EngineID == "" {
		o.EngineID = os.Getenv("GOOGLE_CSE_ENGINE_ID")
	}
	return nil
}
