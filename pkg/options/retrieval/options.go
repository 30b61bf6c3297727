// Package retrieval provides retrieval pipeline configuration options.
package retrieval

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/regqa/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains retrieval pipeline configuration.
type Options struct {
	// TopK is the number of chunks to fetch from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// SearchTimeout 向量检索分支的总预算，包含问题嵌入与相似度检索。
	SearchTimeout time.Duration `json:"search-timeout" mapstructure:"search-timeout"`

	// DomainTablePath 域名许可表 YAML 文件路径，留空使用内置表。
	DomainTablePath string `json:"domain-table-path" mapstructure:"domain-table-path"`

	// DomainTableWatch 是否监听许可表文件变更并热加载。
	DomainTableWatch bool `json:"domain-table-watch" mapstructure:"domain-table-watch"`

	// Rerank 重排配置。
	Rerank *RerankOptions `json:"rerank" mapstructure:"rerank"`
}

// RerankOptions LLM 重排配置。
type RerankOptions struct {
	// Enabled 是否启用 LLM 重排。
	// 重排引入一次额外的模型调用，默认关闭。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TopK 重排后保留的文档数量。
	TopK int `json:"top-k" mapstructure:"top-k"`
}

// NewRerankOptions 创建默认重排配置。
func NewRerankOptions() *RerankOptions {
	return &RerankOptions{
		Enabled: false,
		TopK:    5,
	}
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopK:             12,
		SearchTimeout:    30 * time.Second,
		DomainTableWatch: false,
		Rerank:           NewRerankOptions(),
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"retrieval.top-k", o.TopK, "Number of chunks from similarity search.")
	fs.DurationVar(&o.SearchTimeout, options.Join(prefixes...)+"retrieval.search-timeout", o.SearchTimeout, "Budget for embedding plus similarity search.")
	fs.StringVar(&o.DomainTablePath, options.Join(prefixes...)+"retrieval.domain-table-path", o.DomainTablePath, "Domain allowlist table YAML path, empty for built-in tables.")
	fs.BoolVar(&o.DomainTableWatch, options.Join(prefixes...)+"retrieval.domain-table-watch", o.DomainTableWatch, "Watch domain table file and hot reload on change.")

	if o.Rerank == nil {
		o.Rerank = NewRerankOptions()
	}
	fs.BoolVar(&o.Rerank.Enabled, options.Join(prefixes...)+"retrieval.rerank.enabled", o.Rerank.Enabled, "Enable LLM reranking.")
	fs.IntVar(&o.Rerank.TopK, options.Join(prefixes...)+"retrieval.rerank.top-k", o.Rerank.TopK, "Number of documents to keep after reranking.")
}

// Validate validates the retrieval options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.SearchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("search-timeout must be positive"))
	}
	if o.Rerank != nil && o.Rerank.Enabled && o.Rerank.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rerank top-k must be positive"))
	}
	return errs
}

// Complete completes the retrieval options with defaults.
func (o *Options) Complete() error {
	if o.Rerank == nil {
		o.Rerank = NewRerankOptions()
	}
	return nil
}
