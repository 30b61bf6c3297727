// Package cache provides cache configuration options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/regqa/pkg/options"
	redisopts "github.com/kart-io/regqa/pkg/options/redis"
)

var _ options.IOptions = (*Options)(nil)

// Options 查询缓存配置。
// 查询结果缓存与嵌入向量缓存共用同一个 Redis 连接，
// Enabled 为总开关，关闭后两类缓存均不生效。
type Options struct {
	// Enabled 是否启用缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 查询结果缓存过期时间。
	// 法规更新频率低，按小时级缓存即可明显降低上游调用量。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 查询结果缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// EmbeddingEnabled 是否启用嵌入向量缓存。
	EmbeddingEnabled bool `json:"embedding-enabled" mapstructure:"embedding-enabled"`

	// EmbeddingTTL 嵌入向量缓存过期时间。
	// 同一文本的向量不随时间变化，可长期缓存。
	EmbeddingTTL time.Duration `json:"embedding-ttl" mapstructure:"embedding-ttl"`

	// Redis Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions 创建默认缓存配置。
func NewOptions() *Options {
	return &Options{
		Enabled:          true,
		TTL:              1 * time.Hour,
		KeyPrefix:        "qa:",
		EmbeddingEnabled: true,
		EmbeddingTTL:     24 * time.Hour,
		Redis:            redisopts.NewOptions(),
	}
}

// AddFlags adds flags for cache options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, options.Join(prefixes...)+"cache.enabled", o.Enabled, "Enable cache.")
	fs.DurationVar(&o.TTL, options.Join(prefixes...)+"cache.ttl", o.TTL, "Query result cache TTL duration.")
	fs.StringVar(&o.KeyPrefix, options.Join(prefixes...)+"cache.key-prefix", o.KeyPrefix, "Query result cache key prefix.")
	fs.BoolVar(&o.EmbeddingEnabled, options.Join(prefixes...)+"cache.embedding-enabled", o.EmbeddingEnabled, "Enable embedding cache.")
	fs.DurationVar(&o.EmbeddingTTL, options.Join(prefixes...)+"cache.embedding-ttl", o.EmbeddingTTL, "Embedding cache TTL duration.")

	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, prefixes...)
}

// Validate validates the cache options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Enabled {
		if o.TTL <= 0 {
			errs = append(errs, fmt.Errorf("cache ttl must be positive"))
		}
		if o.EmbeddingEnabled && o.EmbeddingTTL <= 0 {
			errs = append(errs, fmt.Errorf("embedding cache ttl must be positive"))
		}
		if o.Redis != nil {
			errs = append(errs, o.Redis.Validate()...)
		}
	}
	return errs
}

// Complete completes the cache options with defaults.
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	return o.Redis.Complete()
}
