// Package options contains flags and options for initializing the
// regulation QA server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	regqasvc "github.com/kart-io/regqa/internal/regqa"
	cliflag "github.com/kart-io/regqa/pkg/app/cliflag"
	cacheopts "github.com/kart-io/regqa/pkg/options/cache"
	discoveryopts "github.com/kart-io/regqa/pkg/options/discovery"
	httpopts "github.com/kart-io/regqa/pkg/options/http"
	jwtopts "github.com/kart-io/regqa/pkg/options/jwt"
	llmopts "github.com/kart-io/regqa/pkg/options/llm"
	logopts "github.com/kart-io/regqa/pkg/options/logger"
	middlewareopts "github.com/kart-io/regqa/pkg/options/middleware"
	milvusopts "github.com/kart-io/regqa/pkg/options/milvus"
	retrievalopts "github.com/kart-io/regqa/pkg/options/retrieval"
	websearchopts "github.com/kart-io/regqa/pkg/options/websearch"
	"github.com/kart-io/regqa/pkg/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// JWTOptions contains ingest endpoint authentication configuration.
	JWTOptions *jwtopts.Options `json:"jwt" mapstructure:"jwt"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// WebSearchOptions contains web question answering configuration.
	WebSearchOptions *websearchopts.Options `json:"websearch" mapstructure:"websearch"`

	// DiscoveryOptions contains document discovery configuration.
	DiscoveryOptions *discoveryopts.Options `json:"discovery" mapstructure:"discovery"`

	// RetrievalOptions contains retrieval pipeline configuration.
	RetrievalOptions *retrievalopts.Options `json:"retrieval" mapstructure:"retrieval"`

	// CacheOptions contains cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// TraceOptions contains distributed tracing configuration.
	TraceOptions *tracing.Options `json:"tracing" mapstructure:"tracing"`

	// RecoveryOptions contains recovery middleware configuration.
	RecoveryOptions *middlewareopts.RecoveryOptions `json:"recovery" mapstructure:"recovery"`

	// RequestIDOptions contains request ID middleware configuration.
	RequestIDOptions *middlewareopts.RequestIDOptions `json:"request-id" mapstructure:"request-id"`

	// LoggerOptions contains logger middleware configuration.
	LoggerOptions *middlewareopts.LoggerOptions `json:"logger" mapstructure:"logger"`

	// CORSOptions contains CORS middleware configuration.
	CORSOptions *middlewareopts.CORSOptions `json:"cors" mapstructure:"cors"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		JWTOptions:       jwtopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		WebSearchOptions: websearchopts.NewOptions(),
		DiscoveryOptions: discoveryopts.NewOptions(),
		RetrievalOptions: retrievalopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		TraceOptions:     tracing.NewOptions(),
		RecoveryOptions:  middlewareopts.NewRecoveryOptions(),
		RequestIDOptions: middlewareopts.NewRequestIDOptions(),
		LoggerOptions:    middlewareopts.NewLoggerOptions(),
		ShutdownTimeout:  30 * time.Second,
		// CORSOptions 默认禁用（nil），需要跨域访问时显式配置
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.JWTOptions.AddFlags(fss.FlagSet("jwt"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat.")
	o.WebSearchOptions.AddFlags(fss.FlagSet("websearch"))
	o.DiscoveryOptions.AddFlags(fss.FlagSet("discovery"))
	o.RetrievalOptions.AddFlags(fss.FlagSet("retrieval"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.TraceOptions.AddFlags(fss.FlagSet("tracing"))
	o.RecoveryOptions.AddFlags(fss.FlagSet("middleware"))
	o.RequestIDOptions.AddFlags(fss.FlagSet("middleware"))
	o.LoggerOptions.AddFlags(fss.FlagSet("middleware"))

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.JWTOptions.Complete(); err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.WebSearchOptions.Complete(); err != nil {
		return fmt.Errorf("websearch: %w", err)
	}
	if err := o.DiscoveryOptions.Complete(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if err := o.RetrievalOptions.Complete(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := o.TraceOptions.Complete(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.JWTOptions.Validate()...)
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.WebSearchOptions.Validate()...)
	errs = append(errs, o.DiscoveryOptions.Validate()...)
	errs = append(errs, o.RetrievalOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	if err := o.TraceOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.RecoveryOptions.Validate()...)
	errs = append(errs, o.RequestIDOptions.Validate()...)
	errs = append(errs, o.LoggerOptions.Validate()...)
	if o.CORSOptions != nil {
		errs = append(errs, o.CORSOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a regqasvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*regqasvc.Config, error) {
	return &regqasvc.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		JWTOptions:       o.JWTOptions,
		MilvusOptions:    o.MilvusOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		WebSearchOptions: o.WebSearchOptions,
		DiscoveryOptions: o.DiscoveryOptions,
		RetrievalOptions: o.RetrievalOptions,
		CacheOptions:     o.CacheOptions,
		TraceOptions:     o.TraceOptions,
		RecoveryOptions:  o.RecoveryOptions,
		RequestIDOptions: o.RequestIDOptions,
		LoggerOptions:    o.LoggerOptions,
		CORSOptions:      o.CORSOptions,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
