// Package middleware provides configuration options for HTTP middleware.
package middleware

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/regqa/pkg/middleware"
	"github.com/kart-io/regqa/pkg/options"
	"github.com/kart-io/regqa/pkg/utils/id"
)

var (
	_ options.IOptions = (*RecoveryOptions)(nil)
	_ options.IOptions = (*RequestIDOptions)(nil)
	_ options.IOptions = (*LoggerOptions)(nil)
	_ options.IOptions = (*CORSOptions)(nil)
)

// RecoveryOptions defines recovery middleware options.
type RecoveryOptions struct {
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`
}

// NewRecoveryOptions creates default recovery options.
func NewRecoveryOptions() *RecoveryOptions {
	return &RecoveryOptions{
		EnableStackTrace: true,
	}
}

// AddFlags adds flags for recovery options to the specified FlagSet.
func (o *RecoveryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.EnableStackTrace, options.Join(prefixes...)+"middleware.recovery.enable-stack-trace", o.EnableStackTrace, "Include stack traces in panic logs.")
}

// Validate validates the recovery options.
func (o *RecoveryOptions) Validate() []error {
	return nil
}

// ToRecoveryConfig converts options to the middleware config.
func (o *RecoveryOptions) ToRecoveryConfig() middleware.RecoveryConfig {
	return middleware.RecoveryConfig{
		EnableStackTrace: o.EnableStackTrace,
	}
}

// RequestIDOptions defines request ID middleware options.
type RequestIDOptions struct {
	// Header is the request/response header carrying the request ID.
	Header string `json:"header" mapstructure:"header"`

	// Generator selects the ID format: "ulid" (sortable, default) or
	// "uuid" (matches gateways that emit UUID request IDs).
	Generator string `json:"generator" mapstructure:"generator"`
}

// NewRequestIDOptions creates default request ID options.
func NewRequestIDOptions() *RequestIDOptions {
	return &RequestIDOptions{
		Header:    middleware.HeaderXRequestID,
		Generator: string(id.TypeULID),
	}
}

// AddFlags adds flags for request ID options to the specified FlagSet.
func (o *RequestIDOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Header, options.Join(prefixes...)+"middleware.request-id.header", o.Header, "Header name carrying the request ID.")
	fs.StringVar(&o.Generator, options.Join(prefixes...)+"middleware.request-id.generator", o.Generator, "Request ID format, one of: ulid, uuid.")
}

// Validate validates the request ID options.
func (o *RequestIDOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Header == "" {
		errs = append(errs, errors.New("request ID header must not be empty"))
	}
	switch id.Type(o.Generator) {
	case id.TypeULID, id.TypeUUID:
	default:
		errs = append(errs, fmt.Errorf("request ID generator must be one of %q, got %q", []id.Type{id.TypeULID, id.TypeUUID}, o.Generator))
	}
	return errs
}

// ToRequestIDConfig converts options to the middleware config.
func (o *RequestIDOptions) ToRequestIDConfig() middleware.RequestIDConfig {
	gen := id.Type(o.Generator)
	return middleware.RequestIDConfig{
		Header:    o.Header,
		Generator: func() string { return id.New(gen) },
	}
}

// LoggerOptions defines request logging middleware options.
type LoggerOptions struct {
	// SkipPaths lists paths excluded from request logging.
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewLoggerOptions creates default logger options.
func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{
		SkipPaths: []string{"/healthz", "/v1/metrics"},
	}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *LoggerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.SkipPaths, options.Join(prefixes...)+"middleware.logger.skip-paths", o.SkipPaths, "Paths excluded from request logging.")
}

// Validate validates the logger options.
func (o *LoggerOptions) Validate() []error {
	return nil
}

// ToLoggerConfig converts options to the middleware config.
func (o *LoggerOptions) ToLoggerConfig() middleware.LoggerConfig {
	return middleware.LoggerConfig{
		SkipPaths:           o.SkipPaths,
		UseStructuredLogger: true,
	}
}

// CORSOptions defines CORS middleware options.
type CORSOptions struct {
	AllowOrigins     []string `json:"allow-origins" mapstructure:"allow-origins"`
	AllowMethods     []string `json:"allow-methods" mapstructure:"allow-methods"`
	AllowHeaders     []string `json:"allow-headers" mapstructure:"allow-headers"`
	ExposeHeaders    []string `json:"expose-headers" mapstructure:"expose-headers"`
	AllowCredentials bool     `json:"allow-credentials" mapstructure:"allow-credentials"`
	MaxAge           int      `json:"max-age" mapstructure:"max-age"`
}

// NewCORSOptions creates default CORS options.
func NewCORSOptions() *CORSOptions {
	return &CORSOptions{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{},
		AllowCredentials: false,
		MaxAge:           86400,
	}
}

// AddFlags adds flags for CORS options to the specified FlagSet.
func (o *CORSOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.AllowOrigins, options.Join(prefixes...)+"middleware.cors.allow-origins", o.AllowOrigins, "CORS allowed origins.")
	fs.StringSliceVar(&o.AllowMethods, options.Join(prefixes...)+"middleware.cors.allow-methods", o.AllowMethods, "CORS allowed methods.")
	fs.StringSliceVar(&o.AllowHeaders, options.Join(prefixes...)+"middleware.cors.allow-headers", o.AllowHeaders, "CORS allowed headers.")
	fs.StringSliceVar(&o.ExposeHeaders, options.Join(prefixes...)+"middleware.cors.expose-headers", o.ExposeHeaders, "CORS exposed headers.")
	fs.BoolVar(&o.AllowCredentials, options.Join(prefixes...)+"middleware.cors.allow-credentials", o.AllowCredentials, "CORS allow credentials.")
	fs.IntVar(&o.MaxAge, options.Join(prefixes...)+"middleware.cors.max-age", o.MaxAge, "CORS preflight max age.")
}

// Validate validates the CORS options.
func (o *CORSOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if len(o.AllowOrigins) == 0 {
		errs = append(errs, errors.New("CORS: AllowOrigins must be explicitly configured, empty list not allowed"))
	}
	return errs
}

// ToCORSConfig converts options to the middleware config.
func (o *CORSOptions) ToCORSConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins:     o.AllowOrigins,
		AllowMethods:     o.AllowMethods,
		AllowHeaders:     o.AllowHeaders,
		ExposeHeaders:    o.ExposeHeaders,
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	}
}
