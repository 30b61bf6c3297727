// Package jwt provides JWT configuration options for protected endpoints.
//
// 索引写入接口通过 Bearer Token 鉴权，Token 由运维侧离线签发，
// 服务端只做验签，因此仅支持共享密钥的 HMAC 算法族。
//
// Configuration Example (YAML):
//
//	jwt:
//	  key: "your-secret-key-min-32-chars-long"
//	  signing-method: "HS256"
//	  expired: "2h"
//	  issuer: "regqa"
//
// Environment Variables:
//
//	JWT_KEY - JWT signing key
package jwt

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/regqa/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

const (
	// DefaultSigningMethod is the default JWT signing algorithm.
	DefaultSigningMethod = "HS256"

	// DefaultExpired is the default token expiration time.
	DefaultExpired = 2 * time.Hour

	// DefaultIssuer is the default token issuer.
	DefaultIssuer = "regqa"

	// MinKeyLength is the minimum required key length for security.
	MinKeyLength = 32

	// MaxKeyLength is the maximum allowed key length.
	MaxKeyLength = 256
)

// SupportedSigningMethods contains all supported JWT signing algorithms.
var SupportedSigningMethods = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

// Options contains JWT configuration.
type Options struct {
	// DisableAuth disables JWT authentication.
	// When true, no JWT token is required for protected endpoints.
	DisableAuth bool `json:"disable-auth" mapstructure:"disable-auth"`

	// Key is the secret key used to sign tokens.
	// 留空时 Complete 会尝试从 JWT_KEY 环境变量读取。
	Key string `json:"-" mapstructure:"key"`

	// SigningMethod is the JWT signing algorithm (HS256, HS384, HS512).
	SigningMethod string `json:"signing-method" mapstructure:"signing-method"`

	// Expired is the token expiration duration used when issuing tokens.
	Expired time.Duration `json:"expired" mapstructure:"expired"`

	// Issuer is the token issuer (iss claim).
	Issuer string `json:"issuer" mapstructure:"issuer"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		DisableAuth:   false,
		SigningMethod: DefaultSigningMethod,
		Expired:       DefaultExpired,
		Issuer:        DefaultIssuer,
	}
}

// AddFlags adds flags for JWT options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.DisableAuth, options.Join(prefixes...)+"jwt.disable-auth", o.DisableAuth, "Disable JWT authentication.")
	fs.StringVar(&o.Key, options.Join(prefixes...)+"jwt.key", o.Key, "JWT signing key (DEPRECATED: use JWT_KEY env var instead).")
	fs.StringVar(&o.SigningMethod, options.Join(prefixes...)+"jwt.signing-method", o.SigningMethod, "JWT signing algorithm (HS256, HS384, HS512).")
	fs.DurationVar(&o.Expired, options.Join(prefixes...)+"jwt.expired", o.Expired, "JWT token expiration duration.")
	fs.StringVar(&o.Issuer, options.Join(prefixes...)+"jwt.issuer", o.Issuer, "JWT token issuer (iss claim).")
}

// Validate validates the JWT options.
func (o *Options) Validate() []error {
	if o == nil || o.DisableAuth {
		return nil
	}

	var errs []error
	if !SupportedSigningMethods[o.SigningMethod] {
		errs = append(errs, fmt.Errorf("unsupported signing method: %s", o.SigningMethod))
	}
	if o.Key == "" {
		errs = append(errs, fmt.Errorf("jwt key is required"))
	} else {
		if len(o.Key) < MinKeyLength {
			errs = append(errs, fmt.Errorf("jwt key must be at least %d characters, got: %d", MinKeyLength, len(o.Key)))
		}
		if len(o.Key) > MaxKeyLength {
			errs = append(errs, fmt.Errorf("jwt key must be at most %d characters, got: %d", MaxKeyLength, len(o.Key)))
		}
	}
	if o.Expired <= 0 {
		errs = append(errs, fmt.Errorf("expired must be positive, got: %v", o.Expired))
	}
	return errs
}

// Complete fills in default values and environment fallbacks.
func (o *Options) Complete() error {
	if o.Key == "" {
		o.Key = os.Getenv("JWT_KEY")
	}
	if o.SigningMethod == "" {
		o.SigningMethod = DefaultSigningMethod
	}
	if o.Expired == 0 {
		o.Expired = DefaultExpired
	}
	if o.Issuer == "" {
		o.Issuer = DefaultIssuer
	}
	return nil
}
