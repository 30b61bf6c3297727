package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/kart-io/regqa/pkg/utils/errors"
	"github.com/kart-io/regqa/pkg/utils/response"
)

// AuthSubjectKey is the gin context key holding the authenticated subject.
const AuthSubjectKey = "auth_subject"

// AuthOptions defines authentication middleware options.
type AuthOptions struct {
	// Key is the HMAC secret used to verify token signatures.
	Key string

	// Method is the expected signing algorithm (HS256, HS384, HS512).
	// Default: "HS256"
	Method string

	// TokenLookup defines how to extract the token.
	// Format: "header:<name>" or "query:<name>" or "cookie:<name>"
	// Default: "header:Authorization"
	TokenLookup string

	// AuthScheme is the authorization scheme (e.g., "Bearer").
	// Default: "Bearer"
	AuthScheme string

	// SkipPaths is a list of paths to skip authentication.
	SkipPaths []string

	// SkipPathPrefixes is a list of path prefixes to skip authentication.
	SkipPathPrefixes []string

	// ErrorHandler is called when authentication fails.
	// If nil, default error response is returned.
	ErrorHandler func(c *gin.Context, err error)
}

// AuthOption is a functional option for auth middleware.
type AuthOption func(*AuthOptions)

// NewAuthOptions creates default auth options.
func NewAuthOptions() *AuthOptions {
	return &AuthOptions{
		Method:           "HS256",
		TokenLookup:      "header:Authorization",
		AuthScheme:       "Bearer",
		SkipPaths:        []string{},
		SkipPathPrefixes: []string{},
	}
}

// AuthWithKey sets the HMAC verification key.
func AuthWithKey(key string) AuthOption {
	return func(o *AuthOptions) {
		o.Key = key
	}
}

// AuthWithMethod sets the expected signing algorithm.
func AuthWithMethod(method string) AuthOption {
	return func(o *AuthOptions) {
		o.Method = method
	}
}

// AuthWithTokenLookup sets how to extract the token.
func AuthWithTokenLookup(lookup string) AuthOption {
	return func(o *AuthOptions) {
		o.TokenLookup = lookup
	}
}

// AuthWithAuthScheme sets the authorization scheme.
func AuthWithAuthScheme(scheme string) AuthOption {
	return func(o *AuthOptions) {
		o.AuthScheme = scheme
	}
}

// AuthWithSkipPaths sets paths to skip authentication.
func AuthWithSkipPaths(paths ...string) AuthOption {
	return func(o *AuthOptions) {
		o.SkipPaths = paths
	}
}

// AuthWithSkipPathPrefixes sets path prefixes to skip authentication.
func AuthWithSkipPathPrefixes(prefixes ...string) AuthOption {
	return func(o *AuthOptions) {
		o.SkipPathPrefixes = prefixes
	}
}

// AuthWithErrorHandler sets the error handler.
func AuthWithErrorHandler(handler func(c *gin.Context, err error)) AuthOption {
	return func(o *AuthOptions) {
		o.ErrorHandler = handler
	}
}

// Auth creates a JWT authentication middleware. Tokens are verified with
// the configured HMAC key and signing method; the token subject is stored
// on the gin context under AuthSubjectKey.
func Auth(opts ...AuthOption) gin.HandlerFunc {
	options := NewAuthOptions()
	for _, opt := range opts {
		opt(options)
	}

	// Parse token lookup
	lookup := parseTokenLookup(options.TokenLookup)

	return func(c *gin.Context) {
		// Check if path should be skipped
		if shouldSkipAuth(c.Request.URL.Path, options.SkipPaths, options.SkipPathPrefixes) {
			c.Next()
			return
		}

		// Check if verification key is configured
		if options.Key == "" {
			handleAuthError(c, options, errors.ErrInternal.WithMessage("jwt key not configured"))
			return
		}

		// Extract token
		tokenString := extractToken(c, lookup, options.AuthScheme)
		if tokenString == "" {
			handleAuthError(c, options, errors.ErrUnauthorized.WithMessage("missing authentication token"))
			return
		}

		// Verify token
		claims, err := verifyToken(tokenString, options.Key, options.Method)
		if err != nil {
			handleAuthError(c, options, err)
			return
		}

		if claims.Subject != "" {
			c.Set(AuthSubjectKey, claims.Subject)
		}

		c.Next()
	}
}

// verifyToken parses and validates an HMAC-signed token.
func verifyToken(tokenString, key, method string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if token.Method.Alg() != method {
			return nil, errors.ErrTokenInvalid.WithMessagef("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	if !token.Valid {
		return nil, errors.ErrTokenInvalid
	}
	return claims, nil
}

// mapParseError maps jwt parse errors to errno values.
func mapParseError(err error) *errors.Errno {
	if err == nil {
		return nil
	}

	switch {
	case strings.Contains(err.Error(), "token is expired"):
		return errors.ErrTokenExpired
	case strings.Contains(err.Error(), "signature is invalid"):
		return errors.ErrTokenInvalid.WithMessage("invalid signature")
	case strings.Contains(err.Error(), "token is malformed"):
		return errors.ErrTokenInvalid.WithMessage("malformed token")
	case strings.Contains(err.Error(), "token is not valid yet"):
		return errors.ErrTokenInvalid.WithMessage("token not valid yet")
	default:
		return errors.ErrTokenInvalid.WithCause(err)
	}
}

// tokenLookup represents a token extraction method.
type tokenLookup struct {
	source string // "header", "query", "cookie"
	name   string // name of the header/query/cookie
}

// parseTokenLookup parses the token lookup string.
func parseTokenLookup(lookup string) tokenLookup {
	parts := strings.SplitN(lookup, ":", 2)
	if len(parts) != 2 {
		return tokenLookup{source: "header", name: "Authorization"}
	}
	return tokenLookup{source: parts[0], name: parts[1]}
}

// extractToken extracts the token from the request.
func extractToken(c *gin.Context, lookup tokenLookup, scheme string) string {
	var token string

	switch lookup.source {
	case "header":
		token = c.GetHeader(lookup.name)
		if scheme != "" && strings.HasPrefix(token, scheme+" ") {
			token = strings.TrimPrefix(token, scheme+" ")
		}
	case "query":
		token = c.Query(lookup.name)
	case "cookie":
		if cookie, err := c.Cookie(lookup.name); err == nil {
			token = cookie
		}
	}

	return strings.TrimSpace(token)
}

// shouldSkipAuth checks if the path should skip authentication.
func shouldSkipAuth(path string, skipPaths, skipPrefixes []string) bool {
	// Check exact match
	for _, p := range skipPaths {
		if path == p {
			return true
		}
	}

	// Check prefix match
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// handleAuthError handles authentication errors.
func handleAuthError(c *gin.Context, options *AuthOptions, err error) {
	c.Abort()

	if options.ErrorHandler != nil {
		options.ErrorHandler(c, err)
		return
	}

	// Default error handling
	errno := errors.FromError(err)
	resp := response.Err(errno)
	c.JSON(resp.HTTPStatus(), resp)
	response.Release(resp)
}
