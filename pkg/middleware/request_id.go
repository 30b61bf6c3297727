package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/regqa/pkg/utils/id"
)

// RequestID header names.
const (
	HeaderXRequestID = "X-Request-ID"
)

// requestIDGinKey is the gin context key for the request ID.
const requestIDGinKey = "request_id"

// RequestIDConfig defines the config for RequestID middleware.
type RequestIDConfig struct {
	// Header is the header name to use for request ID.
	// Default: "X-Request-ID"
	Header string

	// Generator is the function to generate request IDs.
	// Default: ULID (sortable, 26 characters)
	Generator func() string
}

// DefaultRequestIDConfig is the default RequestID middleware config.
var DefaultRequestIDConfig = RequestIDConfig{
	Header:    HeaderXRequestID,
	Generator: id.NewULID,
}

// requestIDKey is the context key for request ID.
type requestIDKey struct{}

// RequestID returns a middleware that adds a unique request ID to each request.
// The request ID is added to:
//   - Response header (X-Request-ID)
//   - Gin context (key "request_id")
//   - Request context (can be retrieved with GetRequestID)
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(DefaultRequestIDConfig)
}

// RequestIDWithConfig returns a RequestID middleware with custom config.
func RequestIDWithConfig(config RequestIDConfig) gin.HandlerFunc {
	// Set defaults
	if config.Header == "" {
		config.Header = HeaderXRequestID
	}
	if config.Generator == nil {
		config.Generator = id.NewULID
	}

	return func(c *gin.Context) {
		// Check if request ID already exists in header
		requestID := c.GetHeader(config.Header)
		if requestID == "" {
			requestID = config.Generator()
		}

		// Set request ID in response header
		c.Header(config.Header, requestID)
		c.Set(requestIDGinKey, requestID)

		// Store request ID in the request context
		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID returns the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestIDFromGin returns the request ID stored on the gin context.
func RequestIDFromGin(c *gin.Context) string {
	if v, ok := c.Get(requestIDGinKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return GetRequestID(c.Request.Context())
}
