package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/pkg/tracing"
)

// LoggerConfig defines the config for Logger middleware.
type LoggerConfig struct {
	// SkipPaths is a list of paths to skip logging.
	SkipPaths []string

	// Output is the logger output function.
	// Default: log.Printf (used only if UseStructuredLogger is false)
	Output func(format string, args ...interface{})

	// UseStructuredLogger enables structured logging using kart-io/logger.
	// When true, Output is ignored and the global structured logger is used.
	// Default: true
	UseStructuredLogger bool
}

// DefaultLoggerConfig is the default Logger middleware config.
var DefaultLoggerConfig = LoggerConfig{
	SkipPaths:           []string{"/healthz", "/v1/metrics"},
	Output:              log.Printf,
	UseStructuredLogger: true,
}

// Logger returns a middleware that logs HTTP requests.
func Logger() gin.HandlerFunc {
	return LoggerWithConfig(DefaultLoggerConfig)
}

// LoggerWithConfig returns a Logger middleware with custom config.
func LoggerWithConfig(config LoggerConfig) gin.HandlerFunc {
	// Set defaults
	if config.Output == nil {
		config.Output = log.Printf
	}

	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// Skip logging for certain paths
		if skipPaths[path] {
			c.Next()
			return
		}

		// Record start time
		start := time.Now()

		// Process request
		c.Next()

		// Calculate latency
		latency := time.Since(start)
		status := c.Writer.Status()
		requestID := RequestIDFromGin(c)

		// Log the request
		if config.UseStructuredLogger {
			// Use structured logger
			fields := []interface{}{
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"remote_addr", c.ClientIP(),
				"latency", latency.String(),
				"latency_ms", latency.Milliseconds(),
			}
			if requestID != "" {
				fields = append(fields, "request_id", requestID)
			}
			if traceID := tracing.TraceIDFromContext(c.Request.Context()); traceID != "" {
				fields = append(fields, "trace_id", traceID)
			}
			logger.Infow("HTTP Request", fields...)
		} else {
			// Use legacy printf-style logging
			if requestID != "" {
				config.Output("[%s] %s %s %d %v",
					requestID,
					c.Request.Method,
					path,
					status,
					latency,
				)
			} else {
				config.Output("%s %s %d %v",
					c.Request.Method,
					path,
					status,
					latency,
				)
			}
		}
	}
}
