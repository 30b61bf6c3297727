package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/pkg/utils/errors"
	"github.com/kart-io/regqa/pkg/utils/response"
)

// RecoveryConfig defines the config for Recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace includes the stack trace in the panic log.
	// Default: true
	EnableStackTrace bool

	// OnPanic is called after a panic has been recovered, before the
	// error response is written. Can be used for alerting hooks.
	OnPanic func(c *gin.Context, err interface{}, stack []byte)
}

// DefaultRecoveryConfig is the default Recovery middleware config.
var DefaultRecoveryConfig = RecoveryConfig{
	EnableStackTrace: true,
}

// Recovery returns a middleware that recovers from panics and writes a
// JSON error response instead of crashing the server.
func Recovery() gin.HandlerFunc {
	return RecoveryWithConfig(DefaultRecoveryConfig)
}

// RecoveryWithConfig returns a Recovery middleware with custom config.
func RecoveryWithConfig(config RecoveryConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()

				fields := []interface{}{
					"error", err,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				}
				if config.EnableStackTrace {
					fields = append(fields, "stack", string(stack))
				}
				logger.Errorw("Panic recovered", fields...)

				if config.OnPanic != nil {
					config.OnPanic(c, err, stack)
				}

				resp := response.Err(errors.ErrPanic)
				c.Abort()
				c.JSON(resp.HTTPStatus(), resp)
				response.Release(resp)
			}
		}()

		c.Next()
	}
}
