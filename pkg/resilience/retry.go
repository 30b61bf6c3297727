// Package resilience 提供外部调用的韧性原语：带抖动的指数退避重试与熔断器。
//
// 检索后端（联网问答、向量检索、发现式兜底）与 LLM 供应商共用同一套
// 重试策略，避免各自实现导致的行为漂移。
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/pkg/utils/httpclient"
)

// RetryConfig 重试配置。
type RetryConfig struct {
	MaxAttempts     int           // 最大尝试次数（含首次调用）
	InitialDelay    time.Duration // 初始延迟
	MaxDelay        time.Duration // 最大延迟
	Multiplier      float64       // 延迟倍数
	Jitter          float64       // 抖动比例（0~1），在 ±Jitter 范围内随机化延迟
	RetryableErrors func(error) bool
}

// DefaultRetryConfig 返回默认重试配置。
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.2,
		RetryableErrors: IsRetryableError,
	}
}

// IsRetryableError 判断错误是否可重试。
//
// 可重试：网络超时、DNS/连接错误、HTTP 408/429/5xx。
// 不可重试：上下文取消或超出总时限、熔断器打开、其余 4xx（调用方错误，
// 重试不会改变结果）。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 熔断器打开错误不可重试
	if errors.Is(err, ErrCircuitBreakerOpen) {
		return false
	}

	// 总时限已耗尽，重试只会浪费预算
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// 按状态码判定
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode >= http.StatusInternalServerError:
			logger.Debugw("upstream status retryable", "status", statusErr.StatusCode)
			return true
		default:
			return false
		}
	}

	// 单次请求超时可重试
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logger.Debugw("network timeout, retryable", "error", err.Error())
		return true
	}

	// DNS 错误可重试
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		logger.Debugw("DNS error, retryable", "error", err.Error())
		return true
	}

	// 连接建立/中断错误可重试
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		logger.Debugw("network operation error, retryable", "error", err.Error())
		return true
	}

	return false
}

// RetryWithBackoff 使用指数退避 + 抖动执行重试。
func RetryWithBackoff(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		// 检查上下文是否已取消
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		default:
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Infow("retry succeeded", "attempt", attempt)
			}
			return nil
		}

		lastErr = err

		// 检查错误是否可重试
		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			logger.Debugw("error not retryable, abort", "error", err.Error(), "attempt", attempt)
			return err
		}

		// 最后一次尝试失败
		if attempt == config.MaxAttempts {
			break
		}

		sleep := jitterDelay(delay, config.Jitter)
		logger.Debugw("retrying after delay",
			"attempt", attempt,
			"delay", sleep.String(),
			"error", err.Error(),
		)

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
		}

		// 计算下一次延迟
		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return fmt.Errorf("max retry attempts (%d) reached: %w", config.MaxAttempts, lastErr)
}

// jitterDelay 在 ±jitter 比例范围内随机化延迟，避免重试风暴。
func jitterDelay(delay time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return delay
	}
	f := 1 + jitter*(2*rand.Float64()-1)
	return time.Duration(float64(delay) * f)
}

// RetryWithCircuitBreaker 组合重试与熔断器执行调用。
func RetryWithCircuitBreaker(
	ctx context.Context,
	retryConfig *RetryConfig,
	cb *CircuitBreaker,
	fn func() error,
) error {
	return RetryWithBackoff(ctx, retryConfig, func() error {
		return cb.Execute(fn)
	})
}
