// Package httpclient provides the retrying HTTP transport shared by the
// LLM, web search and discovery adapters.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/regqa/pkg/utils/json"
)

// StatusError is returned by DoJSON for non-2xx responses so callers can
// inspect the upstream status code (e.g. to decide retryability).
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, e.Body)
}

// Client wraps http.Client with bounded retries for server errors and
// automatic trace context propagation.
type Client struct {
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a new HTTP client wrapper.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
	}
}

// DoRequest executes req, retrying transport failures and 5xx responses
// up to maxRetries with a linear backoff. 4xx responses are returned as
// is, they indicate a caller problem that a retry will not fix. When
// retries run out on a 5xx, the last response is returned rather than an
// error so callers (and DoJSON) can still read status and body.
func (c *Client) DoRequest(req *http.Request) (*http.Response, error) {
	// 自动注入 W3C Trace Context 头
	c.injectTraceContext(req)

	rewind, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(req.Context(), backoff(attempt)); err != nil {
				return nil, err
			}
		}
		rewind()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode < http.StatusInternalServerError || attempt == c.maxRetries {
			return resp, nil
		}

		_ = resp.Body.Close()
		lastErr = fmt.Errorf("server error, status code %d", resp.StatusCode)
	}
	return nil, lastErr
}

// DoJSON executes a JSON request, decodes the response, and ensures the
// body is closed. Non-2xx responses are returned as *StatusError.
func (c *Client) DoJSON(req *http.Request, v interface{}) error {
	resp, err := c.DoRequest(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// bufferBody reads the request body into memory so every retry can
// replay it. Adapter payloads are small JSON documents, buffering is
// cheap. The returned rewind installs a fresh reader on the request and
// is a no-op for body-less requests.
func bufferBody(req *http.Request) (rewind func(), err error) {
	if req.Body == nil {
		return func() {}, nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	_ = req.Body.Close()

	return func() {
		req.Body = io.NopCloser(bytes.NewReader(data))
	}, nil
}

// backoff returns the wait before the given attempt. Linear growth is
// enough here, the client timeout bounds total time anyway.
func backoff(attempt int) time.Duration {
	return time.Duration(attempt) * 500 * time.Millisecond
}

// sleepWithContext waits for d or returns early when ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// injectTraceContext 将 W3C Trace Context 头注入到 HTTP 请求中，
// 使下游供应商调用与本服务的 Span 关联。请求或传播器缺失时静默
// 跳过。
func (c *Client) injectTraceContext(req *http.Request) {
	if req == nil || req.Context() == nil {
		return
	}

	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		return
	}

	propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}
