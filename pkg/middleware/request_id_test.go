package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestID_GeneratesULID(t *testing.T) {
	var fromCtx string
	engine := newTestEngine(RequestID(), func(c *gin.Context) {
		fromCtx = GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	header := w.Header().Get(HeaderXRequestID)
	if header == "" {
		t.Fatal("Expected X-Request-ID header to be set")
	}
	if len(header) != 26 {
		t.Errorf("Expected 26-character ULID, got %d characters: %s", len(header), header)
	}
	if fromCtx != header {
		t.Errorf("Context request ID %q does not match header %q", fromCtx, header)
	}
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	var fromGin string
	engine := newTestEngine(RequestID(), func(c *gin.Context) {
		fromGin = RequestIDFromGin(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderXRequestID, "upstream-id-42")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderXRequestID); got != "upstream-id-42" {
		t.Errorf("Expected incoming request ID to be preserved, got %q", got)
	}
	if fromGin != "upstream-id-42" {
		t.Errorf("Expected gin context request ID %q, got %q", "upstream-id-42", fromGin)
	}
}

func TestRequestIDWithConfig_CustomGenerator(t *testing.T) {
	mw := RequestIDWithConfig(RequestIDConfig{
		Generator: func() string { return "fixed-id" },
	})
	engine := newTestEngine(mw, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if got := w.Header().Get(HeaderXRequestID); got != "fixed-id" {
		t.Errorf("Expected generated ID %q, got %q", "fixed-id", got)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("Expected empty request ID for plain context, got %q", got)
	}
}
