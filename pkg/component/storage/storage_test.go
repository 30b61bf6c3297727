package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

// MockClient is a test implementation of the Client interface.
type MockClient struct {
	name     string
	healthy  bool
	closed   bool
	closeErr error
}

func (m *MockClient) Name() string {
	return m.name
}

func (m *MockClient) Ping(ctx context.Context) error {
	if !m.healthy {
		return context.DeadlineExceeded
	}
	return nil
}

func (m *MockClient) Close() error {
	m.closed = true
	return m.closeErr
}

// Compile-time check that MockClient implements Client.
var _ Client = (*MockClient)(nil)

func TestHealthStatus(t *testing.T) {
	status := HealthStatus{
		Name:    "test",
		Healthy: true,
		Latency: 10 * time.Millisecond,
		Error:   nil,
	}

	if status.Name != "test" {
		t.Errorf("expected name 'test', got %s", status.Name)
	}

	if !status.Healthy {
		t.Error("expected status to be healthy")
	}

	if status.Latency != 10*time.Millisecond {
		t.Errorf("expected latency 10ms, got %v", status.Latency)
	}
}

func TestManagerRegister(t *testing.T) {
	mgr := NewManager()

	client := &MockClient{name: "milvus", healthy: true}
	if err := mgr.Register("milvus", client); err != nil {
		t.Fatalf("expected register to succeed, got %v", err)
	}

	// Duplicate name must be rejected.
	if err := mgr.Register("milvus", client); !errors.Is(err, ErrClientAlreadyExists) {
		t.Errorf("expected ErrClientAlreadyExists, got %v", err)
	}

	// Empty name and nil client are invalid.
	if err := mgr.Register("", client); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty name, got %v", err)
	}
	if err := mgr.Register("redis", nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil client, got %v", err)
	}

	if mgr.Count() != 1 {
		t.Errorf("expected 1 client, got %d", mgr.Count())
	}
}

func TestMustRegisterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustRegister to panic on duplicate name")
		}
	}()

	mgr := NewManager()
	mgr.MustRegister("milvus", &MockClient{name: "milvus", healthy: true})
	mgr.MustRegister("milvus", &MockClient{name: "milvus", healthy: true})
}

func TestManagerHealthCheckAll(t *testing.T) {
	mgr := NewManager()
	mgr.MustRegister("milvus", &MockClient{name: "milvus", healthy: true})
	mgr.MustRegister("redis", &MockClient{name: "redis", healthy: false})

	statuses := mgr.HealthCheckAll(context.Background())
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}

	if !statuses["milvus"].Healthy {
		t.Error("expected milvus to be healthy")
	}
	if statuses["redis"].Healthy {
		t.Error("expected redis to be unhealthy")
	}
	if statuses["redis"].Error == nil {
		t.Error("expected unhealthy status to carry an error")
	}
}

func TestManagerHealthCheckAllEmpty(t *testing.T) {
	mgr := NewManager()

	statuses := mgr.HealthCheckAll(context.Background())
	if len(statuses) != 0 {
		t.Errorf("expected no statuses for empty manager, got %d", len(statuses))
	}
}

func TestManagerCloseAll(t *testing.T) {
	mgr := NewManager()
	c1 := &MockClient{name: "milvus", healthy: true}
	c2 := &MockClient{name: "redis", healthy: true}
	mgr.MustRegister("milvus", c1)
	mgr.MustRegister("redis", c2)

	if err := mgr.CloseAll(); err != nil {
		t.Fatalf("expected CloseAll to succeed, got %v", err)
	}

	if !c1.closed || !c2.closed {
		t.Error("expected all clients to be closed")
	}
	if mgr.Count() != 0 {
		t.Errorf("expected 0 clients after CloseAll, got %d", mgr.Count())
	}

	// A second call on the emptied registry is a no-op.
	if err := mgr.CloseAll(); err != nil {
		t.Errorf("expected repeated CloseAll to succeed, got %v", err)
	}
}

func TestManagerCloseAllKeepsGoing(t *testing.T) {
	mgr := NewManager()
	failing := &MockClient{name: "milvus", closeErr: errors.New("connection reset")}
	ok := &MockClient{name: "redis"}
	mgr.MustRegister("milvus", failing)
	mgr.MustRegister("redis", ok)

	err := mgr.CloseAll()
	if err == nil {
		t.Fatal("expected CloseAll to report the close failure")
	}

	// The failure must not stop the other client from being closed.
	if !ok.closed {
		t.Error("expected healthy client to be closed despite earlier failure")
	}
	if mgr.Count() != 0 {
		t.Errorf("expected registry to be emptied, got %d clients", mgr.Count())
	}
}

func TestStorageErrorIs(t *testing.T) {
	wrapped := ErrConnectionFailed.WithMessage("failed to connect to Milvus at localhost:19530")

	if !errors.Is(wrapped, ErrConnectionFailed) {
		t.Error("expected wrapped error to match base by code")
	}
	if errors.Is(wrapped, ErrOperationFailed) {
		t.Error("expected different codes not to match")
	}

	cause := errors.New("connection refused")
	withCause := ErrConnectionFailed.WithCause(cause)
	if !errors.Is(withCause, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}
