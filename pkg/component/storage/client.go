package storage

import (
	"context"
	"time"
)

// Client is the minimal contract shared by all storage backends.
// Implementations wrap a concrete driver (Milvus, Redis) and expose
// just enough surface for the Manager to track lifecycle and health.
type Client interface {
	// Name returns the backend type name (e.g., "milvus", "redis").
	Name() string

	// Ping performs a lightweight connectivity check. It should be cheap
	// enough to call on every health probe.
	Ping(ctx context.Context) error

	// Close releases the underlying connection resources. It must be
	// safe to call more than once.
	Close() error
}

// HealthStatus is the result of a health check on a single client.
type HealthStatus struct {
	// Name is the client name the check ran against.
	Name string

	// Healthy is true when the probe succeeded.
	Healthy bool

	// Latency is how long the probe took.
	Latency time.Duration

	// Error holds the probe failure, nil when healthy.
	Error error
}
