package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/regqa/pkg/pool"
)

// Manager tracks the storage clients backing the service and fans
// health probes and shutdown out over them. Safe for concurrent use.
//
//	mgr := storage.NewManager()
//	mgr.MustRegister("milvus", milvusClient)
//	mgr.MustRegister("redis", redisClient)
//
//	statuses := mgr.HealthCheckAll(ctx)
//	defer mgr.CloseAll()
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewManager creates an empty storage manager.
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]Client),
	}
}

// Register adds a client under a unique name. It fails when the name is
// empty, the client is nil, or the name is already taken.
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return ErrInvalidConfig.WithMessage("client name cannot be empty")
	}
	if client == nil {
		return ErrInvalidConfig.WithMessage("client cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return ErrClientAlreadyExists.WithMessage(fmt.Sprintf("client '%s' is already registered", name))
	}

	m.clients[name] = client
	return nil
}

// MustRegister is Register for initialization paths where a missing
// backend is fatal. It panics on failure.
func (m *Manager) MustRegister(name string, client Client) {
	if err := m.Register(name, client); err != nil {
		panic(fmt.Sprintf("failed to register storage client: %v", err))
	}
}

// Count returns the number of registered clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// snapshot copies the registry so probes run without holding the lock.
func (m *Manager) snapshot() map[string]Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients := make(map[string]Client, len(m.clients))
	for name, client := range m.clients {
		clients[name] = client
	}
	return clients
}

// probe pings a single client and records latency and failure.
func probe(ctx context.Context, name string, client Client) HealthStatus {
	start := time.Now()
	err := client.Ping(ctx)

	return HealthStatus{
		Name:    name,
		Healthy: err == nil,
		Latency: time.Since(start),
		Error:   err,
	}
}

// HealthCheckAll probes every registered client concurrently and
// returns the results keyed by client name. Probes run on the shared
// health check pool when it is available, otherwise on plain
// goroutines.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	clients := m.snapshot()

	statuses := make(map[string]HealthStatus, len(clients))
	var statusMu sync.Mutex
	var wg sync.WaitGroup

	healthPool, poolErr := pool.GetByType(pool.HealthCheckPool)
	usePool := poolErr == nil && healthPool != nil

	for name, client := range clients {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			status := probe(ctx, name, client)

			statusMu.Lock()
			statuses[name] = status
			statusMu.Unlock()
		}

		if usePool {
			if err := healthPool.Submit(task); err != nil {
				// Pool saturated, run the probe directly.
				go task()
			}
		} else {
			go task()
		}
	}

	wg.Wait()
	return statuses
}

// CloseAll closes every registered client and empties the registry. It
// keeps going past individual failures and returns the first error it
// hit. Intended for application shutdown.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close client '%s': %w", name, err)
		}
		delete(m.clients, name)
	}
	return firstErr
}
