package errors

import (
	"fmt"
	"sync"
)

// registry tracks every declared Errno so duplicate codes fail fast at
// package init instead of surfacing as ambiguous API responses.
var (
	registry   = make(map[int]*Errno)
	registryMu sync.RWMutex
)

// Register records an Errno and panics on a duplicate code.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := registry[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.MessageEN))
	}
	registry[e.Code] = e
	return e
}

// Lookup returns the registered Errno for the given code.
func Lookup(code int) (*Errno, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[code]
	return e, ok
}
