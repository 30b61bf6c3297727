// Package id generates unique identifiers for request tracing.
//
// Two strategies are available:
//   - ULID: lexicographically sortable, the default for request and trace
//     IDs so log lines order by creation time
//   - UUID: random v4, for callers that need to match an upstream gateway
//     emitting UUID-format request IDs
package id

import (
	"sync"
)

// Generator defines the interface for ID generators.
type Generator interface {
	// Generate creates a new unique ID.
	Generate() string

	// GenerateN creates n unique IDs.
	GenerateN(n int) []string
}

// Type represents the type of ID generator.
type Type string

const (
	// TypeULID represents the ULID generator.
	TypeULID Type = "ulid"

	// TypeUUID represents the UUID v4 generator.
	TypeUUID Type = "uuid"
)

var (
	defaultULID Generator
	defaultUUID Generator
	initOnce    sync.Once
)

func initDefaults() {
	initOnce.Do(func() {
		defaultULID = NewULIDGenerator()
		defaultUUID = NewUUIDGenerator()
	})
}

// NewULID generates a new ULID string.
func NewULID() string {
	initDefaults()
	return defaultULID.Generate()
}

// NewUUID generates a new UUID v4 string.
func NewUUID() string {
	initDefaults()
	return defaultUUID.Generate()
}

// New generates a new ID using the specified generator type.
// Unknown types fall back to ULID.
func New(t Type) string {
	switch t {
	case TypeUUID:
		return NewUUID()
	default:
		return NewULID()
	}
}
