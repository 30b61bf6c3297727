package id

import (
	"crypto/rand"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrInvalidULID is returned when a ULID string is invalid.
var ErrInvalidULID = errors.New("invalid ULID format")

// ULIDGenerator generates Universally Unique Lexicographically Sortable
// Identifiers. Entropy is monotonic, so IDs created within the same
// millisecond still sort in generation order.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// ULIDOption is a functional option for ULIDGenerator.
type ULIDOption func(*ULIDGenerator)

// WithULIDEntropy sets a custom entropy reader for ULID generation.
func WithULIDEntropy(r io.Reader) ULIDOption {
	return func(g *ULIDGenerator) {
		g.entropy = r
	}
}

// NewULIDGenerator creates a new ULID generator.
func NewULIDGenerator(opts ...ULIDOption) *ULIDGenerator {
	g := &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate creates a new ULID string.
func (g *ULIDGenerator) Generate() string {
	// 单调熵源不支持并发读取，串行化生成
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// GenerateN creates n ULID strings.
func (g *ULIDGenerator) GenerateN(n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = g.Generate()
	}
	return ids
}

// ULID represents a parsed ULID.
type ULID struct {
	id ulid.ULID
}

// ParseULID parses a ULID string in its canonical 26-character form.
func ParseULID(s string) (ULID, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return ULID{}, ErrInvalidULID
	}
	return ULID{id: u}, nil
}

// String returns the ULID string.
func (u ULID) String() string {
	return u.id.String()
}

// Time returns the time when this ULID was generated.
func (u ULID) Time() time.Time {
	return ulid.Time(u.id.Time())
}

// Timestamp returns the Unix timestamp in milliseconds.
func (u ULID) Timestamp() int64 {
	return int64(u.id.Time())
}

// IsValidULID checks if a string is a valid ULID format.
func IsValidULID(s string) bool {
	_, err := ParseULID(s)
	return err == nil
}
