// Package json routes JSON serialization through sonic.
// sonic JIT-compiles codecs on amd64/arm64 and ships a pure Go fallback
// for other platforms, so callers get one import path with no build tags.
package json

import (
	"io"

	"github.com/bytedance/sonic"
)

// Marshal encodes v into JSON bytes.
func Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// Unmarshal decodes JSON bytes into v.
func Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// Decoder is a streaming JSON decoder.
type Decoder interface {
	Decode(v any) error
}

// NewDecoder creates a streaming decoder reading from r.
func NewDecoder(r io.Reader) Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}
