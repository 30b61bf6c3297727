// Package options defines the contract every reusable option group in
// this repository implements, plus shared helpers for building prefixed
// flag names.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// IOptions is implemented by option groups that bind themselves to a
// flag set and validate their own configuration. Groups are embedded in
// the server options and wired to viper by field name, so every field
// carries a mapstructure tag.
type IOptions interface {
	// Validate reports every problem with the configured values, not
	// just the first one, so startup can print them all at once.
	Validate() []error

	// AddFlags registers the group's flags. An optional prefix chain
	// namespaces the flag names, see Join.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join builds a flag name prefix from a prefix chain, with a trailing
// dot when non-empty. Join("cache") + "redis.host" yields
// "cache.redis.host"; with no prefixes the bare "redis.host" remains.
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}
