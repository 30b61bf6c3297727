package app

import (
	cliflag "github.com/kart-io/regqa/pkg/app/cliflag"
)

// CliOptions is implemented by the options struct an App carries. Flags
// are grouped into named sets so --help stays readable as the flag
// count grows.
type CliOptions interface {
	// Flags returns the flags grouped by named flag sets.
	Flags() cliflag.NamedFlagSets
	// Complete fills derived defaults before validation.
	Complete() error
	// Validate rejects an unusable configuration.
	Validate() error
}
