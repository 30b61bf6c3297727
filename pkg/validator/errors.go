package validator

import (
	"strings"
)

// FieldError is a single field validation failure.
type FieldError struct {
	Field   string      `json:"field"`           // Field name (from JSON tag)
	Tag     string      `json:"tag"`             // Validation tag that failed
	Value   interface{} `json:"value,omitempty"` // Actual value that failed
	Param   string      `json:"param,omitempty"` // Validation parameter
	Message string      `json:"message"`         // Human-readable error message
}

// ValidationErrors collects the field failures of one validation run.
// A nil receiver reads as "no errors" so call sites can chain without
// nil checks.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationError builds a ValidationErrors holding a single error.
func NewValidationError(field, tag, message string) *ValidationErrors {
	return &ValidationErrors{
		Errors: []FieldError{{
			Field:   field,
			Tag:     tag,
			Message: message,
		}},
	}
}

// HasErrors reports whether any field failed.
func (v *ValidationErrors) HasErrors() bool {
	return v != nil && len(v.Errors) > 0
}

// Error implements the error interface, joining every field message.
func (v *ValidationErrors) Error() string {
	if !v.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("validation failed: ")
	for i, fe := range v.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fe.Message)
	}
	return sb.String()
}
