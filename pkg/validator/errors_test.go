package validator

import (
	"testing"
)

// TestValidationErrors_Error tests the Error() method.
func TestValidationErrors_Error(t *testing.T) {
	tests := []struct {
		name string
		errs *ValidationErrors
		want string
	}{
		{
			name: "nil_errors",
			errs: nil,
			want: "",
		},
		{
			name: "empty_errors",
			errs: &ValidationErrors{Errors: []FieldError{}},
			want: "",
		},
		{
			name: "single_error",
			errs: &ValidationErrors{
				Errors: []FieldError{
					{Field: "province", Tag: "region", Message: "province must be a lowercase province code"},
				},
			},
			want: "validation failed: province must be a lowercase province code",
		},
		{
			name: "multiple_errors",
			errs: &ValidationErrors{
				Errors: []FieldError{
					{Field: "province", Tag: "required", Message: "province is required"},
					{Field: "asset", Tag: "facet", Message: "asset must be a lowercase token"},
				},
			},
			want: "validation failed: province is required; asset must be a lowercase token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.errs.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestValidationErrors_HasErrors tests nil-safety of HasErrors.
func TestValidationErrors_HasErrors(t *testing.T) {
	var nilErrs *ValidationErrors
	if nilErrs.HasErrors() {
		t.Error("nil ValidationErrors should report no errors")
	}

	empty := &ValidationErrors{}
	if empty.HasErrors() {
		t.Error("empty ValidationErrors should report no errors")
	}

	some := NewValidationError("asset", "facet", "asset is invalid")
	if !some.HasErrors() {
		t.Error("non-empty ValidationErrors should report errors")
	}
}

// TestNewValidationError tests the single-error constructor.
func TestNewValidationError(t *testing.T) {
	errs := NewValidationError("doc_class", "facet", "doc_class is invalid")

	if len(errs.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs.Errors))
	}
	fe := errs.Errors[0]
	if fe.Field != "doc_class" || fe.Tag != "facet" || fe.Message != "doc_class is invalid" {
		t.Errorf("unexpected FieldError: %+v", fe)
	}
}
