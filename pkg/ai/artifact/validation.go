package artifact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"ai-studykit-be/pkg/llm"
)

var ErrArtifactValidation = errors.New("artifact validation failed")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError carries the validator diagnostics for rejected model output.
type ValidationError struct {
	Kind        Kind
	Diagnostics []string
	Err         error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrArtifactValidation, e.Kind, strings.Join(e.Diagnostics, "; "))
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrArtifactValidation}
	}
	return []error{ErrArtifactValidation, e.Err}
}

func newValidationError(kind Kind, diagnostics []string, err error) *ValidationError {
	return &ValidationError{Kind: kind, Diagnostics: diagnostics, Err: err}
}

// Invalid reports a rejected artifact that did not go through struct validation.
func Invalid(kind Kind, diagnostics ...string) *ValidationError {
	return newValidationError(kind, diagnostics, nil)
}

// Validate runs struct validation on v and converts failures to *ValidationError.
func Validate(kind Kind, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return newValidationError(kind, []string{err.Error()}, err)
	}

	diagnostics := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		diagnostics = append(diagnostics, describe(fe))
	}
	return newValidationError(kind, diagnostics, err)
}

// Decode parses model output into target and validates it. Both malformed
// JSON and schema violations are reported as *ValidationError.
func Decode(kind Kind, raw string, target any) error {
	if err := llm.DecodeJSON(raw, target); err != nil {
		return newValidationError(kind, []string{"malformed JSON: " + err.Error()}, err)
	}
	return Validate(kind, target)
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s items (got %v)", field, fe.Param(), lenOf(fe.Value()))
	case "max":
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have exactly %s items", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func lenOf(v any) any {
	switch x := v.(type) {
	case []Flashcard:
		return len(x)
	case []Block:
		return len(x)
	case []string:
		return len(x)
	default:
		return v
	}
}
