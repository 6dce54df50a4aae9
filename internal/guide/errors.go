package guide

import (
	"errors"
	"fmt"
)

// Sentinel errors for local validation.
var (
	ErrEmptyDescription = errors.New("description is required")
	ErrMediaTooLarge    = errors.New("media exceeds size limit")
	ErrMediaType        = errors.New("media type not allowed")
	ErrIncompleteGuide  = errors.New("guide is missing required fields")
	ErrTranslationCount = errors.New("translation returned a different number of strings than expected")
	ErrStepIndex        = errors.New("step index out of range")
	ErrBoundingBox      = errors.New("bounding box outside unit range")
)

// ValidationError ties a sentinel to the input field that failed.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Wrapped)
	}
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Field, e.Wrapped, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// MessageKey maps a validation failure to its localization key.
func MessageKey(err error) string {
	switch {
	case errors.Is(err, ErrEmptyDescription):
		return "errorDescriptionRequired"
	case errors.Is(err, ErrMediaTooLarge):
		return "errorFileSize"
	case errors.Is(err, ErrMediaType):
		return "errorInvalidFileTypeVideo"
	default:
		return "errorLabel"
	}
}
