package domain

import (
	"fmt"
	"strings"
)

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationErrors is a list of field errors reported together.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// NewValidationError creates an error for a single field.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// NewMissingFieldError reports a required field that was not provided.
func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Message: "is required"}
}

// NewInvalidFormatError reports a field whose value does not have the
// expected shape.
func NewInvalidFormatError(field string, value interface{}) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf("has invalid format: %v", value)}
}

// NewOutOfRangeError reports a value outside [min, max].
func NewOutOfRangeError(field string, value, min, max interface{}) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf("must be between %v and %v, got %v", min, max, value)}
}
