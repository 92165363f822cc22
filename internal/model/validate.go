package model

import (
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateInput checks a projected input record before it is written.
// Columns hold scalars only, so nested lists and objects are rejected.
// It returns a *ValidationError if any rules fail, or nil.
func ValidateInput(r Record) error {
	var ve ValidationError
	for _, f := range r.Fields() {
		switch f.Value.Kind() {
		case KindList, KindObject:
			ve.Errors = append(ve.Errors, FieldError{
				Field:   f.Name,
				Message: "must be a scalar value, got " + f.Value.Kind().String(),
			})
		}
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}
