package model

import (
	"fmt"
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

// ValidateRecord checks a PledgeRecord for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the record is valid.
func ValidateRecord(r *PledgeRecord) error {
	var ve ValidationError

	if strings.TrimSpace(r.ID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	}

	if !r.Amount.IsPositive() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "amount",
			Message: fmt.Sprintf("must be positive, got %s", r.Amount.String()),
		})
	}

	// Day and isAny are mutually exclusive.
	switch {
	case r.IsAny && r.Day != nil:
		ve.Errors = append(ve.Errors, FieldError{Field: "day", Message: "must be null for any-amount cells"})
	case !r.IsAny && r.Day == nil:
		ve.Errors = append(ve.Errors, FieldError{Field: "day", Message: "is required for numbered cells"})
	case r.Day != nil && *r.Day <= 0:
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "day",
			Message: fmt.Sprintf("must be positive, got %d", *r.Day),
		})
	}

	if r.Name != nil && len([]rune(*r.Name)) > 200 {
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "must be 200 characters or fewer"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
