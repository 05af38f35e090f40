package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/colpipe/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates failed checks so a caller can report them together.
//
//	err := validation.New().
//	    Min("column", job.Column, 0).
//	    Required("command", job.Command.Binary).
//	    Err()
type Validator struct {
	errors []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string) *Validator {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
	return v
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the failed checks in the order they were recorded.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Err returns an INVALID_INPUT error listing every failed check, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return newValidationError(v.errors)
}

// Required fails when value is empty or blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// Min fails when value is below minVal.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %d", minVal))
	}
	return v
}

// OptionalUUID fails when value is set but not a UUID.
func (v *Validator) OptionalUUID(field, value string) *Validator {
	if value == "" {
		return v
	}
	if id, err := uuid.Parse(value); err != nil {
		v.AddError(field, "must be a valid UUID")
	} else if id == uuid.Nil {
		v.AddError(field, "must not be the nil UUID")
	}
	return v
}

// Custom fails with message when ok is false.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

func newValidationError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", fields)
}

// ColumnIndex parses a zero-based column index argument.
func ColumnIndex(value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 0, errors.InvalidInput("column", "column index is required")
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.InvalidInput("column", fmt.Sprintf("column index %q is not an integer", value)).WithCause(err)
	}
	if n < 0 {
		return 0, errors.InvalidInput("column", fmt.Sprintf("column index must be non-negative (got: %d)", n))
	}
	return n, nil
}

// RunID checks an externally supplied run id. An empty value yields a fresh
// one.
func RunID(value string) (string, error) {
	if value == "" {
		return uuid.NewString(), nil
	}
	if err := New().OptionalUUID("run_id", value).Err(); err != nil {
		return "", err
	}
	return strings.ToLower(value), nil
}
