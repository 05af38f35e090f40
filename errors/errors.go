// Package errors provides the error taxonomy for colpipe.
// Every failure is an AppError carrying a machine-readable code that maps to
// a process exit code.
package errors

import (
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Fatal marks errors that abort the pipeline without joining the surviving flow.
	Fatal bool `json:"fatal"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ExitCode returns the process exit code for this error. Fatal errors always
// exit with ExitFatal.
func (e *AppError) ExitCode() int {
	if e.Fatal {
		return ExitFatal
	}
	return ExitCodeFor(e.Code)
}

// Escalate marks the error fatal and returns the receiver.
func (e *AppError) Escalate() *AppError {
	e.Fatal = true
	return e
}

// New creates a new AppError with automatic fatal detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Fatal:   IsFatalCode(code),
	}
}

// --- Constructors ---

// SetupFailure creates an AppError for a filter command that cannot be started.
func SetupFailure(command string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSetupFailure, Message: fmt.Sprintf("cannot execute %q", command),
		Details: map[string]any{"command": command}, Cause: cause,
	}
}

// InvalidInput creates an AppError for a bad argument or configuration value.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an AppError for configuration validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// ColumnOutOfRange creates an AppError for an input line that lacks the selected column.
func ColumnOutOfRange(line int64, column, fields int) *AppError {
	return &AppError{
		Code: ErrCodeColumnOutOfRange,
		Message: fmt.Sprintf("column index %d out of range on line %d (%d fields)",
			column, line, fields),
		Fatal:   true,
		Details: map[string]any{"line": line, "column": column, "fields": fields},
	}
}

// RowCountExcess creates an AppError for a filter that emitted an extra line.
func RowCountExcess(given int64) *AppError {
	return &AppError{
		Code:    ErrCodeRowCountExcess,
		Message: "subprocess produced more lines of output than it was given",
		Fatal:   true,
		Details: map[string]any{"given": given},
	}
}

// RowCountDeficit creates an AppError for a filter that dropped lines.
func RowCountDeficit(produced int64) *AppError {
	return &AppError{
		Code:    ErrCodeRowCountDeficit,
		Message: "subprocess produced fewer lines of output than it was given",
		Fatal:   true,
		Details: map[string]any{"produced": produced},
	}
}

// Unexpected creates an AppError for any other failure. Failures inside a
// worker flow are escalated as fatal by the caller.
func Unexpected(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeUnexpected, Message: fmt.Sprintf("%s failed", op),
		Details: map[string]any{"operation": op}, Cause: cause,
	}
}

// Interrupted creates an AppError for a run cancelled by a signal.
func Interrupted(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInterrupted, Message: "interrupted", Cause: cause,
	}
}
