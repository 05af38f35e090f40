package errors

import (
	stderrors "errors"
)

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Wrap returns err as an AppError, classifying unknown errors as unexpected.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Unexpected("run", err)
}

// CodeOf returns the error code of err, or the empty code for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Wrap(err).Code
}

// ExitCode maps any error to a process exit code. A nil error is success.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return Wrap(err).ExitCode()
}

// IsFatal reports whether err aborts the pipeline abruptly.
func IsFatal(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Fatal
}
