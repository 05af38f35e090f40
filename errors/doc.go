// Package errors provides the error taxonomy for colpipe.
// Every failure is an AppError carrying a machine-readable code that maps to
// a process exit code, and fatal codes mark broken line alignment.
package errors
