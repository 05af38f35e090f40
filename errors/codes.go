package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Setup errors (before any data has flowed)
const (
	// ErrCodeSetupFailure indicates the filter command could not be located or executed.
	ErrCodeSetupFailure ErrorCode = "SETUP_FAILURE"
	// ErrCodeInvalidInput indicates bad invocation arguments or configuration.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Data-integrity errors (the alignment between lines is lost)
const (
	// ErrCodeColumnOutOfRange indicates an input line has no field at the selected column.
	ErrCodeColumnOutOfRange ErrorCode = "COLUMN_OUT_OF_RANGE"
	// ErrCodeRowCountExcess indicates the filter produced more lines than it was given.
	ErrCodeRowCountExcess ErrorCode = "ROW_COUNT_EXCESS"
	// ErrCodeRowCountDeficit indicates the filter produced fewer lines than it was given.
	ErrCodeRowCountDeficit ErrorCode = "ROW_COUNT_DEFICIT"
)

// Runtime errors
const (
	// ErrCodeUnexpected indicates any other failure.
	ErrCodeUnexpected ErrorCode = "UNEXPECTED_FAILURE"
	// ErrCodeInterrupted indicates colpipe itself received a termination signal.
	ErrCodeInterrupted ErrorCode = "INTERRUPTED"
)

// Process exit codes.
const (
	ExitSuccess     = 0
	ExitSetup       = 2
	ExitUsage       = 64
	ExitUnexpected  = 127
	ExitInterrupted = 130
	// ExitFatal matches what a shell reports for a SIGKILLed process.
	ExitFatal = 137
)

var exitCodes = map[ErrorCode]int{
	ErrCodeSetupFailure:     ExitSetup,
	ErrCodeInvalidInput:     ExitUsage,
	ErrCodeColumnOutOfRange: ExitFatal,
	ErrCodeRowCountExcess:   ExitFatal,
	ErrCodeRowCountDeficit:  ExitFatal,
	ErrCodeUnexpected:       ExitUnexpected,
	ErrCodeInterrupted:      ExitInterrupted,
}

var fatalCodes = map[ErrorCode]bool{
	ErrCodeColumnOutOfRange: true,
	ErrCodeRowCountExcess:   true,
	ErrCodeRowCountDeficit:  true,
}

// IsFatalCode reports whether the code breaks line alignment and therefore
// terminates the pipeline without waiting for the other flow.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}

// ExitCodeFor returns the process exit code for an error code.
func ExitCodeFor(code ErrorCode) int {
	if c, ok := exitCodes[code]; ok {
		return c
	}
	return ExitUnexpected
}
