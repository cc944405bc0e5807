package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies the class of a failed analysis job.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindEngineUnavailable Kind = "ENGINE_UNAVAILABLE"
	KindEngineTimeout     Kind = "ENGINE_TIMEOUT"
	KindEngineExecution   Kind = "ENGINE_ERROR"
	KindInfrastructure    Kind = "INFRASTRUCTURE_ERROR"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Details, "; "))
}

// NewValidationError creates a ValidationError with an optional list of details.
func NewValidationError(message string, details ...string) error {
	return &ValidationError{Message: message, Details: details}
}

// EngineUnavailableError reports that the analysis engine binary could not be invoked.
type EngineUnavailableError struct {
	Binary string
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("analysis engine %q is not available: %v", e.Binary, e.Err)
}

func (e *EngineUnavailableError) Unwrap() error { return e.Err }

// NewEngineUnavailableError creates an EngineUnavailableError for the given binary.
func NewEngineUnavailableError(binary string, err error) error {
	return &EngineUnavailableError{Binary: binary, Err: err}
}

// EngineTimeoutError reports that the engine process exceeded its wall-clock budget and was killed.
type EngineTimeoutError struct {
	Timeout time.Duration
}

func (e *EngineTimeoutError) Error() string {
	return fmt.Sprintf("analysis timed out after %s, reduce the code size or simplify the rules", e.Timeout)
}

// NewEngineTimeoutError creates an EngineTimeoutError for the given budget.
func NewEngineTimeoutError(timeout time.Duration) error {
	return &EngineTimeoutError{Timeout: timeout}
}

// EngineExecutionError reports that the engine ran but failed or produced unusable output.
type EngineExecutionError struct {
	Message string
	Output  string
	Err     error
}

func (e *EngineExecutionError) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("analysis failed: %v", e.Err)
	}
	return fmt.Sprintf("analysis failed: %s", e.Message)
}

func (e *EngineExecutionError) Unwrap() error { return e.Err }

// NewEngineExecutionError creates an EngineExecutionError.
// The output is kept for diagnostics and is not part of the error string.
func NewEngineExecutionError(message, output string, err error) error {
	return &EngineExecutionError{Message: message, Output: output, Err: err}
}

// InfrastructureError reports a local IO failure unrelated to the engine.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// NewInfrastructureError creates an InfrastructureError for the failed operation.
func NewInfrastructureError(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// KindOf classifies err. Errors outside the taxonomy are reported as KindInternal.
func KindOf(err error) Kind {
	var (
		validationErr  *ValidationError
		unavailableErr *EngineUnavailableError
		timeoutErr     *EngineTimeoutError
		executionErr   *EngineExecutionError
		infraErr       *InfrastructureError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &unavailableErr):
		return KindEngineUnavailable
	case errors.As(err, &timeoutErr):
		return KindEngineTimeout
	case errors.As(err, &executionErr):
		return KindEngineExecution
	case errors.As(err, &infraErr):
		return KindInfrastructure
	default:
		return KindInternal
	}
}

// ExitCode maps an error kind to a process exit code.
func ExitCode(kind Kind) int {
	switch kind {
	case "":
		return 0
	case KindValidation:
		return 2
	case KindEngineUnavailable:
		return 3
	case KindEngineTimeout:
		return 4
	case KindEngineExecution:
		return 5
	case KindInfrastructure:
		return 6
	default:
		return 1
	}
}

// CommandError represents a failed command, storing the exit code and the result to report.
type CommandError struct {
	ExitCode    int
	CommonError string
	Result      interface{}
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError creates a new CommandError whose exit code is derived from the kind of err.
func NewCommandError(result interface{}, err error) *CommandError {
	return &CommandError{
		ExitCode:    ExitCode(KindOf(err)),
		CommonError: err.Error(),
		Result:      result,
	}
}
