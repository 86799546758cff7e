package tvm

import (
	"errors"
	"fmt"
)

// ExitError aborts a contract execution with the given exit code. The host
// reverts the action list and, for bounceable messages, bounces the inbound
// value back to its source.
type ExitError struct {
	Code ExitCode
	Err  error
}

func Throw(code ExitCode, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d: %s", e.Code, e.Code.Describe())
	}
	return fmt.Sprintf("exit code %d: %s: %v", e.Code, e.Code.Describe(), e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// CodeOf extracts the exit code carried by err. Errors that are not an
// ExitError map to ExitCodeUnknownError, nil maps to ExitCodeSuccess.
func CodeOf(err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCodeUnknownError
}
