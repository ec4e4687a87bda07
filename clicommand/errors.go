package clicommand

import (
	"errors"
	"fmt"
	"os"
)

// ExitError signals that the process should exit with code, wrapping the
// underlying error for context. Grounded on buildkite-agent/clicommand/errors.go.
type ExitError struct {
	code  int
	inner error
}

// NewExitError returns an ExitError with the given code and wrapped error.
func NewExitError(code int, err error) *ExitError {
	return &ExitError{code: code, inner: err}
}

func (e *ExitError) Code() int    { return e.code }
func (e *ExitError) Error() string { return e.inner.Error() }
func (e *ExitError) Unwrap() error { return e.inner }

func (e *ExitError) Is(target error) bool {
	terr, ok := target.(*ExitError)
	return ok && e.code == terr.code
}

// SilentExitError instructs PrintMessageAndReturnExitCode to exit with code
// without printing anything, used by `check` to signal a qualifying
// failure without an extra error line.
type SilentExitError struct {
	code int
}

// NewSilentExitError returns a SilentExitError with the given code.
func NewSilentExitError(code int) *SilentExitError {
	return &SilentExitError{code: code}
}

func (e *SilentExitError) Error() string { return fmt.Sprintf("silently exited status %d", e.code) }
func (e *SilentExitError) Code() int     { return e.code }

func (e *SilentExitError) Is(target error) bool {
	terr, ok := target.(*SilentExitError)
	return ok && e.code == terr.code
}

// PrintMessageAndReturnExitCode prints err to stderr (unless it's a
// SilentExitError) preceded by "bjobs: fatal: " and returns the process
// exit code: 0 for nil, the wrapped code for ExitError/SilentExitError, 1
// otherwise.
func PrintMessageAndReturnExitCode(err error) int {
	if err == nil {
		return 0
	}

	if serr := new(SilentExitError); errors.As(err, &serr) {
		return serr.Code()
	}

	fmt.Fprintf(os.Stderr, "bjobs: fatal: %s\n", err)

	if eerr := new(ExitError); errors.As(err, &eerr) {
		return eerr.Code()
	}

	return 1
}
