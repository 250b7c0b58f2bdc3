// pkg/scour_err/errors.go

package scour_err

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

var debugMode bool

func SetDebugMode(enabled bool) {
	debugMode = enabled
}

func DebugEnabled() bool {
	return debugMode
}

// UserError marks an error as expected and recoverable by the operator.
// Expected errors are reported without stack traces or panic-style noise.
type UserError struct {
	cause error
}

func (e *UserError) Error() string {
	return e.cause.Error()
}

func (e *UserError) Unwrap() error {
	return e.cause
}

// NewExpectedError wraps an error for softer UX handling.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &UserError{cause: err}
}

// NewExpectedErrorf is NewExpectedError over a formatted message.
func NewExpectedErrorf(format string, args ...interface{}) error {
	return &UserError{cause: fmt.Errorf(format, args...)}
}

// IsExpectedUserError checks if the error is marked as expected.
func IsExpectedUserError(err error) bool {
	var e *UserError
	return errors.As(err, &e)
}

// PrintError prints a human-readable error message without exiting.
func PrintError(userMessage string, err error) {
	if err == nil {
		return
	}

	if IsExpectedUserError(err) {
		zap.L().Warn(userMessage, zap.Error(err))
		fmt.Fprintf(os.Stderr, "⚠️  Notice: %s: %v\n", userMessage, err)
		return
	}

	zap.L().Error(userMessage, zap.Error(err))
	fmt.Fprintf(os.Stderr, "❌ Error: %s: %v\n", userMessage, err)
	if !DebugEnabled() {
		fmt.Fprintln(os.Stderr, "👉 Tip: rerun with --debug for more details.")
	}
}
