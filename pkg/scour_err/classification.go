// pkg/scour_err/classification.go
//
// Error classification with stable exit codes so batch callers and
// decommissioning runbooks can branch on the result of a wipe.

package scour_err

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for appropriate handling
type ErrorCategory int

const (
	// CategorySystem - OS/filesystem issues (exit 1)
	CategorySystem ErrorCategory = iota
	// CategoryValidation - Input validation failures (exit 2)
	CategoryValidation
	// CategorySanitization - Overwrite/removal failures on the target extent (exit 1)
	CategorySanitization
	// CategoryAttestation - Certificate issuance/verification failures (exit 1)
	CategoryAttestation
	// CategoryUser - Operator cancelled/interrupted (exit 130)
	CategoryUser
	// CategoryInternal - Bugs in scour itself (exit 3)
	CategoryInternal
	// CategoryPermission - Permission denied (exit 1)
	CategoryPermission
)

// ClassifiedError wraps an error with category and remediation info
type ClassifiedError struct {
	Category    ErrorCategory
	Message     string
	Cause       error
	Remediation []string
	DocsURL     string
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Message)

	if e.Cause != nil && e.Cause.Error() != e.Message {
		sb.WriteString(fmt.Sprintf("\n\nCause: %v", e.Cause))
	}

	if len(e.Remediation) > 0 {
		sb.WriteString("\n\nHow to fix:")
		for i, step := range e.Remediation {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	if e.DocsURL != "" {
		sb.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return sb.String()
}

// Unwrap returns the underlying error
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error category
func (e *ClassifiedError) ExitCode() int {
	switch e.Category {
	case CategoryUser:
		return 130 // Standard for SIGINT (Ctrl-C)
	case CategoryValidation:
		return 2 // Invalid input/arguments
	case CategoryInternal:
		return 3 // Internal error/bug
	default:
		return 1 // General error
	}
}

// GetExitCode extracts exit code from any error.
// Returns 0 for nil, the category code for classified errors, 1 for others.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.ExitCode()
	}

	if IsExpectedUserError(err) {
		return 1
	}

	return 1
}

// NewValidationError creates an error for input validation failures
func NewValidationError(message string, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryValidation,
		Message:     message,
		Remediation: remediation,
	}
}

// NewSanitizationError creates an error for overwrite/removal failures
func NewSanitizationError(message string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategorySanitization,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewInternalError flags a bug in scour itself
func NewInternalError(message string, cause error) error {
	return &ClassifiedError{
		Category: CategoryInternal,
		Message:  message,
		Cause:    cause,
		Remediation: []string{
			"This is a bug, please report it",
			"Include the full command and log output",
		},
		DocsURL: "https://github.com/RiptideSecurity/scour/issues",
	}
}

// NewUserCancelledError marks an operator-initiated interruption
func NewUserCancelledError(message string) error {
	return &ClassifiedError{
		Category: CategoryUser,
		Message:  message,
	}
}
