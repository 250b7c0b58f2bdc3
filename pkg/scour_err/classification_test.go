// pkg/scour_err/classification_test.go

package scour_err

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifiedErrorExitCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category ErrorCategory
		want     int
	}{
		{"user cancellation", CategoryUser, 130},
		{"validation", CategoryValidation, 2},
		{"internal bug", CategoryInternal, 3},
		{"sanitization failure", CategorySanitization, 1},
		{"attestation failure", CategoryAttestation, 1},
		{"permission", CategoryPermission, 1},
		{"system", CategorySystem, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ce := &ClassifiedError{Category: tt.category, Message: "x"}
			assert.Equal(t, tt.want, ce.ExitCode())
		})
	}
}

func TestGetExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, GetExitCode(nil))
	assert.Equal(t, 1, GetExitCode(errors.New("plain")))
	assert.Equal(t, 2, GetExitCode(NewValidationError("bad flag")))

	wrapped := fmt.Errorf("outer: %w", NewUserCancelledError("interrupted"))
	assert.Equal(t, 130, GetExitCode(wrapped))
}

func TestClassifiedErrorMessageIncludesRemediation(t *testing.T) {
	t.Parallel()

	err := NewValidationError("unknown standard \"DOD9\"",
		"run 'scour inspect standards' to list supported standards")

	msg := err.Error()
	assert.Contains(t, msg, "unknown standard")
	assert.Contains(t, msg, "How to fix:")
	assert.Contains(t, msg, "inspect standards")
}

func TestExpectedUserErrorDetection(t *testing.T) {
	t.Parallel()

	base := errors.New("target is busy")
	expected := NewExpectedError(base)

	assert.True(t, IsExpectedUserError(expected))
	assert.True(t, IsExpectedUserError(fmt.Errorf("submit: %w", expected)))
	assert.False(t, IsExpectedUserError(base))
	assert.Nil(t, NewExpectedError(nil))
	assert.ErrorIs(t, expected, base)
}
