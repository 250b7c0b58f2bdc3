package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiptideSecurity/scour/pkg/scour_err"
)

func validSettings() *Settings {
	return &Settings{
		SandboxRoot:       "/srv/sandbox",
		StateDir:          "/var/lib/scour",
		ChunkSizeBytes:    1 << 20,
		MaxConcurrentJobs: 4,
		RetryDelay:        250 * time.Millisecond,
		Residue:           ResidueSettings{Enabled: true, SampleBytes: 64 << 10},
		Attestation:       AttestationSettings{KeySource: "file", KeyFile: "/etc/scour/signing.key"},
	}
}

func TestValidateAcceptsCompleteSettings(t *testing.T) {
	require.NoError(t, Validate(validSettings()))
}

func TestValidateRejectsMissingSandboxRoot(t *testing.T) {
	s := validSettings()
	s.SandboxRoot = ""

	err := Validate(s)
	require.Error(t, err)
	assert.True(t, scour_err.IsExpectedUserError(err))
	assert.Contains(t, err.Error(), "SandboxRoot is required")
}

func TestValidateRejectsBadConcurrency(t *testing.T) {
	s := validSettings()
	s.MaxConcurrentJobs = 0

	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxConcurrentJobs must be at least 1")
}

func TestValidateRejectsUnknownKeySource(t *testing.T) {
	s := validSettings()
	s.Attestation.KeySource = "hsm"

	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Attestation.KeySource must be one of: file, vault")
}

func TestValidateVaultSourceNeedsPath(t *testing.T) {
	s := validSettings()
	s.Attestation = AttestationSettings{KeySource: "vault", VaultMount: "secret"}

	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Attestation.VaultPath is required")
}

func TestValidateCollectsAllFailures(t *testing.T) {
	s := validSettings()
	s.SandboxRoot = ""
	s.ChunkSizeBytes = 0

	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SandboxRoot")
	assert.Contains(t, err.Error(), "ChunkSizeBytes")
}
