package attest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiptideSecurity/scour/pkg/crypto"
	"github.com/RiptideSecurity/scour/pkg/extent"
	"github.com/RiptideSecurity/scour/pkg/jobs"
	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/sanitize"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

// Full path: submit a wipe, wait for completion, attest, verify.
func TestWipeAttestVerifyEndToEnd(t *testing.T) {
	rc := scour_io.NewContext(context.Background(), "test")

	root := t.TempDir()
	sandbox, err := extent.NewSandbox(root)
	require.NoError(t, err)

	backend := extent.NewMemBackend()
	raw := filepath.Join(root, "payload.bin")
	resolved, err := sandbox.Resolve(raw)
	require.NoError(t, err)
	backend.PutZero(resolved, 4096)

	registry, err := jobs.NewRegistry(rc, jobs.Options{
		Sandbox: sandbox,
		Backend: backend,
		Engine:  sanitize.Config{RetryDelay: time.Millisecond},
	})
	require.NoError(t, err)

	jobID, err := registry.Submit(rc, raw, patterns.StandardThreePassDoD)
	require.NoError(t, err)

	snap, err := registry.Wait(rc.Ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, jobs.StateCompleted, snap.State)
	require.True(t, backend.Removed(resolved))

	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	svc := NewService(registry, &stubKeys{key: key}, nil)

	rec, err := svc.Attest(rc, jobID)
	require.NoError(t, err)

	assert.True(t, Verify(rec))
	assert.Equal(t, int64(4096), rec.Target.SizeBytes)
	assert.Len(t, rec.PassRecords, 3)
	assert.Equal(t, "random", rec.PassRecords[2].Pattern)
}
