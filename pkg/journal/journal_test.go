// pkg/journal/journal_test.go

package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiptideSecurity/scour/pkg/sanitize"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "jobs"))
	require.NoError(t, err)
	return s
}

func sampleRecord(id, state string) *Record {
	return &Record{
		ID:              id,
		TargetRef:       "doc.bin",
		TargetPath:      "/sandbox/doc.bin",
		Standard:        "THREE_PASS_DOD",
		RequestedPasses: 3,
		ExtentSize:      4096,
		State:           state,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	rec := sampleRecord("job-1", "running")
	rec.PassRecords = []sanitize.PassRecord{{
		PassIndex:        0,
		Pattern:          "0x00-fill",
		StartedAt:        time.Now().UTC(),
		CompletedAt:      time.Now().UTC(),
		VerificationHash: sanitize.PassHash("job-1", 0, "0x00-fill"),
	}}
	require.NoError(t, s.Save(rec))

	loaded, err := s.Load("job-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, rec.Standard, loaded.Standard)
	require.Len(t, loaded.PassRecords, 1)
	assert.Equal(t, "0x00-fill", loaded.PassRecords[0].Pattern)
	assert.True(t, loaded.Verify())
}

func TestLoadUnknown(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	_, err := s.Load("nope")
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrRecordNotFound))
}

func TestTerminalRecordsArchive(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	rec := sampleRecord("job-2", "running")
	require.NoError(t, s.Save(rec))

	activePath := filepath.Join(s.basePath, activeDir, "job-2.json")
	_, err := os.Stat(activePath)
	require.NoError(t, err)

	rec.State = "completed"
	require.NoError(t, s.Save(rec))

	_, err = os.Stat(activePath)
	assert.True(t, os.IsNotExist(err), "active copy must be retired on archive")

	_, err = os.Stat(filepath.Join(s.basePath, archiveDir, "job-2.json"))
	assert.NoError(t, err)

	// Still loadable after archiving.
	loaded, err := s.Load("job-2")
	require.NoError(t, err)
	assert.True(t, loaded.Terminal())
}

func TestChecksumDetectsTampering(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	rec := sampleRecord("job-3", "completed")
	require.NoError(t, s.Save(rec))

	loaded, err := s.Load("job-3")
	require.NoError(t, err)
	require.True(t, loaded.Verify())

	loaded.Standard = "ZERO_FILL"
	assert.False(t, loaded.Verify())
}

func TestListActiveSurfacesInterruptedJobs(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	require.NoError(t, s.Save(sampleRecord("done", "completed")))
	require.NoError(t, s.Save(sampleRecord("ghost", "running")))

	active, err := s.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ghost", active[0].ID)
}

func TestCleanupRemovesOldTerminalOnly(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	old := sampleRecord("old", "completed")
	finished := time.Now().Add(-48 * time.Hour)
	old.CompletedAt = &finished
	require.NoError(t, s.Save(old))

	fresh := sampleRecord("fresh", "completed")
	now := time.Now()
	fresh.CompletedAt = &now
	require.NoError(t, s.Save(fresh))

	running := sampleRecord("running", "running")
	running.CreatedAt = time.Now().Add(-72 * time.Hour)
	require.NoError(t, s.Save(running))

	cleaned, err := s.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, cleaned)

	_, err = s.Load("old")
	assert.Error(t, err)
	_, err = s.Load("fresh")
	assert.NoError(t, err)
	_, err = s.Load("running")
	assert.NoError(t, err)
}

func TestRecordFilePermissions(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	require.NoError(t, s.Save(sampleRecord("perm", "running")))

	info, err := os.Stat(filepath.Join(s.basePath, activeDir, "perm.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
