package attest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiptideSecurity/scour/pkg/crypto"
	"github.com/RiptideSecurity/scour/pkg/jobs"
	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/sanitize"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

type stubSource struct {
	snaps map[string]jobs.Snapshot
}

func (s *stubSource) GetStatus(jobID string) (jobs.Snapshot, error) {
	snap, ok := s.snaps[jobID]
	if !ok {
		return jobs.Snapshot{}, cerr.Mark(cerr.Newf("job %s", jobID), jobs.ErrJobNotFound)
	}
	return snap, nil
}

type stubKeys struct {
	key *crypto.SigningKey
}

func (s *stubKeys) Load(context.Context) (*crypto.SigningKey, error) {
	return s.key, nil
}

func completedSnapshot(t *testing.T, id string) jobs.Snapshot {
	t.Helper()
	started := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)
	done := started.Add(3 * time.Second)
	return jobs.Snapshot{
		ID:         id,
		TargetPath: "/srv/sandbox/payload.bin",
		Standard:   patterns.StandardThreePassDoD,
		ExtentSize: 4096,
		State:      jobs.StateCompleted,
		Progress:   100,
		PassRecords: []sanitize.PassRecord{
			{PassIndex: 0, Pattern: "0x00-fill", StartedAt: started, CompletedAt: started.Add(time.Second), VerificationHash: sanitize.PassHash(id, 0, "0x00-fill")},
			{PassIndex: 1, Pattern: "0xFF-fill", StartedAt: started.Add(time.Second), CompletedAt: started.Add(2 * time.Second), VerificationHash: sanitize.PassHash(id, 1, "0xFF-fill")},
			{PassIndex: 2, Pattern: "random", StartedAt: started.Add(2 * time.Second), CompletedAt: done, VerificationHash: sanitize.PassHash(id, 2, "random")},
		},
		CompletedAt: &done,
	}
}

func testService(t *testing.T, snaps map[string]jobs.Snapshot) (*Service, *Store) {
	t.Helper()
	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	store, err := NewStore(filepath.Join(t.TempDir(), "attestations"))
	require.NoError(t, err)
	return NewService(&stubSource{snaps: snaps}, &stubKeys{key: key}, store), store
}

func TestAttestThenVerify(t *testing.T) {
	svc, _ := testService(t, map[string]jobs.Snapshot{
		"job-1": completedSnapshot(t, "job-1"),
	})
	rc := scour_io.NewContext(context.Background(), "test")

	rec, err := svc.Attest(rc, "job-1")
	require.NoError(t, err)

	assert.Equal(t, "1.0", rec.SchemaVersion)
	assert.Equal(t, "job-1", rec.JobID)
	assert.Equal(t, "THREE_PASS_DOD", rec.Standard)
	assert.Equal(t, int64(4096), rec.Target.SizeBytes)
	assert.Len(t, rec.PassRecords, 3)
	assert.Len(t, rec.Nonce, 32)
	assert.NotEmpty(t, rec.Signature)
	assert.NotEmpty(t, rec.PublicKey)
	assert.NotEmpty(t, rec.KeyID)

	assert.True(t, Verify(rec))
}

func TestVerifyRejectsAnyMutation(t *testing.T) {
	svc, _ := testService(t, map[string]jobs.Snapshot{
		"job-1": completedSnapshot(t, "job-1"),
	})
	rc := scour_io.NewContext(context.Background(), "test")

	mutations := map[string]func(*Record){
		"job id":         func(r *Record) { r.JobID = "job-2" },
		"target path":    func(r *Record) { r.Target.Path = "/srv/sandbox/other.bin" },
		"target size":    func(r *Record) { r.Target.SizeBytes = 8192 },
		"standard":       func(r *Record) { r.Standard = "ZERO_FILL" },
		"pass pattern":   func(r *Record) { r.PassRecords[1].Pattern = "0x55-fill" },
		"pass hash":      func(r *Record) { r.PassRecords[0].VerificationHash = "0000" },
		"completed at":   func(r *Record) { r.CompletedAt = r.CompletedAt.Add(time.Minute) },
		"nonce":          func(r *Record) { r.Nonce = "00112233445566778899aabbccddeeff" },
		"digest":         func(r *Record) { r.Digest = crypto.HashString("forged") },
		"signature":      func(r *Record) { r.Signature = r.Signature[1:] + "A" },
		"public key":     func(r *Record) { r.PublicKey = "" },
		"key id":         func(r *Record) { r.KeyID = "deadbeefdeadbeef" },
		"schema version": func(r *Record) { r.SchemaVersion = "2.0" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			rec, err := svc.Attest(rc, "job-1")
			require.NoError(t, err)
			require.True(t, Verify(rec))

			mutate(rec)
			assert.False(t, Verify(rec), "mutating %s must invalidate the certificate", name)
		})
	}
}

func TestAttestRefusesNonCompletedJobs(t *testing.T) {
	snaps := map[string]jobs.Snapshot{}
	for _, state := range []jobs.State{jobs.StatePending, jobs.StateRunning, jobs.StateFailed, jobs.StateCancelled} {
		snap := completedSnapshot(t, "job-"+string(state))
		snap.State = state
		snaps[snap.ID] = snap
	}
	svc, _ := testService(t, snaps)
	rc := scour_io.NewContext(context.Background(), "test")

	for id := range snaps {
		_, err := svc.Attest(rc, id)
		assert.True(t, cerr.Is(err, ErrJobNotCompleted), "job %s: got %v", id, err)
	}

	_, err := svc.Attest(rc, "no-such-job")
	assert.True(t, cerr.Is(err, jobs.ErrJobNotFound))
}

func TestAttestRefusesMissingCompletionTime(t *testing.T) {
	snap := completedSnapshot(t, "job-1")
	snap.CompletedAt = nil
	svc, _ := testService(t, map[string]jobs.Snapshot{"job-1": snap})
	rc := scour_io.NewContext(context.Background(), "test")

	_, err := svc.Attest(rc, "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completion time")
}

func TestAttestNonceUniqueness(t *testing.T) {
	svc, _ := testService(t, map[string]jobs.Snapshot{
		"job-1": completedSnapshot(t, "job-1"),
	})
	rc := scour_io.NewContext(context.Background(), "test")

	first, err := svc.Attest(rc, "job-1")
	require.NoError(t, err)
	second, err := svc.Attest(rc, "job-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.Nonce, second.Nonce)
	assert.NotEqual(t, first.Digest, second.Digest)
	assert.True(t, Verify(first))
	assert.True(t, Verify(second))
}

func TestVerifyUnsignedRecord(t *testing.T) {
	rec := &Record{
		SchemaVersion: "1.0",
		JobID:         "job-1",
		Target:        Target{Path: "/srv/sandbox/payload.bin", SizeBytes: 4096},
		Standard:      "ZERO_FILL",
		CompletedAt:   time.Now().UTC(),
		Nonce:         "00112233445566778899aabbccddeeff",
	}
	digest, err := computeDigest(rec)
	require.NoError(t, err)
	rec.Digest = digest

	assert.True(t, Verify(rec), "digest-only record is acceptable")

	rec.KeyID = "deadbeefdeadbeef"
	assert.False(t, Verify(rec), "key id without signature is inconsistent")
}

func TestVerifySchemaConstraint(t *testing.T) {
	base := &Record{
		JobID:       "job-1",
		Target:      Target{Path: "/srv/sandbox/payload.bin", SizeBytes: 4096},
		Standard:    "ZERO_FILL",
		CompletedAt: time.Now().UTC(),
		Nonce:       "00112233445566778899aabbccddeeff",
	}

	cases := []struct {
		version string
		ok      bool
	}{
		{"1.0", true},
		{"1.5", true},
		{"2.0", false},
		{"0.9", false},
		{"garbage", false},
	}
	for _, tc := range cases {
		rec := *base
		rec.SchemaVersion = tc.version
		digest, err := computeDigest(&rec)
		require.NoError(t, err)
		rec.Digest = digest
		assert.Equal(t, tc.ok, Verify(&rec), "schema version %q", tc.version)
	}
}

func TestStoreSealsAndReloadsRecords(t *testing.T) {
	svc, store := testService(t, map[string]jobs.Snapshot{
		"job-1": completedSnapshot(t, "job-1"),
	})
	rc := scour_io.NewContext(context.Background(), "test")

	rec, err := svc.Attest(rc, "job-1")
	require.NoError(t, err)

	records, err := store.List("job-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.Digest, records[0].Digest)
	assert.True(t, Verify(records[0]))

	path := filepath.Join(store.basePath, rec.JobID+"-"+rec.Nonce[:8]+".json")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o400), info.Mode().Perm())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, Verify(loaded))
}
