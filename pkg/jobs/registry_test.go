// pkg/jobs/registry_test.go

package jobs

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiptideSecurity/scour/pkg/extent"
	"github.com/RiptideSecurity/scour/pkg/journal"
	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/sanitize"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

type fixture struct {
	rc      *scour_io.RuntimeContext
	root    string
	backend *extent.MemBackend
	sandbox *extent.Sandbox
	journal *journal.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	sb, err := extent.NewSandbox(root)
	require.NoError(t, err)

	jn, err := journal.NewStore(filepath.Join(t.TempDir(), "jobs"))
	require.NoError(t, err)

	return &fixture{
		rc:      scour_io.NewContext(context.Background(), "test"),
		root:    root,
		backend: extent.NewMemBackend(),
		sandbox: sb,
		journal: jn,
	}
}

func (f *fixture) registry(t *testing.T, opts Options) *Registry {
	t.Helper()
	opts.Sandbox = f.sandbox
	opts.Backend = f.backend
	if opts.Journal == nil {
		opts.Journal = f.journal
	}
	if opts.Engine.RetryDelay == 0 {
		opts.Engine.RetryDelay = time.Millisecond
	}
	r, err := NewRegistry(f.rc, opts)
	require.NoError(t, err)
	return r
}

// target registers an extent of the given size under the sandbox root and
// returns the raw reference to submit.
func (f *fixture) target(t *testing.T, name string, size int64) string {
	t.Helper()
	raw := filepath.Join(f.root, name)
	resolved, err := f.sandbox.Resolve(raw)
	require.NoError(t, err)
	f.backend.PutZero(resolved, size)
	return raw
}

func (f *fixture) resolved(t *testing.T, name string) string {
	t.Helper()
	path, err := f.sandbox.Resolve(filepath.Join(f.root, name))
	require.NoError(t, err)
	return path
}

func TestSubmitEndToEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{Engine: sanitize.Config{ChunkSize: 1024}})

	raw := f.target(t, "doc.bin", 4096)
	id, err := r.Submit(f.rc, raw, patterns.StandardThreePassDoD)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := r.Wait(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, int64(4096), snap.ExtentSize)
	assert.Equal(t, 3, snap.RequestedPasses)
	assert.InDelta(t, 100.0, snap.Progress, 0.001)
	require.Len(t, snap.PassRecords, 3)
	assert.Equal(t, "0x00-fill", snap.PassRecords[0].Pattern)
	assert.Equal(t, "0xFF-fill", snap.PassRecords[1].Pattern)
	assert.Equal(t, "random", snap.PassRecords[2].Pattern)
	require.NotNil(t, snap.CompletedAt)

	// Target gone from storage, job archived in the journal.
	assert.True(t, f.backend.Removed(f.resolved(t, "doc.bin")))
	rec, err := f.journal.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "completed", rec.State)
	assert.True(t, rec.Verify())
}

func TestPassOrderMatchesGenerator(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{})

	for _, std := range patterns.All() {
		raw := f.target(t, "t-"+string(std), 512)
		id, err := r.Submit(f.rc, raw, std)
		require.NoError(t, err)

		snap, err := r.Wait(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, StateCompleted, snap.State)

		seq, err := patterns.Sequence(std)
		require.NoError(t, err)
		require.Len(t, snap.PassRecords, len(seq))
		for i, d := range seq {
			assert.Equal(t, d.Label(), snap.PassRecords[i].Pattern, "standard %s pass %d", std, i)
			assert.Equal(t, i, snap.PassRecords[i].PassIndex)
		}
	}
}

func TestMutualExclusionPerTarget(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	gate := make(chan struct{})
	f.backend.SyncGate = gate

	r := f.registry(t, Options{})
	raw := f.target(t, "contested", 256)

	id1, err := r.Submit(f.rc, raw, patterns.StandardZeroFill)
	require.NoError(t, err)

	// The first job is held at its pass barrier; the target lock is live.
	_, err = r.Submit(f.rc, raw, patterns.StandardZeroFill)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrTargetBusy))

	gate <- struct{}{}
	snap, err := r.Wait(context.Background(), id1)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, snap.State)

	// After the terminal state the same target admits a new job. The
	// extent was removed, so reinstall it first.
	f.backend.PutZero(f.resolved(t, "contested"), 256)
	id2, err := r.Submit(f.rc, raw, patterns.StandardZeroFill)
	require.NoError(t, err)
	gate <- struct{}{}
	snap, err = r.Wait(context.Background(), id2)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
}

func TestConcurrentSubmitsSingleWinner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	gate := make(chan struct{})
	f.backend.SyncGate = gate

	r := f.registry(t, Options{MaxConcurrentJobs: 8})
	raw := f.target(t, "raced", 128)

	const submitters = 8
	var wg sync.WaitGroup
	ids := make(chan string, submitters)
	busy := make(chan error, submitters)

	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Submit(f.rc, raw, patterns.StandardZeroFill)
			if err != nil {
				busy <- err
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)
	close(busy)

	var winners []string
	for id := range ids {
		winners = append(winners, id)
	}
	require.Len(t, winners, 1, "exactly one submission may win the target")
	for err := range busy {
		assert.True(t, cerr.Is(err, ErrTargetBusy))
	}

	gate <- struct{}{}
	snap, err := r.Wait(context.Background(), winners[0])
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
}

func TestCancelRunningJobAtPassBoundary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	gate := make(chan struct{})
	f.backend.SyncGate = gate

	r := f.registry(t, Options{Engine: sanitize.Config{ChunkSize: 1024}})
	raw := f.target(t, "midflight", 4096)
	resolved := f.resolved(t, "midflight")

	id, err := r.Submit(f.rc, raw, patterns.StandardThreePassDoD)
	require.NoError(t, err)

	// Wait until pass 1's writes landed, then the engine is at (or headed
	// into) the gated barrier: past the pass-0 boundary check.
	require.Eventually(t, func() bool {
		return f.backend.Writes(resolved) >= 4
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, r.Cancel(f.rc, id))

	// Release the barrier; the pass completes, then cancellation is
	// honored at the boundary.
	gate <- struct{}{}

	snap, err := r.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, snap.State)
	require.Len(t, snap.PassRecords, 1, "the in-flight pass runs to its barrier")
	assert.Equal(t, "0x00-fill", snap.PassRecords[0].Pattern)
	assert.False(t, f.backend.Removed(resolved), "cancellation never removes the extent")
	assert.Less(t, snap.Progress, 100.0)
}

func TestCancelPendingJobNeverStarts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	gate := make(chan struct{})
	f.backend.SyncGate = gate

	// One engine slot: the second job queues as Pending.
	r := f.registry(t, Options{MaxConcurrentJobs: 1})
	first := f.target(t, "first", 256)
	second := f.target(t, "second", 256)

	id1, err := r.Submit(f.rc, first, patterns.StandardZeroFill)
	require.NoError(t, err)

	// The first job must own the engine slot before the second queues.
	require.Eventually(t, func() bool {
		return f.backend.Writes(f.resolved(t, "first")) >= 1
	}, 5*time.Second, time.Millisecond)

	id2, err := r.Submit(f.rc, second, patterns.StandardZeroFill)
	require.NoError(t, err)

	require.NoError(t, r.Cancel(f.rc, id2))
	gate <- struct{}{}

	snap1, err := r.Wait(context.Background(), id1)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap1.State)

	snap2, err := r.Wait(context.Background(), id2)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, snap2.State)
	assert.Empty(t, snap2.PassRecords)
	assert.False(t, f.backend.Removed(f.resolved(t, "second")))
}

func TestCancelTerminalJobIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{})

	raw := f.target(t, "done", 64)
	id, err := r.Submit(f.rc, raw, patterns.StandardZeroFill)
	require.NoError(t, err)
	_, err = r.Wait(context.Background(), id)
	require.NoError(t, err)

	assert.NoError(t, r.Cancel(f.rc, id))
	snap, err := r.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
}

func TestMonotonicProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{Engine: sanitize.Config{ChunkSize: 512}})

	raw := f.target(t, "progress", 1<<20)
	id, err := r.Submit(f.rc, raw, patterns.StandardFourPassComplement)
	require.NoError(t, err)

	var samples []float64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			snap, err := r.GetStatus(id)
			if err != nil {
				return
			}
			samples = append(samples, snap.Progress)
			if snap.State.IsTerminal() {
				return
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()

	snap, err := r.Wait(context.Background(), id)
	require.NoError(t, err)
	<-done

	require.Equal(t, StateCompleted, snap.State)
	require.NotEmpty(t, samples)
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i], samples[i-1], "progress regressed at sample %d", i)
	}
	for _, s := range samples {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
	}
	// Exactly 100 only at Completed.
	assert.InDelta(t, 100.0, samples[len(samples)-1], 0.001)
}

func TestSandboxEscapeRejectedBeforeAnyWrite(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{})

	outside := filepath.Join(f.root, "..", "victim.bin")
	_, err := r.Submit(f.rc, outside, patterns.StandardZeroFill)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, extent.ErrPathEscapesSandbox))

	// No job record, no writes, no lock.
	assert.Empty(t, r.List())
	assert.Zero(t, f.backend.TotalWrites())
}

func TestUnknownStandardCreatesNoJob(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{})

	raw := f.target(t, "x", 64)
	_, err := r.Submit(f.rc, raw, patterns.Standard("NSA_130-2"))
	require.Error(t, err)
	assert.True(t, cerr.Is(err, patterns.ErrUnknownStandard))
	assert.Empty(t, r.List())
}

func TestGetStatusUnknownJob(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{})

	_, err := r.GetStatus("00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrJobNotFound))
}

func TestFailedJobRetainsPassRecords(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{})

	raw := f.target(t, "pinned", 256)
	f.backend.RemoveErr = cerr.New("busy inode")

	id, err := r.Submit(f.rc, raw, patterns.StandardTwoPass)
	require.NoError(t, err)

	snap, err := r.Wait(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Error, "remove extent")
	assert.Contains(t, snap.Error, "busy inode", "root cause preserved verbatim")
	require.Len(t, snap.PassRecords, 2, "partial progress is never hidden")
	assert.Less(t, snap.Progress, 100.0)
}

func TestPurgeRemovesTerminalRecords(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{})

	raw := f.target(t, "purgeable", 64)
	id, err := r.Submit(f.rc, raw, patterns.StandardZeroFill)
	require.NoError(t, err)
	_, err = r.Wait(context.Background(), id)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	purged, err := r.Purge(f.rc, time.Nanosecond)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = r.GetStatus(id)
	assert.True(t, cerr.Is(err, ErrJobNotFound))
	_, err = f.journal.Load(id)
	assert.Error(t, err)
}

func TestPurgeCountsJournalOnlyRecordsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{})

	raw := f.target(t, "purgeable", 64)
	id, err := r.Submit(f.rc, raw, patterns.StandardZeroFill)
	require.NoError(t, err)
	_, err = r.Wait(context.Background(), id)
	require.NoError(t, err)

	// An archived record from an earlier process run, unknown to the
	// in-memory registry.
	finished := time.Now().Add(-48 * time.Hour)
	require.NoError(t, f.journal.Save(&journal.Record{
		ID:          "stale-job",
		TargetRef:   "gone.bin",
		TargetPath:  filepath.Join(f.root, "gone.bin"),
		Standard:    string(patterns.StandardZeroFill),
		State:       string(StateCompleted),
		CreatedAt:   finished.Add(-time.Minute),
		CompletedAt: &finished,
	}))

	time.Sleep(10 * time.Millisecond)
	purged, err := r.Purge(f.rc, time.Nanosecond)
	require.NoError(t, err)

	// One job lived in both memory and journal, one in the journal only.
	assert.Equal(t, 2, purged)
	_, err = f.journal.Load("stale-job")
	assert.Error(t, err)
}

func TestRehydrationAcrossRestarts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	r := f.registry(t, Options{})

	raw := f.target(t, "persisted", 128)
	id, err := r.Submit(f.rc, raw, patterns.StandardTwoPass)
	require.NoError(t, err)
	_, err = r.Wait(context.Background(), id)
	require.NoError(t, err)

	// A second registry over the same journal sees the finished job.
	r2 := f.registry(t, Options{})
	snap, err := r2.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Len(t, snap.PassRecords, 2)
}

func TestRehydrationFailsInterruptedJobs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// Simulate a crash: a record persisted as running with no live engine.
	require.NoError(t, f.journal.Save(&journal.Record{
		ID:              "ghost-job",
		TargetRef:       "ghost.bin",
		TargetPath:      filepath.Join(f.root, "ghost.bin"),
		Standard:        "TWO_PASS",
		RequestedPasses: 2,
		State:           "running",
		CurrentPass:     1,
		CreatedAt:       time.Now().UTC(),
	}))

	r := f.registry(t, Options{})
	snap, err := r.GetStatus("ghost-job")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.True(t, snap.Interrupted)
	assert.Contains(t, snap.Error, "interrupted")

	// Ghost jobs hold no target lock: the same target admits a new job.
	raw := f.target(t, "ghost.bin", 64)
	_, err = r.Submit(f.rc, raw, patterns.StandardZeroFill)
	assert.NoError(t, err)
}
