// pkg/jobs/registry.go
//
// Registry owns every sanitization job for its full lifecycle. Admission
// enforces at most one active job per resolved target path; the busy check
// and insert happen under one mutex hold so no two submissions can win the
// same extent. Each admitted job runs its own engine goroutine, bounded by
// a concurrency semaphore.

package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/extent"
	"github.com/RiptideSecurity/scour/pkg/journal"
	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/sanitize"
	"github.com/RiptideSecurity/scour/pkg/scour_err"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
	"github.com/RiptideSecurity/scour/pkg/shared"
	"github.com/RiptideSecurity/scour/pkg/telemetry"
)

// Options configures a Registry.
type Options struct {
	// Sandbox confines every target. Required.
	Sandbox *extent.Sandbox
	// Backend is the storage primitive jobs overwrite through. Required.
	Backend extent.Backend
	// Engine tunes the per-job engines.
	Engine sanitize.Config
	// Journal persists job records across process runs. Optional; nil
	// keeps everything in memory.
	Journal *journal.Store
	// MaxConcurrentJobs bounds simultaneously running engines.
	MaxConcurrentJobs int
}

// Registry tracks all jobs and arbitrates per-target exclusivity.
type Registry struct {
	sandbox *extent.Sandbox
	engine  *sanitize.Engine
	journal *journal.Store
	sem     chan struct{}

	// mu guards the maps only; per-job state is confined to the job's
	// own lock and its owning engine goroutine.
	mu     sync.Mutex
	jobs   map[string]*Job
	active map[string]string // resolved target path -> job id
}

// NewRegistry builds a registry and rehydrates journaled jobs: terminal
// records become inspectable history; records a dead process left
// non-terminal are marked failed as interrupted. Rehydrated jobs never hold
// target locks, only live in-process jobs occupy the active set.
func NewRegistry(rc *scour_io.RuntimeContext, opts Options) (*Registry, error) {
	if opts.Sandbox == nil {
		return nil, cerr.New("registry requires a sandbox")
	}
	if opts.Backend == nil {
		return nil, cerr.New("registry requires a storage backend")
	}
	if opts.MaxConcurrentJobs <= 0 {
		opts.MaxConcurrentJobs = shared.DefaultMaxConcurrentJobs
	}

	r := &Registry{
		sandbox: opts.Sandbox,
		engine:  sanitize.NewEngine(opts.Backend, opts.Engine),
		journal: opts.Journal,
		sem:     make(chan struct{}, opts.MaxConcurrentJobs),
		jobs:    make(map[string]*Job),
		active:  make(map[string]string),
	}

	if r.journal != nil {
		if err := r.rehydrate(rc); err != nil {
			return nil, cerr.Wrap(err, "rehydrate journal")
		}
	}
	return r, nil
}

// Submit admits a sanitization job for targetRef. The standard is
// validated and the target resolved before anything is registered; a
// rejected submission leaves no job record. Admission and target lock are
// one atomic step.
func (r *Registry) Submit(rc *scour_io.RuntimeContext, targetRef string, std patterns.Standard) (string, error) {
	ctx, span := telemetry.Start(rc.Ctx, "jobs.Submit")
	defer span.End()
	logger := otelzap.Ctx(ctx)

	passes, err := patterns.PassCount(std)
	if err != nil {
		return "", scour_err.NewExpectedError(err)
	}

	path, err := r.sandbox.Resolve(targetRef)
	if err != nil {
		logger.Warn("Target rejected by sandbox",
			zap.String("target_ref", targetRef),
			zap.Error(err))
		return "", err
	}

	job := &Job{
		id:              uuid.New().String(),
		targetRef:       targetRef,
		targetPath:      path,
		standard:        std,
		requestedPasses: passes,
		state:           StatePending,
		createdAt:       time.Now().UTC(),
		done:            make(chan struct{}),
	}

	r.mu.Lock()
	if holder, busy := r.active[path]; busy {
		r.mu.Unlock()
		return "", cerr.Mark(
			cerr.Newf("target %s locked by job %s", path, holder),
			ErrTargetBusy)
	}
	r.jobs[job.id] = job
	r.active[path] = job.id
	r.mu.Unlock()

	r.persist(ctx, job)

	logger.Info("Job admitted",
		zap.String("job_id", job.id),
		zap.String("target", path),
		zap.String("standard", string(std)),
		zap.Int("passes", passes))

	go r.run(ctx, job)
	return job.id, nil
}

// GetStatus returns an isolated snapshot of the job.
func (r *Registry) GetStatus(jobID string) (Snapshot, error) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, cerr.Mark(cerr.Newf("job %s", jobID), ErrJobNotFound)
	}
	return job.snapshot(), nil
}

// Cancel requests cooperative cancellation. A Pending job never starts; a
// Running job stops at its next pass boundary. Cancelling a terminal job
// is a no-op.
func (r *Registry) Cancel(rc *scour_io.RuntimeContext, jobID string) error {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	r.mu.Unlock()
	if !ok {
		return cerr.Mark(cerr.Newf("job %s", jobID), ErrJobNotFound)
	}

	job.mu.Lock()
	terminal := job.state.IsTerminal()
	job.mu.Unlock()
	if terminal {
		return nil
	}

	job.cancelRequested.Store(true)
	otelzap.Ctx(rc.Ctx).Info("Cancellation requested, takes effect at next pass boundary",
		zap.String("job_id", jobID))
	return nil
}

// CancelAll requests cancellation of every non-terminal job. Wired to the
// CLI signal handler.
func (r *Registry) CancelAll(rc *scour_io.RuntimeContext) {
	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()

	for _, j := range jobs {
		j.mu.Lock()
		terminal := j.state.IsTerminal()
		j.mu.Unlock()
		if !terminal {
			j.cancelRequested.Store(true)
		}
	}
}

// Wait blocks until the job reaches a terminal state or ctx is done.
func (r *Registry) Wait(ctx context.Context, jobID string) (Snapshot, error) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, cerr.Mark(cerr.Newf("job %s", jobID), ErrJobNotFound)
	}

	select {
	case <-job.done:
		return job.snapshot(), nil
	case <-ctx.Done():
		return job.snapshot(), cerr.Wrap(ctx.Err(), "wait for job")
	}
}

// List returns snapshots of every known job, newest first.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.snapshot())
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

// Purge removes terminal job records older than the cutoff from memory and
// the journal archive. Active jobs and issued attestations are untouched.
// Per-record failures are aggregated; the purge keeps going.
func (r *Registry) Purge(rc *scour_io.RuntimeContext, olderThan time.Duration) (int, error) {
	ctx, span := telemetry.Start(rc.Ctx, "jobs.Purge")
	defer span.End()

	cutoff := time.Now().Add(-olderThan)
	var errs error

	r.mu.Lock()
	removed := make(map[string]struct{})
	var victims []*Job
	for _, j := range r.jobs {
		j.mu.Lock()
		finished := j.createdAt
		if j.completedAt != nil {
			finished = *j.completedAt
		}
		if j.state.IsTerminal() && finished.Before(cutoff) {
			victims = append(victims, j)
		}
		j.mu.Unlock()
	}
	for _, j := range victims {
		delete(r.jobs, j.id)
		removed[j.id] = struct{}{}
	}
	r.mu.Unlock()

	if r.journal != nil {
		cleaned, err := r.journal.Cleanup(olderThan)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		// A record both in memory and in the journal is one purged job.
		for _, id := range cleaned {
			removed[id] = struct{}{}
		}
	}
	purged := len(removed)

	otelzap.Ctx(ctx).Info("Purged terminal job records",
		zap.Int("purged", purged),
		zap.Duration("older_than", olderThan))
	return purged, errs
}

// run drives one job to a terminal state on its own goroutine.
func (r *Registry) run(ctx context.Context, job *Job) {
	logger := otelzap.Ctx(ctx)

	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	// Cancelled while Pending: the engine never starts, zero passes.
	if job.cancelRequested.Load() {
		r.finish(ctx, job, StateCancelled, nil)
		return
	}

	now := time.Now().UTC()
	job.mu.Lock()
	job.state = StateRunning
	job.startedAt = &now
	job.mu.Unlock()
	r.persist(ctx, job)

	out, err := r.engine.Run(ctx, sanitize.Request{
		JobID:      job.id,
		TargetPath: job.targetPath,
		Standard:   job.standard,
		Cancelled:  job.cancelRequested.Load,
	}, &jobObserver{registry: r, ctx: ctx, job: job})

	job.mu.Lock()
	job.extentSize = out.ExtentSize
	job.residue = out.Residue
	job.mu.Unlock()

	switch {
	case err == nil:
		r.finish(ctx, job, StateCompleted, nil)
	case cerr.Is(err, sanitize.ErrCancelled):
		r.finish(ctx, job, StateCancelled, nil)
	default:
		logger.Error("Job failed",
			zap.String("job_id", job.id),
			zap.Error(err))
		r.finish(ctx, job, StateFailed, err)
	}
}

// finish applies the terminal transition, releases the target lock, and
// persists the final record.
func (r *Registry) finish(ctx context.Context, job *Job, state State, cause error) {
	now := time.Now().UTC()

	job.mu.Lock()
	job.state = state
	job.completedAt = &now
	if cause != nil {
		// The cause chain is preserved verbatim for the audit trail.
		job.errMsg = cause.Error()
	}
	if state == StateCompleted {
		job.progressPct = 100
	}
	job.mu.Unlock()

	r.mu.Lock()
	if r.active[job.targetPath] == job.id {
		delete(r.active, job.targetPath)
	}
	r.mu.Unlock()

	r.persist(ctx, job)
	close(job.done)

	otelzap.Ctx(ctx).Info("Job reached terminal state",
		zap.String("job_id", job.id),
		zap.String("state", string(state)))
}

// persist writes the job's current state to the journal, logging rather
// than failing on error: the in-memory state machine is authoritative for
// a live process.
func (r *Registry) persist(ctx context.Context, job *Job) {
	if r.journal == nil {
		return
	}
	rec := toRecord(job.snapshot())
	if err := r.journal.Save(rec); err != nil {
		otelzap.Ctx(ctx).Warn("Journal write failed",
			zap.String("job_id", job.id),
			zap.Error(err))
	}
}

// rehydrate loads journaled jobs into memory at startup.
func (r *Registry) rehydrate(rc *scour_io.RuntimeContext) error {
	logger := otelzap.Ctx(rc.Ctx)

	// Jobs a crashed process persisted as non-terminal are failed as
	// interrupted: this process cannot resume a half-finished pass
	// truthfully.
	interrupted, err := r.journal.ListActive()
	if err != nil {
		return err
	}
	for _, rec := range interrupted {
		rec.State = string(StateFailed)
		if rec.Error == "" {
			rec.Error = "interrupted: process exited mid-job"
		}
		if err := r.journal.Save(rec); err != nil {
			logger.Warn("Failed to retire interrupted record",
				zap.String("job_id", rec.ID),
				zap.Error(err))
			continue
		}
		logger.Warn("Journal shows job interrupted by process exit",
			zap.String("job_id", rec.ID),
			zap.String("target", rec.TargetPath))
	}

	all, err := r.journal.List()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range all {
		job := fromRecord(rec)
		r.jobs[job.id] = job
	}

	logger.Debug("Registry rehydrated", zap.Int("jobs", len(all)))
	return nil
}

// jobObserver routes engine progress into the owning job.
type jobObserver struct {
	registry *Registry
	ctx      context.Context
	job      *Job
}

func (o *jobObserver) ExtentOpened(size int64) {
	o.job.mu.Lock()
	o.job.extentSize = size
	o.job.mu.Unlock()
}

func (o *jobObserver) PassStarted(passIndex int, patternLabel string) {
	o.job.mu.Lock()
	o.job.currentPass = passIndex
	o.job.bytesInPass = 0
	o.job.mu.Unlock()
}

func (o *jobObserver) ChunkWritten(n int64) {
	o.job.mu.Lock()
	o.job.bytesInPass += n
	o.job.updateProgress()
	o.job.mu.Unlock()
}

func (o *jobObserver) PassCompleted(rec sanitize.PassRecord) {
	o.job.mu.Lock()
	o.job.passRecords = append(o.job.passRecords, rec)
	o.job.currentPass = rec.PassIndex + 1
	o.job.bytesInPass = 0
	o.job.updateProgress()
	o.job.mu.Unlock()

	o.registry.persist(o.ctx, o.job)
}
