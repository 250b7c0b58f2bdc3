// pkg/sanitize/engine.go
//
// One engine drives one job: open the extent, apply every pass of the
// standard strictly in sequence, optionally analyze residue against the
// live extent, then remove the extent. Pass N+1 never starts before pass
// N's durability barrier has returned.

package sanitize

import (
	"context"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/RiptideSecurity/scour/pkg/extent"
	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/residue"
	"github.com/RiptideSecurity/scour/pkg/shared"
	"github.com/RiptideSecurity/scour/pkg/telemetry"
)

// Config tunes engine behavior. The zero value gets sane defaults.
type Config struct {
	// ChunkSize bounds each positioned write.
	ChunkSize int64
	// RetryDelay is the wait before the single reopen attempt after a
	// transient extent failure.
	RetryDelay time.Duration
	// AnalyzeResidue enables post-overwrite analysis of the live extent.
	AnalyzeResidue bool
	// ResidueSampleBytes caps analysis readback.
	ResidueSampleBytes int64
	// SkipRemoval leaves the extent in place after the final pass.
	// Dry-run style verification only; a completed wipe always removes.
	SkipRemoval bool
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = shared.DefaultChunkSizeBytes
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = shared.DefaultRetryDelayMS * time.Millisecond
	}
	return c
}

// Request describes one job to execute. TargetPath must already be
// sandbox-resolved; the engine never sees raw operator input.
type Request struct {
	JobID      string
	TargetPath string
	Standard   patterns.Standard
	// Cancelled is polled at pass boundaries only. Nil means never.
	Cancelled func() bool
}

// Outcome carries what the engine learned while running.
type Outcome struct {
	ExtentSize int64
	Residue    *residue.Report
}

// Engine executes sanitization jobs against a storage backend.
type Engine struct {
	backend extent.Backend
	writer  *extent.Writer
	cfg     Config
}

// NewEngine returns an engine over the given backend.
func NewEngine(backend extent.Backend, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		backend: backend,
		writer:  extent.NewWriter(backend, cfg.ChunkSize),
		cfg:     cfg,
	}
}

// Run executes the request to a terminal outcome. A nil error means the
// job Completed: every pass durable, extent removed. ErrCancelled means a
// clean stop at a pass boundary. Anything else is a Failed job; the
// observer has already received every pass record accumulated before the
// failure.
func (e *Engine) Run(ctx context.Context, req Request, obs Observer) (Outcome, error) {
	ctx, span := telemetry.Start(ctx, "sanitize.Run")
	defer span.End()
	logger := otelzap.Ctx(ctx)

	if obs == nil {
		obs = nopObserver{}
	}

	var out Outcome

	seq, err := patterns.Sequence(req.Standard)
	if err != nil {
		return out, err
	}

	h, err := e.openWithRetry(ctx, req.TargetPath)
	if err != nil {
		return out, err
	}
	size := h.Size()
	out.ExtentSize = size
	obs.ExtentOpened(size)

	logger.Info("Sanitization started",
		zap.String("job_id", req.JobID),
		zap.String("standard", string(req.Standard)),
		zap.Int64("extent_size", size),
		zap.Int("passes", len(seq)))

	// Progress log lines are rate limited; a multi-terabyte extent writes
	// millions of chunks.
	progressLimit := rate.NewLimiter(rate.Every(time.Second), 1)

	for i, desc := range seq {
		if cancelRequested(req) {
			_ = h.Close()
			logger.Info("Cancellation honored at pass boundary",
				zap.String("job_id", req.JobID),
				zap.Int("completed_passes", i))
			return out, cerr.Mark(cerr.Newf("cancelled before pass %d", i), ErrCancelled)
		}
		if err := ctx.Err(); err != nil {
			_ = h.Close()
			return out, cerr.Wrapf(err, "context done before pass %d", i)
		}

		obs.PassStarted(i, desc.Label())
		started := time.Now().UTC()

		written := int64(0)
		onChunk := func(n int64) {
			written += n
			obs.ChunkWritten(n)
			if progressLimit.Allow() {
				logger.Debug("Pass progress",
					zap.String("job_id", req.JobID),
					zap.Int("pass", i),
					zap.Int64("bytes", written),
					zap.Int64("extent_size", size))
			}
		}

		err := e.writer.Overwrite(ctx, h, desc, size, onChunk)
		if cerr.Is(err, extent.ErrExtentUnavailable) {
			// The target may be transiently locked by another process.
			// One retry of the whole pass after a short delay; the pass
			// restarts from offset zero so its pattern state is coherent.
			logger.Warn("Extent unavailable mid-pass, retrying once",
				zap.String("job_id", req.JobID),
				zap.Int("pass", i),
				zap.Duration("delay", e.cfg.RetryDelay),
				zap.Error(err))
			_ = h.Close()
			time.Sleep(e.cfg.RetryDelay)

			h, err = e.reopenAndRewrite(ctx, req, desc, size, obs, i)
		}
		if err != nil {
			if h != nil {
				_ = h.Close()
			}
			return out, cerr.Wrapf(err, "pass %d (%s)", i, desc.Label())
		}

		rec := PassRecord{
			PassIndex:        i,
			Pattern:          desc.Label(),
			StartedAt:        started,
			CompletedAt:      time.Now().UTC(),
			VerificationHash: PassHash(req.JobID, i, desc.Label()),
		}
		obs.PassCompleted(rec)

		logger.Info("Pass completed",
			zap.String("job_id", req.JobID),
			zap.Int("pass", i),
			zap.String("pattern", desc.Label()))
	}

	if e.cfg.AnalyzeResidue {
		report, err := residue.NewAnalyzer(e.cfg.ResidueSampleBytes).
			Analyze(ctx, h, size, seq[len(seq)-1])
		if err != nil {
			// Advisory analysis never fails a wipe whose passes all
			// reached stable storage.
			logger.Warn("Residue analysis failed",
				zap.String("job_id", req.JobID),
				zap.Error(err))
		} else {
			out.Residue = report
		}
	}

	if err := h.Close(); err != nil {
		logger.Warn("Extent close failed after final pass",
			zap.String("job_id", req.JobID),
			zap.Error(err))
	}

	if cancelRequested(req) {
		// Cancelled between final pass and removal: the extent stays.
		// Cancellation is not completion.
		return out, cerr.Mark(cerr.New("cancelled before removal"), ErrCancelled)
	}

	if !e.cfg.SkipRemoval {
		if err := e.writer.Remove(ctx, req.TargetPath); err != nil {
			// All passes succeeded but the handle persists. Surfaced as
			// its own failure class; the security implication differs
			// from a write failure.
			return out, cerr.Mark(
				cerr.Wrapf(err, "remove extent after %d passes", len(seq)),
				ErrResidualExtentNotRemoved)
		}
	}

	logger.Info("Sanitization completed",
		zap.String("job_id", req.JobID),
		zap.Int("passes", len(seq)),
		zap.Int64("extent_size", size))
	return out, nil
}

// openWithRetry opens the extent, retrying once on unavailability.
func (e *Engine) openWithRetry(ctx context.Context, path string) (extent.Handle, error) {
	h, err := e.writer.Open(ctx, path)
	if err == nil {
		return h, nil
	}
	if !cerr.Is(err, extent.ErrExtentUnavailable) {
		return nil, err
	}

	otelzap.Ctx(ctx).Warn("Extent open failed, retrying once",
		zap.String("path", path),
		zap.Duration("delay", e.cfg.RetryDelay),
		zap.Error(err))
	time.Sleep(e.cfg.RetryDelay)

	return e.writer.Open(ctx, path)
}

// reopenAndRewrite reopens the extent after a transient failure and
// replays the interrupted pass in full. No second retry: a failure here
// fails the job.
func (e *Engine) reopenAndRewrite(ctx context.Context, req Request, desc patterns.Descriptor, size int64, obs Observer, passIndex int) (extent.Handle, error) {
	h, err := e.writer.Open(ctx, req.TargetPath)
	if err != nil {
		return nil, err
	}

	// Restart intra-pass accounting; the pass begins again.
	obs.PassStarted(passIndex, desc.Label())

	onChunk := func(n int64) { obs.ChunkWritten(n) }
	if err := e.writer.Overwrite(ctx, h, desc, size, onChunk); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

func cancelRequested(req Request) bool {
	return req.Cancelled != nil && req.Cancelled()
}
