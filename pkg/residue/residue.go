// pkg/residue/residue.go
//
// Post-overwrite residue analysis. Runs against the LIVE extent after the
// final pass and before removal, sampling evenly spaced windows and scoring
// how well the extent matches the final pass pattern. Advisory only: a poor
// score is recorded and warned about, never fails the job.

package residue

import (
	"context"
	"math"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/extent"
	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/shared"
	"github.com/RiptideSecurity/scour/pkg/telemetry"
)

// Status buckets an analysis score for operator display.
type Status string

const (
	StatusClean       Status = "clean"
	StatusMostlyClean Status = "mostly_clean"
	StatusSomeResidue Status = "some_residue"
	StatusHighResidue Status = "high_residue"
	StatusNotAnalyzed Status = "not_analyzed"
)

// Report is the recorded outcome of one analysis.
type Report struct {
	BytesSampled    int64     `json:"bytes_sampled"    yaml:"bytes_sampled"`
	Windows         int       `json:"windows"          yaml:"windows"`
	Score           float64   `json:"score"            yaml:"score"`
	MismatchedBytes int64     `json:"mismatched_bytes" yaml:"mismatched_bytes"`
	Status          Status    `json:"status"           yaml:"status"`
	AnalyzedAt      time.Time `json:"analyzed_at"      yaml:"analyzed_at"`
}

// maxWindows caps how many separate regions are sampled. Small extents are
// read in a single window.
const maxWindows = 16

// Analyzer samples extents and scores them against the final pass pattern.
type Analyzer struct {
	// SampleBytes caps total readback per extent.
	SampleBytes int64
}

// NewAnalyzer returns an analyzer with the given sample budget; budgets
// <= 0 fall back to the default.
func NewAnalyzer(sampleBytes int64) *Analyzer {
	if sampleBytes <= 0 {
		sampleBytes = shared.DefaultResidueSampleBytes
	}
	return &Analyzer{SampleBytes: sampleBytes}
}

// Analyze samples the extent and scores it against the final pass pattern.
// Fixed patterns are byte-compared; random passes are scored by Shannon
// entropy of the sample (fully random data scores ~100).
func (a *Analyzer) Analyze(ctx context.Context, h extent.Handle, size int64, final patterns.Descriptor) (*Report, error) {
	ctx, span := telemetry.Start(ctx, "residue.Analyze")
	defer span.End()
	logger := otelzap.Ctx(ctx)

	report := &Report{AnalyzedAt: time.Now().UTC()}
	if size <= 0 {
		report.Score = 100
		report.Status = StatusClean
		return report, nil
	}

	sample, windows, err := a.sample(h, size)
	if err != nil {
		return nil, cerr.Wrap(err, "sample extent")
	}
	report.BytesSampled = int64(len(sample))
	report.Windows = windows

	byteCompared := final.Kind == patterns.KindFixed
	if byteCompared {
		for _, b := range sample {
			if b != final.Value {
				report.MismatchedBytes++
			}
		}
		report.Score = 100 * (1 - float64(report.MismatchedBytes)/float64(len(sample)))
	} else {
		report.Score = entropyScore(sample)
	}

	report.Status = classify(report, byteCompared)

	if report.Status == StatusSomeResidue || report.Status == StatusHighResidue {
		logger.Warn("Residue analysis found significant divergence from final pass pattern",
			zap.Float64("score", report.Score),
			zap.Int64("mismatched_bytes", report.MismatchedBytes),
			zap.String("status", string(report.Status)))
	}
	return report, nil
}

// sample reads up to SampleBytes spread across evenly spaced windows.
// Offsets are deterministic for a given extent size and budget.
func (a *Analyzer) sample(h extent.Handle, size int64) ([]byte, int, error) {
	budget := min(a.SampleBytes, size)

	windows := maxWindows
	if budget < maxWindows || size <= budget {
		windows = 1
	}
	windowSize := budget / int64(windows)

	out := make([]byte, 0, budget)
	buf := make([]byte, windowSize)
	stride := size / int64(windows)

	for i := 0; i < windows; i++ {
		off := int64(i) * stride
		if off+windowSize > size {
			off = size - windowSize
		}
		n, err := h.ReadAt(buf, off)
		if err != nil && n == 0 {
			return nil, 0, cerr.Wrapf(err, "read window %d at offset %d", i, off)
		}
		out = append(out, buf[:n]...)
	}
	return out, windows, nil
}

// entropyScore maps Shannon entropy (bits per byte) onto [0,100].
func entropyScore(sample []byte) float64 {
	if len(sample) == 0 {
		return 0
	}

	var freq [256]int64
	for _, b := range sample {
		freq[b]++
	}

	total := float64(len(sample))
	entropy := 0.0
	for _, n := range freq {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return entropy / 8 * 100
}

func classify(r *Report, byteCompared bool) Status {
	switch {
	case r.Score >= 99.8 || (byteCompared && r.MismatchedBytes == 0):
		return StatusClean
	case r.Score >= 99.0:
		return StatusMostlyClean
	case r.Score >= 95.0:
		return StatusSomeResidue
	default:
		return StatusHighResidue
	}
}
