// pkg/extent/writer.go
//
// Chunked pass writer. Mediates every write to a target extent: bounded
// buffers, fresh random draws per chunk, and exactly one durability barrier
// at the end of each pass.

package extent

import (
	"context"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/shared"
	"github.com/RiptideSecurity/scour/pkg/telemetry"
)

// Writer performs single-pass overwrites through a Backend.
type Writer struct {
	backend   Backend
	chunkSize int64
}

// NewWriter returns a Writer with the given chunk size; sizes <= 0 fall
// back to the default.
func NewWriter(backend Backend, chunkSize int64) *Writer {
	if chunkSize <= 0 {
		chunkSize = shared.DefaultChunkSizeBytes
	}
	return &Writer{backend: backend, chunkSize: chunkSize}
}

// Open prepares the extent at path. Failures are marked ErrExtentUnavailable
// with the raw cause preserved for the audit trail.
func (w *Writer) Open(ctx context.Context, path string) (Handle, error) {
	ctx, span := telemetry.Start(ctx, "extent.Open")
	defer span.End()

	h, err := w.backend.Open(path)
	if err != nil {
		otelzap.Ctx(ctx).Warn("Extent open failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, cerr.Mark(cerr.Wrapf(err, "open extent %s", path), ErrExtentUnavailable)
	}
	return h, nil
}

// Remove deletes or discards the extent at path. The raw cause is preserved;
// the engine layers its own removal-failure classification on top.
func (w *Writer) Remove(ctx context.Context, path string) error {
	ctx, span := telemetry.Start(ctx, "extent.Remove")
	defer span.End()

	if err := w.backend.Remove(path); err != nil {
		otelzap.Ctx(ctx).Error("Extent removal failed",
			zap.String("path", path),
			zap.Error(err))
		return cerr.Wrapf(err, "remove extent %s", path)
	}
	return nil
}

// Overwrite writes one full pass of the descriptor's pattern over size
// bytes of the extent, then issues the pass's single durability barrier.
// onChunk, when non-nil, observes each chunk's byte count as it lands.
//
// A zero-length extent is a successful no-op pass; the barrier is still
// issued so pass boundaries stay observable.
func (w *Writer) Overwrite(ctx context.Context, h Handle, d patterns.Descriptor, size int64, onChunk func(n int64)) error {
	ctx, span := telemetry.Start(ctx, "extent.Overwrite")
	defer span.End()
	logger := otelzap.Ctx(ctx)

	if size < 0 {
		return cerr.Newf("negative extent size %d", size)
	}

	if size > 0 {
		buf := make([]byte, min(w.chunkSize, size))

		// Fixed patterns fill the buffer once; random passes draw fresh
		// bytes for every chunk.
		if d.Kind == patterns.KindFixed {
			if err := patterns.Fill(buf, d); err != nil {
				return err
			}
		}

		for off := int64(0); off < size; {
			n := min(w.chunkSize, size-off)
			chunk := buf[:n]

			if d.Kind == patterns.KindRandom {
				if err := patterns.Fill(chunk, d); err != nil {
					return err
				}
			}

			wrote, err := h.WriteAt(chunk, off)
			if int64(wrote) < n {
				cause := err
				if cause == nil {
					cause = cerr.New("primitive accepted fewer bytes than requested")
				}
				logger.Error("Short write",
					zap.Int64("offset", off),
					zap.Int64("requested", n),
					zap.Int("written", wrote),
					zap.Error(cause))
				return cerr.Mark(
					cerr.Wrapf(cause, "wrote %d of %d bytes at offset %d", wrote, n, off),
					ErrShortWrite)
			}
			if err != nil {
				return cerr.Mark(cerr.Wrapf(err, "write at offset %d", off), ErrExtentUnavailable)
			}

			off += n
			if onChunk != nil {
				onChunk(n)
			}
		}
	}

	// One barrier per pass. Never per chunk: the pass is durable as a
	// unit or not at all.
	if err := h.Sync(); err != nil {
		return cerr.Mark(cerr.Wrap(err, "durability barrier"), ErrExtentUnavailable)
	}

	logger.Debug("Pass written",
		zap.String("pattern", d.Label()),
		zap.Int64("bytes", size))
	return nil
}
