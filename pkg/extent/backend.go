// pkg/extent/backend.go

package extent

import (
	"io"
	"os"

	cerr "github.com/cockroachdb/errors"
)

// Handle is an open extent: positioned reads and writes, a durability
// barrier, and a fixed size captured at open.
type Handle interface {
	io.WriterAt
	io.ReaderAt
	// Size is the extent length in bytes, fixed for the handle's lifetime.
	Size() int64
	// Sync is the durability barrier. Issued exactly once per completed
	// pass, never per chunk.
	Sync() error
	Close() error
}

// Backend is the storage primitive the writer drives. Implementations
// return raw causes; classification into the extent error vocabulary
// happens in the writer and engine.
type Backend interface {
	// Open prepares path for positioned read-write access.
	Open(path string) (Handle, error)
	// Remove deletes a file extent or discards a block extent.
	Remove(path string) error
}

// OSBackend operates on real files and block devices.
type OSBackend struct{}

// NewOSBackend returns the production backend.
func NewOSBackend() *OSBackend {
	return &OSBackend{}
}

type osHandle struct {
	f    *os.File
	size int64
	blk  bool
}

// Open opens a regular file or block device for overwriting. Symlinks are
// never followed here; the sandbox resolved the path already, and O_NOFOLLOW
// closes the race between resolution and open.
func (b *OSBackend) Open(path string) (Handle, error) {
	f, err := openNoFollow(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	mode := info.Mode()
	switch {
	case mode.IsRegular():
		return &osHandle{f: f, size: info.Size()}, nil
	case mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0:
		size, err := blockDeviceSize(f)
		if err != nil {
			_ = f.Close()
			return nil, cerr.Wrapf(err, "size block device %s", path)
		}
		return &osHandle{f: f, size: size, blk: true}, nil
	default:
		_ = f.Close()
		return nil, cerr.Newf("%s is not a regular file or block device", path)
	}
}

// Remove unlinks file extents and discards block extents.
func (b *OSBackend) Remove(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}

	mode := info.Mode()
	if mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0 {
		return discardBlockDevice(path)
	}
	return os.Remove(path)
}

func (h *osHandle) WriteAt(p []byte, off int64) (int, error) {
	return h.f.WriteAt(p, off)
}

func (h *osHandle) ReadAt(p []byte, off int64) (int, error) {
	return h.f.ReadAt(p, off)
}

func (h *osHandle) Size() int64 {
	return h.size
}

func (h *osHandle) Sync() error {
	return datasync(h.f)
}

func (h *osHandle) Close() error {
	return h.f.Close()
}
