// pkg/extent/memory.go
//
// In-memory backend. Backs unit tests and --dry-run wipes, and doubles as
// a spy: it counts opens, writes, syncs, and removals, and can inject
// faults at any of those points.

package extent

import (
	"io"
	"os"
	"sync"

	cerr "github.com/cockroachdb/errors"
)

// MemBackend holds extents in memory.
type MemBackend struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed map[string]bool

	opens  map[string]int
	writes map[string]int
	syncs  map[string]int

	// Fault injection. OpenFailures[path] counts down: each Open while
	// positive fails with openErr. WriteFailAt <= 0 disables; otherwise
	// the Nth write (1-based, per backend) fails. ShortWriteAt works the
	// same but reports a one-byte-short write instead of an error.
	OpenFailures map[string]int
	openErr      error
	RemoveErr    error
	WriteFailAt  int
	WriteErr     error
	ShortWriteAt int

	// SyncGate, when non-nil, blocks every Sync until a value is sent.
	// Tests use it to hold a job at a pass boundary deterministically.
	SyncGate chan struct{}

	writeCount int
}

// NewMemBackend returns an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{
		files:        make(map[string][]byte),
		removed:      make(map[string]bool),
		opens:        make(map[string]int),
		writes:       make(map[string]int),
		syncs:        make(map[string]int),
		OpenFailures: make(map[string]int),
	}
}

// Put installs an extent of the given content.
func (b *MemBackend) Put(path string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	b.files[path] = buf
	b.removed[path] = false
}

// PutZero installs a zero-filled extent of the given size.
func (b *MemBackend) PutZero(path string, size int64) {
	b.Put(path, make([]byte, size))
}

// Data returns a copy of the extent's current content.
func (b *MemBackend) Data(path string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[path]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Removed reports whether the extent was removed.
func (b *MemBackend) Removed(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removed[path]
}

// Writes returns the write count for one path.
func (b *MemBackend) Writes(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes[path]
}

// TotalWrites returns writes across all paths. Zero after a sandboxed
// rejection is the property the engine tests assert.
func (b *MemBackend) TotalWrites() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.writes {
		total += n
	}
	return total
}

// Syncs returns the barrier count for one path.
func (b *MemBackend) Syncs(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.syncs[path]
}

// FailOpens makes the next n opens of path fail with cause.
func (b *MemBackend) FailOpens(path string, n int, cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.OpenFailures[path] = n
	b.openErr = cause
}

// Open implements Backend.
func (b *MemBackend) Open(path string) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.OpenFailures[path] > 0 {
		b.OpenFailures[path]--
		cause := b.openErr
		if cause == nil {
			cause = cerr.New("injected open failure")
		}
		return nil, cause
	}

	data, ok := b.files[path]
	if !ok || b.removed[path] {
		return nil, os.ErrNotExist
	}

	b.opens[path]++
	return &memHandle{b: b, path: path, size: int64(len(data))}, nil
}

// Remove implements Backend.
func (b *MemBackend) Remove(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.RemoveErr != nil {
		return b.RemoveErr
	}
	if _, ok := b.files[path]; !ok || b.removed[path] {
		return os.ErrNotExist
	}
	b.removed[path] = true
	return nil
}

type memHandle struct {
	b      *MemBackend
	path   string
	size   int64
	closed bool
}

func (h *memHandle) WriteAt(p []byte, off int64) (int, error) {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()

	if h.closed {
		return 0, os.ErrClosed
	}

	h.b.writeCount++
	if h.b.WriteFailAt > 0 && h.b.writeCount == h.b.WriteFailAt {
		cause := h.b.WriteErr
		if cause == nil {
			cause = cerr.New("injected write failure")
		}
		return 0, cause
	}
	if h.b.ShortWriteAt > 0 && h.b.writeCount == h.b.ShortWriteAt {
		n := copy(h.b.files[h.path][off:], p[:len(p)-1])
		h.b.writes[h.path]++
		return n, nil
	}

	data := h.b.files[h.path]
	if off < 0 || off+int64(len(p)) > int64(len(data)) {
		return 0, cerr.Newf("write out of bounds: off=%d len=%d size=%d", off, len(p), len(data))
	}

	n := copy(data[off:], p)
	h.b.writes[h.path]++
	return n, nil
}

func (h *memHandle) ReadAt(p []byte, off int64) (int, error) {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()

	if h.closed {
		return 0, os.ErrClosed
	}

	data := h.b.files[h.path]
	if off >= int64(len(data)) {
		return 0, io.EOF
	}

	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (h *memHandle) Size() int64 {
	return h.size
}

func (h *memHandle) Sync() error {
	h.b.mu.Lock()
	gate := h.b.SyncGate
	h.b.mu.Unlock()

	// Block outside the lock so observers stay responsive while a test
	// holds the barrier.
	if gate != nil {
		<-gate
	}

	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	if h.closed {
		return os.ErrClosed
	}
	h.b.syncs[h.path]++
	return nil
}

func (h *memHandle) Close() error {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	h.closed = true
	return nil
}
