// pkg/sanitize/types.go

package sanitize

import (
	"fmt"
	"time"

	cerr "github.com/cockroachdb/errors"

	"github.com/RiptideSecurity/scour/pkg/crypto"
)

var (
	// ErrCancelled marks a job stopped at a pass boundary on request.
	// Cancellation is cooperative: an in-flight pass always runs to its
	// durability barrier first.
	ErrCancelled = cerr.New("sanitization cancelled")

	// ErrResidualExtentNotRemoved marks the distinct failure where every
	// overwrite pass succeeded but the extent could not be removed. The
	// data was overwritten; the name/inode handle persists.
	ErrResidualExtentNotRemoved = cerr.New("residual extent not removed")
)

// PassRecord is the append-only audit entry for one completed pass.
type PassRecord struct {
	PassIndex        int       `json:"pass_index"        yaml:"pass_index"`
	Pattern          string    `json:"pattern"           yaml:"pattern"`
	StartedAt        time.Time `json:"started_at"        yaml:"started_at"`
	CompletedAt      time.Time `json:"completed_at"      yaml:"completed_at"`
	VerificationHash string    `json:"verification_hash" yaml:"verification_hash"`
}

// PassHash computes the verification hash binding a pass to its job. The
// hash covers pattern + pass index + job ID, not the written bytes:
// re-reading the extent to hash its content would reintroduce exactly the
// recoverability sanitization removes.
func PassHash(jobID string, passIndex int, patternLabel string) string {
	return crypto.HashString(fmt.Sprintf("%s|%d|%s", jobID, passIndex, patternLabel))
}

// Observer receives engine progress. All callbacks run on the engine's
// goroutine, strictly ordered. Implementations must not block.
type Observer interface {
	// ExtentOpened reports the resolved extent size before the first pass.
	ExtentOpened(sizeBytes int64)
	// PassStarted reports a pass beginning. Resets intra-pass byte count.
	PassStarted(passIndex int, patternLabel string)
	// ChunkWritten reports bytes landing within the current pass.
	ChunkWritten(n int64)
	// PassCompleted delivers the pass's audit record after its barrier.
	PassCompleted(rec PassRecord)
}

// nopObserver backs engines driven without a caller-supplied observer.
type nopObserver struct{}

func (nopObserver) ExtentOpened(int64)       {}
func (nopObserver) PassStarted(int, string)  {}
func (nopObserver) ChunkWritten(int64)       {}
func (nopObserver) PassCompleted(PassRecord) {}
