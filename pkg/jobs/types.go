// pkg/jobs/types.go

package jobs

import (
	"sync"
	"sync/atomic"
	"time"

	cerr "github.com/cockroachdb/errors"

	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/residue"
	"github.com/RiptideSecurity/scour/pkg/sanitize"
)

var (
	// ErrTargetBusy marks a submission for a target that already has a
	// non-terminal job. Submissions are rejected, never queued.
	ErrTargetBusy = cerr.New("target already has an active sanitization job")

	// ErrJobNotFound marks a lookup for an unknown or purged job id.
	ErrJobNotFound = cerr.New("job not found")
)

// State is a job's lifecycle position.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Job is the registry-owned record of one sanitization. All mutation goes
// through the owning engine goroutine and the registry; callers only ever
// see Snapshots.
type Job struct {
	mu sync.Mutex

	id              string
	targetRef       string
	targetPath      string
	standard        patterns.Standard
	requestedPasses int
	extentSize      int64

	state       State
	currentPass int
	bytesInPass int64
	progressPct float64
	passRecords []sanitize.PassRecord
	residue     *residue.Report
	errMsg      string
	interrupted bool

	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time

	cancelRequested atomic.Bool
	done            chan struct{}
}

// Snapshot is an isolated copy of a job's state, safe to hold across
// further job mutation.
type Snapshot struct {
	ID              string                `json:"id"                     yaml:"id"`
	TargetRef       string                `json:"target_ref"             yaml:"target_ref"`
	TargetPath      string                `json:"target_path"            yaml:"target_path"`
	Standard        patterns.Standard     `json:"standard"               yaml:"standard"`
	RequestedPasses int                   `json:"requested_passes"       yaml:"requested_passes"`
	ExtentSize      int64                 `json:"extent_size"            yaml:"extent_size"`
	State           State                 `json:"state"                  yaml:"state"`
	CurrentPass     int                   `json:"current_pass"           yaml:"current_pass"`
	BytesInPass     int64                 `json:"bytes_in_pass"          yaml:"bytes_in_pass"`
	Progress        float64               `json:"progress"               yaml:"progress"`
	PassRecords     []sanitize.PassRecord `json:"pass_records"           yaml:"pass_records"`
	Residue         *residue.Report       `json:"residue,omitempty"      yaml:"residue,omitempty"`
	Error           string                `json:"error,omitempty"        yaml:"error,omitempty"`
	Interrupted     bool                  `json:"interrupted,omitempty"  yaml:"interrupted,omitempty"`
	CreatedAt       time.Time             `json:"created_at"             yaml:"created_at"`
	StartedAt       *time.Time            `json:"started_at,omitempty"   yaml:"started_at,omitempty"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// snapshot copies job state under the job lock.
func (j *Job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	records := make([]sanitize.PassRecord, len(j.passRecords))
	copy(records, j.passRecords)

	var rep *residue.Report
	if j.residue != nil {
		cp := *j.residue
		rep = &cp
	}

	return Snapshot{
		ID:              j.id,
		TargetRef:       j.targetRef,
		TargetPath:      j.targetPath,
		Standard:        j.standard,
		RequestedPasses: j.requestedPasses,
		ExtentSize:      j.extentSize,
		State:           j.state,
		CurrentPass:     j.currentPass,
		BytesInPass:     j.bytesInPass,
		Progress:        j.progressPct,
		PassRecords:     records,
		Residue:         rep,
		Error:           j.errMsg,
		Interrupted:     j.interrupted,
		CreatedAt:       j.createdAt,
		StartedAt:       copyTime(j.startedAt),
		CompletedAt:     copyTime(j.completedAt),
	}
}

// updateProgress recomputes the job's percentage. Monotonic: the stored
// value never decreases (a retried pass restarts its byte count without
// moving the reported number backwards), and 100 is reserved for the
// Completed transition.
func (j *Job) updateProgress() {
	total := float64(j.requestedPasses) * float64(j.extentSize)
	if total <= 0 {
		return
	}
	done := float64(len(j.passRecords))*float64(j.extentSize) + float64(j.bytesInPass)
	pct := 100 * done / total
	if pct > 99.9 {
		pct = 99.9
	}
	if pct > j.progressPct {
		j.progressPct = pct
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
