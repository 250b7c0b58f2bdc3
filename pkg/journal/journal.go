// pkg/journal/journal.go
//
// On-disk job journal. Every state transition of every sanitization job is
// persisted as JSON under the state directory: jobs/active/ while the job
// is in flight, jobs/archive/ once terminal. Records carry an integrity
// checksum; attestation and audit both read from here after the process
// that ran the job is gone.

package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	cerr "github.com/cockroachdb/errors"

	"github.com/RiptideSecurity/scour/pkg/crypto"
	"github.com/RiptideSecurity/scour/pkg/residue"
	"github.com/RiptideSecurity/scour/pkg/sanitize"
	"github.com/RiptideSecurity/scour/pkg/xdg"
)

const (
	activeDir  = "active"
	archiveDir = "archive"
)

// ErrRecordNotFound marks a lookup for an id present in neither the active
// nor the archive directory.
var ErrRecordNotFound = cerr.New("journal record not found")

// Record is the persisted form of one sanitization job.
type Record struct {
	ID              string                `json:"id"`
	TargetRef       string                `json:"target_ref"`
	TargetPath      string                `json:"target_path"`
	Standard        string                `json:"standard"`
	RequestedPasses int                   `json:"requested_passes"`
	ExtentSize      int64                 `json:"extent_size"`
	State           string                `json:"state"`
	CurrentPass     int                   `json:"current_pass"`
	BytesInPass     int64                 `json:"bytes_in_pass"`
	PassRecords     []sanitize.PassRecord `json:"pass_records"`
	Error           string                `json:"error,omitempty"`
	Residue         *residue.Report       `json:"residue,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	StartedAt       *time.Time            `json:"started_at,omitempty"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
	Checksum        string                `json:"checksum,omitempty"`
}

// Terminal reports whether the record's state is final.
func (r *Record) Terminal() bool {
	switch r.State {
	case "completed", "failed", "cancelled":
		return true
	}
	return false
}

// checksum covers the fields an auditor cares about. Mutating a stored
// record without recomputing it is detectable via Verify.
func (r *Record) checksum() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s|%s|%d|%d", r.ID, r.TargetPath, r.Standard, r.State, r.CurrentPass, r.ExtentSize)
	for _, p := range r.PassRecords {
		fmt.Fprintf(&sb, "|%d:%s:%s", p.PassIndex, p.Pattern, p.VerificationHash)
	}
	return crypto.HashString(sb.String())
}

// Verify recomputes the integrity checksum and compares.
func (r *Record) Verify() bool {
	return r.Checksum == r.checksum()
}

// Store manages the journal directory tree.
type Store struct {
	mu       sync.RWMutex
	basePath string
}

// NewStore creates (if needed) and opens the journal under dir.
func NewStore(dir string) (*Store, error) {
	s := &Store{basePath: dir}
	for _, sub := range []string{activeDir, archiveDir} {
		if err := xdg.EnsureDirPath(filepath.Join(dir, sub)); err != nil {
			return nil, cerr.Wrapf(err, "create journal dir %s", sub)
		}
	}
	return s, nil
}

// Save persists the record, stamping its checksum. Terminal records land in
// the archive; a prior active copy is removed so each id lives in exactly
// one directory.
func (s *Store) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Checksum = rec.checksum()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return cerr.Wrap(err, "marshal journal record")
	}

	dir := activeDir
	if rec.Terminal() {
		dir = archiveDir
	}

	path := filepath.Join(s.basePath, dir, rec.ID+".json")
	if err := os.WriteFile(path, data, xdg.FilePermOwnerReadWrite); err != nil {
		return cerr.Wrapf(err, "write journal record %s", rec.ID)
	}

	if rec.Terminal() {
		activePath := filepath.Join(s.basePath, activeDir, rec.ID+".json")
		if err := os.Remove(activePath); err != nil && !os.IsNotExist(err) {
			return cerr.Wrapf(err, "retire active record %s", rec.ID)
		}
	}
	return nil
}

// Load reads a record by id, active directory first.
func (s *Store) Load(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(id)
}

func (s *Store) load(id string) (*Record, error) {
	for _, dir := range []string{activeDir, archiveDir} {
		path := filepath.Join(s.basePath, dir, id+".json")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, cerr.Wrapf(err, "read journal record %s", id)
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, cerr.Wrapf(err, "parse journal record %s", id)
		}
		return &rec, nil
	}
	return nil, cerr.Mark(cerr.Newf("journal record %s", id), ErrRecordNotFound)
}

// List returns every record, active and archived.
func (s *Store) List() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, dir := range []string{activeDir, archiveDir} {
		entries, err := os.ReadDir(filepath.Join(s.basePath, dir))
		if err != nil {
			return nil, cerr.Wrapf(err, "read journal dir %s", dir)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
				continue
			}
			id := strings.TrimSuffix(e.Name(), ".json")
			rec, err := s.load(id)
			if err != nil {
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListActive returns records persisted as non-terminal. After a crash these
// are jobs a dead process left mid-flight.
func (s *Store) ListActive() ([]*Record, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var active []*Record
	for _, rec := range all {
		if !rec.Terminal() {
			active = append(active, rec)
		}
	}
	return active, nil
}

// Remove deletes a record wherever it lives.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	for _, dir := range []string{activeDir, archiveDir} {
		path := filepath.Join(s.basePath, dir, id+".json")
		err := os.Remove(path)
		if err == nil {
			removed = true
			continue
		}
		if !os.IsNotExist(err) {
			return cerr.Wrapf(err, "remove journal record %s", id)
		}
	}
	if !removed {
		return cerr.Mark(cerr.Newf("journal record %s", id), ErrRecordNotFound)
	}
	return nil
}

// Cleanup removes archived records whose jobs finished before the cutoff.
// Returns the IDs of the removed records. Active records are never touched.
func (s *Store) Cleanup(olderThan time.Duration) ([]string, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)
	var cleaned []string
	for _, rec := range all {
		if !rec.Terminal() {
			continue
		}
		finished := rec.CreatedAt
		if rec.CompletedAt != nil {
			finished = *rec.CompletedAt
		}
		if finished.Before(cutoff) {
			if err := s.Remove(rec.ID); err == nil {
				cleaned = append(cleaned, rec.ID)
			}
		}
	}
	return cleaned, nil
}
