package attest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	cerr "github.com/cockroachdb/errors"

	"github.com/RiptideSecurity/scour/pkg/xdg"
)

// Store persists certificates as one JSON file per issuance. Files are
// chmodded read-only after write so an issued certificate cannot be
// silently edited in place.
type Store struct {
	mu       sync.Mutex
	basePath string
}

// NewStore prepares the certificate directory.
func NewStore(basePath string) (*Store, error) {
	if err := xdg.EnsureDirPath(basePath); err != nil {
		return nil, cerr.Wrap(err, "create attestation directory")
	}
	return &Store{basePath: basePath}, nil
}

// Save writes rec and returns the file path. The name embeds the nonce
// prefix, so re-attesting a job never clobbers an earlier certificate.
func (s *Store) Save(rec *Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := rec.Nonce
	if len(nonce) > 8 {
		nonce = nonce[:8]
	}
	path := filepath.Join(s.basePath, rec.JobID+"-"+nonce+".json")

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", cerr.Wrap(err, "marshal attestation record")
	}
	if err := os.WriteFile(path, data, xdg.FilePermOwnerReadWrite); err != nil {
		return "", cerr.Wrap(err, "write attestation record")
	}
	if err := os.Chmod(path, xdg.OwnerReadOnly); err != nil {
		return "", cerr.Wrap(err, "seal attestation record")
	}
	return path, nil
}

// LoadFile reads one certificate from an arbitrary path.
func LoadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.Wrap(err, "read attestation record")
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, cerr.Wrap(err, "parse attestation record")
	}
	return &rec, nil
}

// List returns the certificates for jobID, newest issuance last by file
// name. An empty jobID lists everything in the store.
func (s *Store) List(jobID string) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, cerr.Wrap(err, "list attestation directory")
	}

	var records []*Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if jobID != "" && !strings.HasPrefix(name, jobID+"-") {
			continue
		}
		rec, err := LoadFile(filepath.Join(s.basePath, name))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].IssuedAt.Before(records[j].IssuedAt)
	})
	return records, nil
}
