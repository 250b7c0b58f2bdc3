package attest

import (
	"encoding/base64"
	"encoding/hex"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/jobs"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
	"github.com/RiptideSecurity/scour/pkg/secrets"
	"github.com/RiptideSecurity/scour/pkg/shared"
)

// ErrJobNotCompleted rejects attestation of any job that did not finish
// every pass. Failed, cancelled, and still-running jobs are all refused.
var ErrJobNotCompleted = cerr.New("job is not in completed state")

// StatusSource supplies job snapshots. Satisfied by *jobs.Registry.
type StatusSource interface {
	GetStatus(jobID string) (jobs.Snapshot, error)
}

// Service issues signed attestation certificates for completed jobs.
type Service struct {
	source StatusSource
	keys   secrets.KeySource
	store  *Store
}

// NewService wires a certificate issuer. store may be nil when the caller
// only wants in-memory records.
func NewService(source StatusSource, keys secrets.KeySource, store *Store) *Service {
	return &Service{source: source, keys: keys, store: store}
}

// Attest issues a fresh certificate for jobID. Each call draws a new nonce,
// so repeated attestations of the same job yield distinct records.
func (s *Service) Attest(rc *scour_io.RuntimeContext, jobID string) (*Record, error) {
	log := otelzap.Ctx(rc.Ctx)

	snap, err := s.source.GetStatus(jobID)
	if err != nil {
		return nil, err
	}
	if snap.State != jobs.StateCompleted {
		return nil, cerr.Wrapf(ErrJobNotCompleted,
			"job %s is %s", jobID, snap.State)
	}

	if snap.CompletedAt == nil {
		return nil, cerr.AssertionFailedf(
			"job %s is completed but has no completion time", jobID)
	}
	completedAt := snap.CompletedAt.UTC()

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	rec := &Record{
		SchemaVersion: shared.CertificateSchemaVersion,
		JobID:         snap.ID,
		Target: Target{
			Path:      snap.TargetPath,
			SizeBytes: snap.ExtentSize,
		},
		Standard:    string(snap.Standard),
		PassRecords: snap.PassRecords,
		CompletedAt: completedAt,
		Nonce:       nonce,
		IssuedAt:    time.Now().UTC(),
	}

	digest, err := computeDigest(rec)
	if err != nil {
		return nil, err
	}
	rec.Digest = digest

	key, err := s.keys.Load(rc.Ctx)
	if err != nil {
		return nil, cerr.Wrap(err, "load signing key")
	}
	digestBytes, err := hex.DecodeString(digest)
	if err != nil {
		return nil, cerr.Wrap(err, "decode digest")
	}
	rec.PublicKey = base64.StdEncoding.EncodeToString(key.Public)
	rec.KeyID = key.KeyID()
	rec.Signature = base64.StdEncoding.EncodeToString(key.Sign(digestBytes))

	if s.store != nil {
		path, err := s.store.Save(rec)
		if err != nil {
			return nil, err
		}
		log.Info("Attestation certificate issued",
			zap.String("job_id", jobID),
			zap.String("key_id", rec.KeyID),
			zap.String("path", path))
	} else {
		log.Info("Attestation certificate issued",
			zap.String("job_id", jobID),
			zap.String("key_id", rec.KeyID))
	}

	return rec, nil
}
