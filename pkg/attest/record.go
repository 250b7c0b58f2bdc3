// pkg/attest/record.go
//
// Attestation certificates. The digest covers a canonical serialization of
// exactly {jobID, target, standard, passRecords, completedAt, nonce}; a
// fresh nonce per issuance keeps two certificates for identical jobs from
// being bit-identical. The Ed25519 signature over the digest makes the
// record independently verifiable offline.

package attest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	cerr "github.com/cockroachdb/errors"

	"github.com/RiptideSecurity/scour/pkg/crypto"
	"github.com/RiptideSecurity/scour/pkg/sanitize"
	"github.com/RiptideSecurity/scour/pkg/shared"
)

// Target describes the sanitized extent as certified.
type Target struct {
	Path      string `json:"path"       yaml:"path"`
	SizeBytes int64  `json:"size_bytes" yaml:"size_bytes"`
}

// Record is one issued attestation certificate.
type Record struct {
	SchemaVersion string                `json:"schema_version"      yaml:"schema_version"`
	JobID         string                `json:"job_id"              yaml:"job_id"`
	Target        Target                `json:"target"              yaml:"target"`
	Standard      string                `json:"standard"            yaml:"standard"`
	PassRecords   []sanitize.PassRecord `json:"pass_records"        yaml:"pass_records"`
	CompletedAt   time.Time             `json:"completed_at"        yaml:"completed_at"`
	Nonce         string                `json:"nonce"               yaml:"nonce"`
	IssuedAt      time.Time             `json:"issued_at"           yaml:"issued_at"`
	Digest        string                `json:"digest"              yaml:"digest"`
	PublicKey     string                `json:"public_key,omitempty" yaml:"public_key,omitempty"`
	KeyID         string                `json:"key_id,omitempty"    yaml:"key_id,omitempty"`
	Signature     string                `json:"signature,omitempty" yaml:"signature,omitempty"`
}

// digestPayload fixes the field set and order the digest covers. Nothing
// else — issuance time and signature live outside the digest.
type digestPayload struct {
	JobID       string                `json:"job_id"`
	Target      Target                `json:"target"`
	Standard    string                `json:"standard"`
	PassRecords []sanitize.PassRecord `json:"pass_records"`
	CompletedAt time.Time             `json:"completed_at"`
	Nonce       string                `json:"nonce"`
}

// computeDigest canonicalizes the certified fields and hashes them.
// Timestamps are normalized to UTC so the serialization is stable across
// the locales of issuer and verifier.
func computeDigest(r *Record) (string, error) {
	records := make([]sanitize.PassRecord, len(r.PassRecords))
	for i, p := range r.PassRecords {
		p.StartedAt = p.StartedAt.UTC()
		p.CompletedAt = p.CompletedAt.UTC()
		records[i] = p
	}

	payload := digestPayload{
		JobID:       r.JobID,
		Target:      r.Target,
		Standard:    r.Standard,
		PassRecords: records,
		CompletedAt: r.CompletedAt.UTC(),
		Nonce:       r.Nonce,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", cerr.Wrap(err, "canonicalize attestation payload")
	}
	return crypto.HashBytes(data), nil
}

// newNonce draws the 16-byte issuance nonce.
func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", cerr.Wrap(err, "draw attestation nonce")
	}
	return hex.EncodeToString(buf), nil
}

// SchemaVersion reports the version stamped on new records.
func SchemaVersion() string {
	return shared.CertificateSchemaVersion
}
