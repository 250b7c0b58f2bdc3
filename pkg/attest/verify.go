package attest

import (
	"encoding/base64"
	"encoding/hex"

	goversion "github.com/hashicorp/go-version"

	"github.com/RiptideSecurity/scour/pkg/crypto"
	"github.com/RiptideSecurity/scour/pkg/shared"
)

// Verify reports whether a certificate is internally consistent. It is a
// pure predicate with no side effects: schema version in range, digest
// recomputes to the stored value, and when signing material is present the
// key id matches the public key and the signature validates. A record
// without signature and public key is accepted on digest alone.
func Verify(rec *Record) bool {
	if rec == nil {
		return false
	}
	if !schemaSupported(rec.SchemaVersion) {
		return false
	}

	digest, err := computeDigest(rec)
	if err != nil || digest != rec.Digest {
		return false
	}

	if rec.Signature == "" && rec.PublicKey == "" {
		return rec.KeyID == ""
	}
	if rec.Signature == "" || rec.PublicKey == "" {
		return false
	}

	pub, err := base64.StdEncoding.DecodeString(rec.PublicKey)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(rec.Signature)
	if err != nil {
		return false
	}
	if rec.KeyID != crypto.HashBytes(pub)[:16] {
		return false
	}
	digestBytes, err := hex.DecodeString(rec.Digest)
	if err != nil {
		return false
	}
	return crypto.VerifySignature(pub, digestBytes, sig)
}

func schemaSupported(version string) bool {
	v, err := goversion.NewVersion(version)
	if err != nil {
		return false
	}
	constraint, err := goversion.NewConstraint(shared.CertificateSchemaConstraint)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}
