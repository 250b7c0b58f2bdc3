// pkg/crypto/signing.go
//
// Ed25519 signing keys for attestation certificates. Keys live in a JSON
// envelope on disk, optionally sealed under a passphrase so a stolen state
// directory does not yield a working certificate mill.

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"
	"time"

	cerr "github.com/cockroachdb/errors"

	"github.com/RiptideSecurity/scour/pkg/xdg"
)

// SigningKey is an Ed25519 keypair with a stable identifier.
type SigningKey struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// KeyID returns a short fingerprint binding certificates to this key.
func (k *SigningKey) KeyID() string {
	return HashBytes(k.Public)[:16]
}

// Sign returns the Ed25519 signature over msg.
func (k *SigningKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// VerifySignature checks sig over msg with the given public key.
func VerifySignature(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}

// GenerateSigningKey creates a fresh Ed25519 keypair.
func GenerateSigningKey() (*SigningKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, cerr.Wrap(err, "generate ed25519 key")
	}
	return &SigningKey{Private: priv, Public: pub}, nil
}

// SigningKeyFromSeed rebuilds a keypair from its 32-byte seed.
func SigningKeyFromSeed(seed []byte) (*SigningKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, cerr.Newf("invalid seed length %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &SigningKey{
		Private: priv,
		Public:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// keyEnvelope is the on-disk format for signing keys.
type keyEnvelope struct {
	Version   int       `json:"version"`
	Encrypted bool      `json:"encrypted"`
	KDF       string    `json:"kdf,omitempty"`
	Salt      string    `json:"salt,omitempty"`
	Seed      string    `json:"seed"`
	PublicKey string    `json:"public_key"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveKeyFile writes the key to path, sealed under passphrase when non-empty.
func SaveKeyFile(path string, key *SigningKey, passphrase []byte) error {
	env := keyEnvelope{
		Version:   1,
		PublicKey: base64.StdEncoding.EncodeToString(key.Public),
		CreatedAt: time.Now().UTC(),
	}

	seed := key.Private.Seed()
	defer SecureZero(seed)

	if len(passphrase) > 0 {
		salt, err := NewSalt()
		if err != nil {
			return err
		}
		derived := DeriveKey(passphrase, salt)
		defer SecureZero(derived)

		sealed, err := EncryptAESGCM(seed, derived)
		if err != nil {
			return cerr.Wrap(err, "seal signing key")
		}

		env.Encrypted = true
		env.KDF = "pbkdf2-sha256"
		env.Salt = base64.StdEncoding.EncodeToString(salt)
		env.Seed = base64.StdEncoding.EncodeToString(sealed)
	} else {
		env.Seed = base64.StdEncoding.EncodeToString(seed)
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return cerr.Wrap(err, "marshal key envelope")
	}

	if err := xdg.EnsureDir(path); err != nil {
		return cerr.Wrap(err, "create key directory")
	}
	return os.WriteFile(path, data, xdg.FilePermOwnerReadWrite)
}

// LoadKeyFile reads a key envelope, unsealing with passphrase when needed.
func LoadKeyFile(path string, passphrase []byte) (*SigningKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.Wrap(err, "read key file")
	}

	var env keyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, cerr.Wrap(err, "parse key envelope")
	}
	if env.Version != 1 {
		return nil, cerr.Newf("unsupported key envelope version %d", env.Version)
	}

	seed, err := base64.StdEncoding.DecodeString(env.Seed)
	if err != nil {
		return nil, cerr.Wrap(err, "decode seed")
	}

	if env.Encrypted {
		if len(passphrase) == 0 {
			return nil, cerr.New("key file is passphrase-protected")
		}
		salt, err := base64.StdEncoding.DecodeString(env.Salt)
		if err != nil {
			return nil, cerr.Wrap(err, "decode salt")
		}
		derived := DeriveKey(passphrase, salt)
		defer SecureZero(derived)

		seed, err = DecryptAESGCM(seed, derived)
		if err != nil {
			return nil, cerr.Wrap(err, "unseal signing key (wrong passphrase?)")
		}
	}
	defer SecureZero(seed)

	if len(seed) != ed25519.SeedSize {
		return nil, cerr.Newf("invalid seed length %d", len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return &SigningKey{
		Private: priv,
		Public:  priv.Public().(ed25519.PublicKey),
	}, nil
}
