// pkg/secrets/keysource.go
//
// Where the attestation signing key comes from. File source: an envelope
// on disk, optionally passphrase-sealed, generated on first use. Store
// source: the Ed25519 seed kept in a SecretStore (Vault KV v2 in
// production), also generated on first use.

package secrets

import (
	"context"
	"encoding/base64"
	"os"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/crypto"
)

// KeySource yields the signing key for attestation certificates.
type KeySource interface {
	Load(ctx context.Context) (*crypto.SigningKey, error)
}

// FileKeySource keeps the key in a local envelope file.
type FileKeySource struct {
	// Path of the key envelope.
	Path string
	// Passphrase, when non-nil, supplies the sealing passphrase lazily
	// (prompted from the operator, read from env, ...).
	Passphrase func() ([]byte, error)
}

// Load reads the keyfile, generating a fresh key on first use.
func (f *FileKeySource) Load(ctx context.Context) (*crypto.SigningKey, error) {
	logger := otelzap.Ctx(ctx)

	passphrase, err := f.passphrase()
	if err != nil {
		return nil, err
	}
	defer crypto.SecureZero(passphrase)

	if _, err := os.Stat(f.Path); os.IsNotExist(err) {
		key, err := crypto.GenerateSigningKey()
		if err != nil {
			return nil, err
		}
		if err := crypto.SaveKeyFile(f.Path, key, passphrase); err != nil {
			return nil, cerr.Wrap(err, "write new signing key")
		}
		logger.Info("Generated attestation signing key",
			zap.String("path", f.Path),
			zap.String("key_id", key.KeyID()),
			zap.Bool("sealed", len(passphrase) > 0))
		return key, nil
	}

	return crypto.LoadKeyFile(f.Path, passphrase)
}

func (f *FileKeySource) passphrase() ([]byte, error) {
	if f.Passphrase == nil {
		return nil, nil
	}
	return f.Passphrase()
}

// StoreKeySource keeps the Ed25519 seed in a SecretStore.
type StoreKeySource struct {
	Store SecretStore
	// SecretPath within the store, e.g. "scour/attestation-key".
	SecretPath string
}

// Load fetches the seed, generating and persisting a key on first use.
func (s *StoreKeySource) Load(ctx context.Context) (*crypto.SigningKey, error) {
	logger := otelzap.Ctx(ctx)

	data, err := s.Store.Get(ctx, s.SecretPath)
	if cerr.Is(err, ErrSecretNotFound) {
		key, genErr := crypto.GenerateSigningKey()
		if genErr != nil {
			return nil, genErr
		}
		seed := key.Private.Seed()
		defer crypto.SecureZero(seed)

		if putErr := s.Store.Put(ctx, s.SecretPath, map[string]string{
			"seed": base64.StdEncoding.EncodeToString(seed),
		}); putErr != nil {
			return nil, cerr.Wrap(putErr, "persist new signing key")
		}
		logger.Info("Generated attestation signing key in secret store",
			zap.String("backend", s.Store.Name()),
			zap.String("key_id", key.KeyID()))
		return key, nil
	}
	if err != nil {
		return nil, err
	}

	encoded, ok := data["seed"]
	if !ok {
		return nil, cerr.Newf("secret %s has no seed field", s.SecretPath)
	}
	seed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, cerr.Wrap(err, "decode signing key seed")
	}
	defer crypto.SecureZero(seed)

	return crypto.SigningKeyFromSeed(seed)
}
