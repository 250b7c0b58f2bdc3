// pkg/secrets/store.go
//
// Backend-agnostic secret storage. The attestation signing key is the only
// secret scour manages; it can live in an encrypted local keyfile or in a
// Vault KV v2 mount, behind one interface.

package secrets

import (
	"context"

	cerr "github.com/cockroachdb/errors"
)

var (
	// ErrSecretNotFound indicates the requested secret does not exist.
	ErrSecretNotFound = cerr.New("secret not found")

	// ErrPermissionDenied indicates the current credentials lack access.
	ErrPermissionDenied = cerr.New("permission denied")
)

// SecretStore abstracts the underlying secret backend.
type SecretStore interface {
	// Get retrieves the secret at path. Missing → ErrSecretNotFound.
	Get(ctx context.Context, path string) (map[string]string, error)
	// Put writes the secret at path, creating or overwriting.
	Put(ctx context.Context, path string, data map[string]string) error
	// Name identifies the backend for logs.
	Name() string
}
