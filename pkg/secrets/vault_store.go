// pkg/secrets/vault_store.go
//
// SecretStore over HashiCorp Vault KV v2. Address and token come from the
// standard VAULT_ADDR/VAULT_TOKEN environment via the api SDK's defaults.

package secrets

import (
	"context"
	"strings"

	cerr "github.com/cockroachdb/errors"
	vaultapi "github.com/hashicorp/vault/api"
)

// VaultStore implements SecretStore against a Vault KV v2 secrets engine.
type VaultStore struct {
	client *vaultapi.Client
	mount  string
}

// NewVaultStore connects using the SDK's default environment config.
func NewVaultStore(mount string) (*VaultStore, error) {
	cfg := vaultapi.DefaultConfig()
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, cerr.Wrap(err, "create vault client")
	}
	if mount == "" {
		mount = "secret"
	}
	return &VaultStore{client: client, mount: mount}, nil
}

// Name implements SecretStore.
func (v *VaultStore) Name() string {
	return "vault:" + v.mount
}

// Get implements SecretStore.
func (v *VaultStore) Get(ctx context.Context, path string) (map[string]string, error) {
	secret, err := v.client.KVv2(v.mount).Get(ctx, path)
	if err != nil {
		return nil, translateVaultError(err, path)
	}

	out := make(map[string]string, len(secret.Data))
	for k, val := range secret.Data {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}

// Put implements SecretStore.
func (v *VaultStore) Put(ctx context.Context, path string, data map[string]string) error {
	payload := make(map[string]interface{}, len(data))
	for k, val := range data {
		payload[k] = val
	}
	if _, err := v.client.KVv2(v.mount).Put(ctx, path, payload); err != nil {
		return translateVaultError(err, path)
	}
	return nil
}

func translateVaultError(err error, path string) error {
	if cerr.Is(err, vaultapi.ErrSecretNotFound) {
		return cerr.Mark(cerr.Wrapf(err, "secret %s", path), ErrSecretNotFound)
	}

	var respErr *vaultapi.ResponseError
	if cerr.As(err, &respErr) {
		switch respErr.StatusCode {
		case 404:
			return cerr.Mark(cerr.Wrapf(err, "secret %s", path), ErrSecretNotFound)
		case 403:
			return cerr.Mark(cerr.Wrapf(err, "secret %s", path), ErrPermissionDenied)
		}
	}
	if strings.Contains(err.Error(), "permission denied") {
		return cerr.Mark(cerr.Wrapf(err, "secret %s", path), ErrPermissionDenied)
	}
	return cerr.Wrapf(err, "vault access for %s", path)
}
