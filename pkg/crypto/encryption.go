// pkg/crypto/encryption.go

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	cerr "github.com/cockroachdb/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2 parameters for passphrase-derived keys.
	kdfIterations = 600_000
	kdfKeyLen     = 32
	kdfSaltLen    = 16
)

// DeriveKey stretches a passphrase into an AES-256 key.
func DeriveKey(passphrase, salt []byte) []byte {
	return pbkdf2.Key(passphrase, salt, kdfIterations, kdfKeyLen, sha256.New)
}

// NewSalt returns a fresh random KDF salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, kdfSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, cerr.Wrap(err, "generate salt")
	}
	return salt, nil
}

// EncryptAESGCM seals plaintext with AES-256-GCM. The nonce is prefixed to
// the returned ciphertext.
func EncryptAESGCM(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, cerr.Wrap(err, "create cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cerr.Wrap(err, "create GCM")
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, cerr.Wrap(err, "generate nonce")
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptAESGCM opens a nonce-prefixed AES-256-GCM ciphertext.
func DecryptAESGCM(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, cerr.Wrap(err, "create cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cerr.Wrap(err, "create GCM")
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, cerr.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, cerr.Wrap(err, "decrypt")
	}

	return plaintext, nil
}
