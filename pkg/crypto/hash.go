// pkg/crypto/hash.go

package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns the SHA256 hash of a string as hex.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashBytes returns the SHA256 hash of a byte slice as hex.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashStrings returns SHA256 hashes of each string in the input slice.
func HashStrings(inputs []string) []string {
	out := make([]string, len(inputs))
	for i, s := range inputs {
		out[i] = HashString(s)
	}
	return out
}

// SecureZero overwrites sensitive material in place before release.
func SecureZero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
