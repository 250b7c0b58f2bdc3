// pkg/xdg/xdg.go

package xdg

import (
	"os"
	"path/filepath"
)

const (
	// Permission modes (in octal)
	DirPermStandard        = 0755
	DirPermOwnerOnly       = 0700
	FilePermStandard       = 0644
	FilePermOwnerReadWrite = 0600
	OwnerReadOnly          = 0400
)

func GetEnvOrDefault(envVar, fallback string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return fallback
}

// XDGConfigPath returns the path of file under the app's XDG config directory.
func XDGConfigPath(app, file string) string {
	base := GetEnvOrDefault("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config"))
	return filepath.Join(base, app, file)
}

// XDGStatePath returns the path of file under the app's XDG state directory.
// Job journals, attestation records, and telemetry output live here.
func XDGStatePath(app, file string) string {
	base := GetEnvOrDefault("XDG_STATE_HOME", filepath.Join(os.Getenv("HOME"), ".local", "state"))
	return filepath.Join(base, app, file)
}

// XDGCachePath returns the path of file under the app's XDG cache directory.
func XDGCachePath(app, file string) string {
	base := GetEnvOrDefault("XDG_CACHE_HOME", filepath.Join(os.Getenv("HOME"), ".cache"))
	return filepath.Join(base, app, file)
}

// EnsureDir creates the parent directory of path, owner-only.
// State directories hold job records and signing material, so 0700 throughout.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), DirPermOwnerOnly)
}

// EnsureDirPath creates path itself (not its parent), owner-only.
func EnsureDirPath(path string) error {
	return os.MkdirAll(path, DirPermOwnerOnly)
}
