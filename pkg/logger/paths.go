// pkg/logger/paths.go

package logger

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/RiptideSecurity/scour/pkg/shared"
	"github.com/RiptideSecurity/scour/pkg/xdg"
)

// PlatformLogPaths returns candidate log paths in priority order.
func PlatformLogPaths() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{
			shared.SystemLogFile, // best when running as root on a decommissioning host
			xdg.XDGStatePath(shared.AppID, shared.AppID+".log"),
			"./" + shared.AppID + ".log",
			filepath.Join(os.TempDir(), shared.AppID, shared.AppID+".log"),
		}
	case "darwin":
		return []string{
			xdg.XDGStatePath(shared.AppID, shared.AppID+".log"),
			"./" + shared.AppID + ".log",
			filepath.Join(os.TempDir(), shared.AppID, shared.AppID+".log"),
		}
	default:
		return []string{"./" + shared.AppID + ".log"}
	}
}

// ResolveLogPath returns the first candidate whose directory and file are
// writable, or "" when none is.
func ResolveLogPath() string {
	for _, path := range PlatformLogPaths() {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, xdg.DirPermOwnerOnly); err != nil {
			continue
		}
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, xdg.FilePermOwnerReadWrite)
		if err != nil {
			continue
		}
		_ = file.Close()
		return path
	}
	return ""
}
