// pkg/shared/runtime.go

package shared

import (
	"strings"

	"go.uber.org/zap"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// SafeSync flushes the global logger, swallowing the EINVAL stdout/stderr
// sync errors some platforms report.
func SafeSync() {
	if err := zap.L().Sync(); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "invalid argument") ||
			strings.Contains(msg, "inappropriate ioctl") ||
			strings.Contains(msg, "bad file descriptor") {
			return
		}
	}
}
