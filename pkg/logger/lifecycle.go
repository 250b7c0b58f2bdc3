// pkg/logger/lifecycle.go

package logger

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerateTraceID returns a short 8-char trace ID for log correlation.
func GenerateTraceID() string {
	return uuid.New().String()[:8]
}

// LogCommandLifecycle returns a deferred function for consistent start/stop logging.
func LogCommandLifecycle(cmdName string) func(err *error) {
	start := time.Now()
	traceID := GenerateTraceID()
	L().Info("Command started",
		zap.String("command", cmdName),
		zap.Time("start_time", start),
		zap.String("trace_id", traceID))

	return func(err *error) {
		duration := time.Since(start)
		if *err != nil {
			L().Error("Command failed",
				zap.String("command", cmdName),
				zap.Duration("duration", duration),
				zap.String("trace_id", traceID),
				zap.Error(*err))
		} else {
			L().Info("Command completed",
				zap.String("command", cmdName),
				zap.Duration("duration", duration),
				zap.String("trace_id", traceID))
		}
	}
}
