// pkg/logger/logger.go

package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/RiptideSecurity/scour/pkg/xdg"
)

var log *zap.Logger

// SetLogger replaces the package-global logger.
func SetLogger(l *zap.Logger) {
	log = l
}

// L returns the global logger, initializing a fallback if nothing ran yet.
func L() *zap.Logger {
	if log == nil {
		InitFallback()
	}
	return log
}

// DefaultConfig returns the standard zap config: JSON to stdout plus the
// best writable log file for this platform.
func DefaultConfig() zap.Config {
	logPath := ResolveLogPath()

	outputs := []string{"stdout"}
	if logPath != "" {
		outputs = append(outputs, logPath)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	return zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLogLevel(os.Getenv("LOG_LEVEL"))),
		Development:      os.Getenv("ENV") == "development",
		Encoding:         "json",
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    encoderCfg,
	}
}

// Initialize builds the global logger from cfg, falling back to a
// console-only logger when the file sink cannot be opened.
func Initialize(cfg zap.Config) {
	for _, path := range cfg.OutputPaths {
		if path != "stdout" && path != "stderr" {
			if err := EnsureLogPermissions(path); err != nil {
				InitFallback()
				log.Warn("Log file unavailable, console only", zap.String("path", path), zap.Error(err))
				return
			}
		}
	}

	l, err := cfg.Build()
	if err != nil {
		InitFallback()
		log.Warn("Logger config rejected, console only", zap.Error(err))
		return
	}

	zap.ReplaceGlobals(l)
	SetLogger(l)
	l.Debug("Logger initialized", zap.String("log_level", cfg.Level.String()))
}

// EnsureLogPermissions ensures owner-only permissions for the log directory
// and file. Sanitization logs name wiped targets, so they stay private.
func EnsureLogPermissions(logFilePath string) error {
	dir := filepath.Dir(logFilePath)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, xdg.DirPermOwnerOnly); err != nil {
			return err
		}
	} else {
		if err := os.Chmod(dir, xdg.DirPermOwnerOnly); err != nil {
			return err
		}
	}

	if _, err := os.Stat(logFilePath); os.IsNotExist(err) {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY, xdg.FilePermOwnerReadWrite)
		if err != nil {
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
	}

	return os.Chmod(logFilePath, xdg.FilePermOwnerReadWrite)
}

// ParseLogLevel maps LOG_LEVEL strings onto zap levels, defaulting to Info.
func ParseLogLevel(level string) zapcore.Level {
	switch level {
	case "TRACE", "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes buffered entries. Called once on process exit; sync errors on
// stdout are expected on some platforms and ignored.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
