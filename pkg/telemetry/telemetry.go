// pkg/telemetry/telemetry.go
package telemetry

import (
	"context"
	"os"
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/RiptideSecurity/scour/pkg/shared"
	"github.com/RiptideSecurity/scour/pkg/xdg"
)

var tracer trace.Tracer

// Init configures OpenTelemetry; call this early in main().
// Tracing is local-only and opt-in: spans are written as JSONL to the state
// directory when the enable flag file exists, otherwise a noop provider runs.
func Init(service string) error {
	if !IsEnabled() {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		tracer = tp.Tracer(service)
		return nil
	}

	traceFile := xdg.XDGStatePath(shared.AppID, "telemetry.jsonl")
	if err := xdg.EnsureDir(traceFile); err != nil {
		return cerr.Wrap(err, "create telemetry directory")
	}

	file, err := os.OpenFile(traceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, xdg.FilePermOwnerReadWrite)
	if err != nil {
		return cerr.Wrap(err, "open telemetry file")
	}

	// Spans already carry timestamps, the exporter's own are redundant.
	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(file),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		_ = file.Close()
		return cerr.Wrap(err, "create trace exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(
			sdkresource.NewWithAttributes(
				semconv.SchemaURL,
				attribute.String("service.name", service),
				attribute.String("host.name", hostname()),
			),
		),
	)

	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(service)
	return nil
}

// Start a telemetry span with optional attributes.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(shared.AppID)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// IsEnabled reports whether local trace capture is switched on.
func IsEnabled() bool {
	path := xdg.XDGStatePath(shared.AppID, "telemetry_on")
	_, err := os.Stat(path)
	return err == nil
}

// Enable switches local trace capture on for subsequent runs.
func Enable() error {
	path := xdg.XDGStatePath(shared.AppID, "telemetry_on")
	if err := xdg.EnsureDir(path); err != nil {
		return cerr.Wrap(err, "create state directory")
	}
	return os.WriteFile(path, []byte("1\n"), xdg.FilePermOwnerReadWrite)
}

// Disable switches local trace capture off.
func Disable() error {
	path := xdg.XDGStatePath(shared.AppID, "telemetry_on")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return cerr.Wrap(err, "remove telemetry flag")
	}
	return nil
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

// TraceFilePath returns where captured spans are written.
func TraceFilePath() string {
	return filepath.Clean(xdg.XDGStatePath(shared.AppID, "telemetry.jsonl"))
}
