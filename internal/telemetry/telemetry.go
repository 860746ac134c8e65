// Package telemetry installs the global OpenTelemetry providers the library
// packages log and trace through.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/koscakluka/clipspeak/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

type ShutdownFunc func(context.Context) error

// Setup routes logs into the configured log file (or w when no file is
// configured) and exports traces over OTLP when an endpoint is set. The
// returned function flushes and releases everything.
func Setup(ctx context.Context, cfg config.TelemetryConfig, serviceName, version string, w io.Writer) (ShutdownFunc, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry resource: %w", err)
	}

	var closers []func(context.Context) error

	logWriter := w
	if path := strings.TrimSpace(cfg.LogFile); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logWriter = file
		closers = append(closers, func(context.Context) error { return file.Close() })
	}

	loggerProvider, err := newLoggerProvider(cfg, res, logWriter)
	if err != nil {
		return nil, errors.Join(err, shutdownAll(ctx, closers))
	}
	global.SetLoggerProvider(loggerProvider)
	closers = append([]func(context.Context) error{loggerProvider.Shutdown}, closers...)

	tracerProvider, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, errors.Join(err, shutdownAll(ctx, closers))
	}
	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
		closers = append([]func(context.Context) error{tracerProvider.Shutdown}, closers...)
	}

	return func(ctx context.Context) error { return shutdownAll(ctx, closers) }, nil
}

func newLoggerProvider(cfg config.TelemetryConfig, res *resource.Resource, w io.Writer) (*sdklog.LoggerProvider, error) {
	exporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	processor := severityFilter{
		Processor: sdklog.NewBatchProcessor(exporter),
		min:       ParseSeverity(cfg.LogLevel),
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(processor),
		sdklog.WithResource(res),
	), nil
}

// newTracerProvider returns nil when no OTLP endpoint is configured, leaving
// the global noop provider in place.
func newTracerProvider(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	if endpoint == "" {
		return nil, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// ParseSeverity maps a config log level to the lowest severity that gets
// exported. Unknown levels map to info.
func ParseSeverity(level string) log.Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.SeverityDebug
	case "warn", "warning":
		return log.SeverityWarn
	case "error":
		return log.SeverityError
	default:
		return log.SeverityInfo
	}
}

// severityFilter drops records below min before they reach the wrapped
// processor.
type severityFilter struct {
	sdklog.Processor
	min log.Severity
}

func (f severityFilter) OnEmit(ctx context.Context, record *sdklog.Record) error {
	if record.Severity() < f.min {
		return nil
	}
	return f.Processor.OnEmit(ctx, record)
}

func shutdownAll(ctx context.Context, closers []func(context.Context) error) error {
	var errs []error
	for _, closer := range closers {
		if err := closer(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
