// Package trace wraps the OpenTelemetry tracer used around evaluation, response
// saves and guardrail scans. Spans are no-ops until Init runs with tracing enabled.
package trace

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/rmcmillan34/edge-journal/internal/config"
)

const instrumentation = "github.com/rmcmillan34/edge-journal"

var (
	mu             sync.RWMutex
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
)

// Init installs a stdout exporter when cfg.Enabled. Calling it again replaces the provider.
func Init(cfg config.TracingConfig) error {
	return InitWriter(cfg, os.Stdout)
}

func InitWriter(cfg config.TracingConfig, w io.Writer) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return err
	}

	name := cfg.ServiceName
	if name == "" {
		name = "edge-journal"
	}
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceName(name)),
	)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mu.Lock()
	prev := tracerProvider
	tracerProvider = tp
	tracer = tp.Tracer(instrumentation)
	mu.Unlock()
	if prev != nil {
		_ = prev.Shutdown(context.Background())
	}
	return nil
}

// Shutdown flushes pending spans and disables tracing.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := tracerProvider
	tracerProvider, tracer = nil, nil
	mu.Unlock()
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	mu.RLock()
	t := tracer
	mu.RUnlock()
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return tracer != nil
}

// Fields returns the ids of the active span for log correlation.
func Fields(ctx context.Context) (traceID, spanID string, ok bool) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
