// Package otelobserver implements es.Observer by recording category-engine
// activity as span events against the active OpenTelemetry trace, grounded
// on wilhg-orch's pkg/otel tracer-provider setup (also required directly by
// fluxor and buckley).
package otelobserver

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/getpup/foldstore/es"
)

// Config controls tracer-provider initialization.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// UseStdout enables the stdout trace exporter, suitable for local dev
	// and tests. When false, a no-op exporter is used — spans are created
	// and recorded but not shipped anywhere, ready for a caller to swap in
	// an OTLP exporter later.
	UseStdout bool
}

// Init configures a global tracer provider and returns a shutdown func.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "foldstore"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = os.Getenv("FOLDSTORE_VERSION")
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithFromEnv(),
		sdkresource.WithProcess(),
		sdkresource.WithOS(),
		sdkresource.WithHost(),
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, err
	}

	var tp *sdktrace.TracerProvider
	if cfg.UseStdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp,
				sdktrace.WithMaxExportBatchSize(512),
				sdktrace.WithBatchTimeout(200*time.Millisecond),
			),
			sdktrace.WithResource(res),
		)
	} else {
		tp = sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	}

	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Observer implements es.Observer by attaching events to the span active
// on ctx, if any. With no active span (e.g. Init was never called, or the
// caller didn't wrap the operation in one), every method is a no-op —
// category.Category never starts spans itself, so an Observer that wants
// one full span per Load/TrySync should wrap the call with its own
// tracer.Start before invoking the decider.
type Observer struct {
	tracer trace.Tracer
}

// New constructs an Observer using the tracer named name from the global
// tracer provider.
func New(name string) *Observer {
	return &Observer{tracer: otel.Tracer(name)}
}

func (o *Observer) record(ctx context.Context, level string, msg string, keyvals ...interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(keyvals)/2+1)
	attrs = append(attrs, attribute.String("level", level))
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, attribute.String(key, toString(keyvals[i+1])))
	}
	span.AddEvent(msg, trace.WithAttributes(attrs...))
}

// Debug implements es.Observer.
func (o *Observer) Debug(ctx context.Context, msg string, keyvals ...interface{}) {
	o.record(ctx, "debug", msg, keyvals...)
}

// Info implements es.Observer.
func (o *Observer) Info(ctx context.Context, msg string, keyvals ...interface{}) {
	o.record(ctx, "info", msg, keyvals...)
}

// Error implements es.Observer.
func (o *Observer) Error(ctx context.Context, msg string, keyvals ...interface{}) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetStatus(codes.Error, msg)
	}
	o.record(ctx, "error", msg, keyvals...)
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", v)
}

var _ es.Observer = (*Observer)(nil)
