package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/odvcencio/ideprobe"

// TracerProvider is the process-wide provider installed by NewTracerProvider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// TracingOption customizes NewTracerProvider.
type TracingOption func(*tracingOptions)

type tracingOptions struct {
	w      io.Writer
	pretty bool
	sync   bool
}

// WithWriter sends exported spans to w instead of stdout.
func WithWriter(w io.Writer) TracingOption {
	return func(o *tracingOptions) { o.w = w }
}

// WithCompactOutput writes one span per line.
func WithCompactOutput() TracingOption {
	return func(o *tracingOptions) { o.pretty = false }
}

// WithSyncExport exports each span as it ends. Test suites that read the
// output right after an operation need it.
func WithSyncExport() TracingOption {
	return func(o *tracingOptions) { o.sync = true }
}

// NewTracerProvider installs a stdout exporting provider for development and
// makes it the global provider.
func NewTracerProvider(serviceName string, opts ...TracingOption) (*TracerProvider, error) {
	o := tracingOptions{w: os.Stdout, pretty: true}
	for _, opt := range opts {
		opt(&o)
	}

	exporterOpts := []stdouttrace.Option{stdouttrace.WithWriter(o.w)}
	if o.pretty {
		exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	export := sdktrace.WithBatcher(exporter)
	if o.sync {
		export = sdktrace.WithSyncer(exporter)
	}
	provider := sdktrace.NewTracerProvider(
		export,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	return &TracerProvider{provider: provider}, nil
}

// Shutdown flushes pending spans. It is safe on a nil provider, which is
// what a disabled tracing config yields.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// Tracer returns the module tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span on the module tracer.
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, spanName, opts...)
}

// AddEvent adds an event to the span in ctx.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError marks the span in ctx failed. A nil err is ignored.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrs...)
}

// Span attribute keys.
var (
	AttrOperationID = attribute.Key("ideprobe.operation.id")
	AttrRunID       = attribute.Key("ideprobe.operation.run_id")
	AttrAttempts    = attribute.Key("ideprobe.repeat.attempts")
	AttrDeadline    = attribute.Key("ideprobe.deadline")
	AttrOutcome     = attribute.Key("ideprobe.outcome")

	AttrDirection    = attribute.Key("ideprobe.scroll.direction")
	AttrVisibleItems = attribute.Key("ideprobe.scroll.visible_items")

	AttrTreePath    = attribute.Key("ideprobe.tree.path")
	AttrTreeSegment = attribute.Key("ideprobe.tree.segment_index")

	AttrSessionID = attribute.Key("ideprobe.session.id")
)
