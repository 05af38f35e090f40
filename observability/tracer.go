package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kbukum/colpipe"

// Span names.
const (
	SpanRun   = "colpipe.run"
	SpanSplit = "colpipe.split"
	SpanMerge = "colpipe.merge"
)

// Attribute keys.
const (
	AttrRunID          = "colpipe.run_id"
	AttrColumn         = "colpipe.column"
	AttrCommand        = "colpipe.command"
	AttrComponent      = "colpipe.component"
	AttrLines          = "colpipe.lines"
	AttrLinesSplit     = "colpipe.lines.split"
	AttrLinesMerged    = "colpipe.lines.merged"
	AttrQueueHighWater = "colpipe.queue.high_water"
	AttrExitCode       = "process.exit_code"
	AttrDurationMs     = "duration_ms"
	AttrStatus         = "status"
	AttrErrorCode      = "error.code"
	AttrErrorMessage   = "error.message"
)

// newTracerProvider exports spans over OTLP HTTP in batches.
func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	), nil
}

func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// newResource describes the service. The attributes are schemaless so they
// merge with the SDK default resource whatever semconv version it uses.
func newResource(svc Service) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(svc.Name),
			semconv.ServiceVersion(svc.Version),
			semconv.DeploymentEnvironment(svc.Environment),
		),
	)
}

// StartSpan starts a span on the global tracer provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// StartFlowSpan starts the span of one pipeline flow.
func StartFlowSpan(ctx context.Context, name, component string) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(attribute.String(AttrComponent, component)))
}

// EndFlowSpan records the lines a flow handled and its error, then ends the
// span.
func EndFlowSpan(span trace.Span, lines int64, err error) {
	span.SetAttributes(attribute.Int64(AttrLines, lines))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
