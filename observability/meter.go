package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// newMeterProvider exports metrics over OTLP HTTP every cfg.Interval.
func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	), nil
}

// Run status values recorded on colpipe.run.total.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the OpenTelemetry instruments recorded by a pipeline run.
type Metrics struct {
	linesSplit     metric.Int64Counter
	linesMerged    metric.Int64Counter
	queueHighWater metric.Int64Histogram
	runTotal       metric.Int64Counter
	runDuration    metric.Float64Histogram
	errorTotal     metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	linesSplit, err := meter.Int64Counter("colpipe.lines.split",
		metric.WithDescription("Input lines handed to the filter subprocess"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating colpipe.lines.split counter: %w", err)
	}

	linesMerged, err := meter.Int64Counter("colpipe.lines.merged",
		metric.WithDescription("Output lines recombined with their remainder"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating colpipe.lines.merged counter: %w", err)
	}

	queueHighWater, err := meter.Int64Histogram("colpipe.queue.high_water",
		metric.WithDescription("Largest number of remainders waiting in the alignment queue during a run"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating colpipe.queue.high_water histogram: %w", err)
	}

	runTotal, err := meter.Int64Counter("colpipe.run.total",
		metric.WithDescription("Completed runs by status and error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating colpipe.run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("colpipe.run.duration",
		metric.WithDescription("Duration of runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating colpipe.run.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("colpipe.error.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating colpipe.error.total counter: %w", err)
	}

	return &Metrics{
		linesSplit:     linesSplit,
		linesMerged:    linesMerged,
		queueHighWater: queueHighWater,
		runTotal:       runTotal,
		runDuration:    runDuration,
		errorTotal:     errorTotal,
	}, nil
}

// RecordLines adds the split and merged line counts of a run.
func (m *Metrics) RecordLines(ctx context.Context, split, merged int64) {
	m.linesSplit.Add(ctx, split)
	m.linesMerged.Add(ctx, merged)
}

// RecordQueueHighWater records the alignment queue high-water mark of a run.
func (m *Metrics) RecordQueueHighWater(ctx context.Context, n int64) {
	m.queueHighWater.Record(ctx, n)
}

// RecordRun records a finished run. code is empty on success.
func (m *Metrics) RecordRun(ctx context.Context, status, code string, duration time.Duration) {
	m.runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStatus, status),
		attribute.String(AttrErrorCode, code),
	))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrStatus, status),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.String(AttrComponent, component),
	))
}
