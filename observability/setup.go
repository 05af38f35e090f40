package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/colpipe/logger"
)

// Provider bundles the providers started by Setup with the run metrics.
type Provider struct {
	Metrics *Metrics
	meter   *sdkmetric.MeterProvider
	tracer  *sdktrace.TracerProvider
}

// Setup installs OTLP exporters as the global providers when cfg.Enabled and
// builds the run metrics. With export disabled the metrics record against
// the global no-op meter.
func Setup(ctx context.Context, cfg Config, svc Service) (*Provider, error) {
	p := &Provider{}
	if cfg.Enabled {
		res, err := newResource(svc)
		if err != nil {
			return nil, fmt.Errorf("creating resource: %w", err)
		}
		if p.meter, err = newMeterProvider(ctx, cfg, res); err != nil {
			return nil, err
		}
		if p.tracer, err = newTracerProvider(ctx, cfg, res); err != nil {
			_ = p.meter.Shutdown(ctx)
			return nil, err
		}
		otel.SetMeterProvider(p.meter)
		otel.SetTracerProvider(p.tracer)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		logger.Debug("telemetry export enabled", logger.Fields(
			"endpoint", cfg.Endpoint,
			"interval", cfg.Interval.String(),
			"sample_rate", cfg.SampleRate,
		))
	}

	metrics, err := NewMetrics(otel.Meter(svc.Name))
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	p.Metrics = metrics
	return p, nil
}

// Shutdown flushes and stops the providers started by Setup.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		errs = append(errs, p.tracer.Shutdown(ctx))
	}
	if p.meter != nil {
		errs = append(errs, p.meter.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
