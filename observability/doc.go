// Package observability provides OpenTelemetry tracing and metrics for
// pipeline runs.
//
// Export is off by default. When enabled, metrics and spans go to an OTLP
// HTTP collector:
//
//	p, err := observability.Setup(ctx, cfg.Observability, observability.Service{Name: "colpipe", Version: version.Version})
//	defer p.Shutdown(ctx)
//
// Each run opens one span and records its counters on completion:
//
//	rc := observability.NewRunContext(runID, "sed s/a/b/", 1, p.Metrics)
//	ctx, span := rc.StartSpan(ctx)
//	rc.End(ctx, span, summary, err)
//
// The splitter and merger flows get child spans from StartFlowSpan.
package observability
