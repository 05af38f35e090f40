package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunSummary carries the counters of a finished run.
type RunSummary struct {
	LinesSplit     int64
	LinesMerged    int64
	QueueHighWater int64
	ExitCode       int
	// ErrorCode is the machine-readable code of the failure, empty on success.
	ErrorCode string
}

// RunContext holds observability state for one pipeline run.
type RunContext struct {
	RunID     string
	Command   string
	Column    int
	StartTime time.Time
	Metrics   *Metrics
}

// NewRunContext creates a run context. If metrics is nil, metric recording is
// silently skipped.
func NewRunContext(runID, command string, column int, metrics *Metrics) *RunContext {
	return &RunContext{
		RunID:     runID,
		Command:   command,
		Column:    column,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

// runContextKey is the context key for RunContext.
type runContextKey struct{}

// WithRunContext stores a RunContext in the context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFromContext retrieves the RunContext from context, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// StartSpan starts the run span.
func (rc *RunContext) StartSpan(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanRun)
	span.SetAttributes(
		attribute.String(AttrRunID, rc.RunID),
		attribute.String(AttrCommand, rc.Command),
		attribute.Int(AttrColumn, rc.Column),
	)
	return WithRunContext(ctx, rc), span
}

// End finishes the run span and records the run metrics.
func (rc *RunContext) End(ctx context.Context, span trace.Span, summary RunSummary, err error) {
	duration := rc.Duration()

	status := StatusOK
	if err != nil {
		status = StatusError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.String(AttrErrorCode, summary.ErrorCode),
			attribute.String(AttrErrorMessage, err.Error()),
		)
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int(AttrExitCode, summary.ExitCode),
		attribute.Int64(AttrLinesSplit, summary.LinesSplit),
		attribute.Int64(AttrLinesMerged, summary.LinesMerged),
		attribute.Int64(AttrQueueHighWater, summary.QueueHighWater),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if rc.Metrics != nil {
		rc.Metrics.RecordLines(ctx, summary.LinesSplit, summary.LinesMerged)
		rc.Metrics.RecordQueueHighWater(ctx, summary.QueueHighWater)
		rc.Metrics.RecordRun(ctx, status, summary.ErrorCode, duration)
	}
}

// RecordError counts a failure raised by component.
func (rc *RunContext) RecordError(ctx context.Context, code, component string) {
	if rc.Metrics != nil {
		rc.Metrics.RecordError(ctx, code, component)
	}
}

// Duration returns the elapsed time since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
