package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/colpipe/errors"
	"github.com/kbukum/colpipe/logger"
	"github.com/kbukum/colpipe/observability"
	"github.com/kbukum/colpipe/process"
	"github.com/kbukum/colpipe/queue"
	"github.com/kbukum/colpipe/validation"
)

const (
	defaultBufferSize  = 64 * 1024
	defaultGracePeriod = 5 * time.Second
)

// Starter launches the filter subprocess. *process.Adapter implements it.
type Starter interface {
	Start(ctx context.Context, cmd process.Command) (*process.Process, error)
}

// Job describes one pipeline run.
type Job struct {
	// Column is the zero-based index of the field handed to the filter.
	Column  int
	Command process.Command
	Input   io.Reader
	// Output may still be written by the merger after a fatal Run returns.
	Output io.Writer
	// RunID correlates logs and spans. Empty means a fresh UUID.
	RunID string
}

func (j Job) validate() error {
	return validation.New().
		Min("column", j.Column, 0).
		Required("command", j.Command.Binary).
		Custom(j.Input != nil, "input", "is required").
		Custom(j.Output != nil, "output", "is required").
		Err()
}

// Result reports a run that completed without a pipeline failure.
type Result struct {
	RunID string
	// ExitCode is the filter's exit code, or 128+signal if it was killed.
	ExitCode int
	Signaled bool
	Stats    Stats
}

// Runner executes jobs.
type Runner struct {
	starter   Starter
	log       *logger.Logger
	metrics   *observability.Metrics
	readSize  int
	writeSize int
}

// Option configures a Runner.
type Option func(*Runner)

// WithStarter sets how the filter subprocess is launched.
func WithStarter(s Starter) Option {
	return func(r *Runner) { r.starter = s }
}

// WithLogger sets the run logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithMetrics records run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithBufferSizes sets the read and write buffer sizes. Non-positive values
// keep the default of 64 KiB.
func WithBufferSizes(read, write int) Option {
	return func(r *Runner) {
		r.readSize = read
		r.writeSize = write
	}
}

// NewRunner creates a Runner. Without options it starts subprocesses with
// process defaults and logs through the global logger.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.starter == nil {
		r.starter = process.NewAdapter(process.Config{}, nil)
	}
	if r.log == nil {
		r.log = logger.GetGlobalLogger()
	}
	return r
}

// Run executes a job with default settings.
func Run(ctx context.Context, job Job) (*Result, error) {
	return NewRunner().Run(ctx, job)
}

// Run starts the filter, runs the splitter and merger flows against it and
// waits for all three to finish.
//
// A fatal error from either flow kills the filter's process group and is
// returned at once, without waiting for the other flow. Cancelling ctx
// terminates the filter, escalating to SIGKILL after its grace period, and
// returns an INTERRUPTED error.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}

	res := &Result{RunID: job.RunID}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	ctx = logger.ContextWithRunID(ctx, res.RunID)
	log := r.log.WithContext(ctx).WithComponent(logger.ComponentOrchestrator)

	rc := observability.NewRunContext(res.RunID, job.Command.String(), job.Column, r.metrics)
	ctx, span := rc.StartSpan(ctx)

	err := r.execute(ctx, job, res, rc, log)
	res.Stats.Duration = rc.Duration()

	exitCode := res.ExitCode
	if err != nil {
		exitCode = apperrors.ExitCode(err)
		rc.RecordError(ctx, string(apperrors.CodeOf(err)), logger.ComponentOrchestrator)
	}
	rc.End(ctx, span, res.Stats.summary(exitCode, string(apperrors.CodeOf(err))), err)

	fields := logger.Fields(logger.FieldExitCode, exitCode)
	for k, v := range res.Stats.Fields() {
		fields[k] = v
	}
	if err != nil {
		log.WithError(err).Debug("run failed", fields)
		return res, err
	}
	log.Debug("run finished", fields)
	return res, nil
}

func (r *Runner) execute(ctx context.Context, job Job, res *Result, rc *observability.RunContext, log *logger.Logger) error {
	proc, err := r.starter.Start(ctx, job.Command)
	if err != nil {
		return err
	}
	log.Debug("subprocess started", logger.Fields(logger.FieldPID, proc.Pid(), logger.FieldCommand, job.Command.String()))

	q := queue.New[[][]byte]()
	var c counters
	defer func() {
		res.Stats.LinesSplit = c.split.Load()
		res.Stats.LinesMerged = c.merged.Load()
		res.Stats.QueueHighWater = q.Stats().HighWater
	}()

	// Cancelled on return so a merger blocked on the queue is released when
	// the run ends early.
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fatal := NewFatal()
	split := newSplitter(job.Column, job.Input, proc.Stdin, q, &c, r.readSize, r.writeSize)
	merge := newMerger(job.Column, proc.Stdout, job.Output, q, &c, r.readSize, r.writeSize)
	splitDone := r.spawn(workCtx, fatal, rc, log, flow{
		component: logger.ComponentSplitter,
		span:      observability.SpanSplit,
		lines:     &c.split,
		run:       split.run,
	})
	mergeDone := r.spawn(workCtx, fatal, rc, log, flow{
		component: logger.ComponentMerger,
		span:      observability.SpanMerge,
		lines:     &c.merged,
		run:       merge.run,
	})
	procDone := proc.Done()

	for pending := 3; pending > 0; {
		select {
		case <-fatal.Done():
			cancel()
			_ = proc.Kill()
			proc.Release()
			return fatal.Err()
		case <-ctx.Done():
			err := r.interrupt(proc, ctx.Err(), log)
			proc.Release()
			return err
		case <-procDone:
			procDone = nil
			pending--
		case <-splitDone:
			splitDone = nil
			pending--
		case <-mergeDone:
			mergeDone = nil
			pending--
		}
	}

	if err := ctx.Err(); err != nil {
		return apperrors.Interrupted(err)
	}
	if err := fatal.Err(); err != nil {
		return err
	}
	pres, err := proc.Wait()
	if err != nil {
		return apperrors.Unexpected("wait for subprocess", err)
	}
	res.ExitCode = pres.ExitCode
	res.Signaled = pres.Signaled
	return nil
}

// flow is one of the two workers of a run.
type flow struct {
	component string
	span      string
	lines     *atomic.Int64
	run       func(context.Context) error
}

// spawn runs f in its own goroutine. A failure or panic not caused by
// cancellation is escalated and raised on fatal.
func (r *Runner) spawn(ctx context.Context, fatal *Fatal, rc *observability.RunContext, log *logger.Logger, f flow) <-chan error {
	done := make(chan error, 1)
	go func() {
		ctx, span := observability.StartFlowSpan(ctx, f.span, f.component)
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = apperrors.Unexpected(f.component, fmt.Errorf("panic: %v", p))
			}
			if err != nil && ctx.Err() == nil {
				appErr := apperrors.Wrap(err).Escalate().WithDetails(map[string]any{
					logger.FieldComponent: f.component,
					"lines":               f.lines.Load(),
				})
				err = appErr
				rc.RecordError(ctx, string(appErr.Code), f.component)
				if !fatal.Raise(appErr) {
					log.WithComponent(f.component).WithError(appErr).Debug("suppressed error after fatal")
				}
			}
			observability.EndFlowSpan(span, f.lines.Load(), err)
			done <- err
		}()
		err = f.run(ctx)
	}()
	return done
}

// interrupt terminates the filter and waits up to its grace period before
// killing it.
func (r *Runner) interrupt(proc *process.Process, cause error, log *logger.Logger) error {
	grace := proc.Command().GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	log.Debug("interrupted, terminating subprocess", logger.Fields(logger.FieldPID, proc.Pid()))
	_ = proc.Terminate()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-proc.Done():
	case <-timer.C:
		_ = proc.Kill()
	}
	return apperrors.Interrupted(cause)
}
