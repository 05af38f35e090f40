package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	apperrors "github.com/kbukum/colpipe/errors"
)

const defaultGracePeriod = 5 * time.Second

// Process is a running filter subprocess with its standard input and output
// connected to pipes owned by the caller.
type Process struct {
	// Stdin is the write end of the subprocess's standard input. Closing it
	// signals end of input.
	Stdin io.WriteCloser
	// Stdout is the read end of the subprocess's standard output. It is not
	// closed by Wait, so it can be drained after the process has exited.
	Stdout io.ReadCloser

	cmd     *exec.Cmd
	command Command
	start   time.Time
	done    chan struct{}
	result  *Result
	err     error
}

// Start launches a subprocess and returns once it is running. Failure to
// locate or execute the binary is reported as a setup failure.
// If the context is canceled, SIGTERM is sent to the process group first,
// then SIGKILL after GracePeriod.
func Start(ctx context.Context, cmd Command) (*Process, error) {
	if cmd.Binary == "" {
		return nil, apperrors.InvalidInput("command", "binary is required")
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = defaultGracePeriod
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // running the user's filter is the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stderr = cmd.Stderr
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	// Plain *os.File ends keep exec from interposing copy goroutines, so
	// Wait never closes the pipes the caller is still reading.
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, apperrors.Unexpected("create stdin pipe", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, apperrors.Unexpected("create stdout pipe", err)
	}
	c.Stdin = stdinR
	c.Stdout = stdoutW

	// Use process group so we can kill the entire tree
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Don't let exec.CommandContext kill with SIGKILL immediately
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = gracePeriod

	start := time.Now()
	startErr := c.Start()

	// The child holds its own copies now.
	stdinR.Close()
	stdoutW.Close()

	if startErr != nil {
		stdinW.Close()
		stdoutR.Close()
		return nil, apperrors.SetupFailure(cmd.Binary, startErr)
	}

	p := &Process{
		Stdin:   stdinW,
		Stdout:  stdoutR,
		cmd:     c,
		command: cmd,
		start:   start,
		done:    make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.result = &Result{
		ExitCode: p.cmd.ProcessState.ExitCode(),
		Duration: time.Since(p.start),
	}
	if ws, ok := p.cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		p.result.Signaled = true
		p.result.ExitCode = 128 + int(ws.Signal())
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		p.err = fmt.Errorf("process: wait: %w", err)
	}
	close(p.done)
}

// Wait blocks until the process exits. A non-zero exit status is reported in
// the Result, not as an error.
func (p *Process) Wait() (*Result, error) {
	<-p.done
	return p.result, p.err
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Pid returns the process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Command returns the command the process was started with.
func (p *Process) Command() Command {
	return p.command
}

// Release closes both pipe ends held by the caller. It is safe to call
// after either end was already closed.
func (p *Process) Release() {
	_ = p.Stdin.Close()
	_ = p.Stdout.Close()
}

// Kill sends SIGKILL to the whole process group without a grace period.
func (p *Process) Kill() error {
	return p.signal(syscall.SIGKILL)
}

// Terminate sends SIGTERM to the whole process group.
func (p *Process) Terminate() error {
	return p.signal(syscall.SIGTERM)
}

func (p *Process) signal(sig syscall.Signal) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := syscall.Kill(-p.cmd.Process.Pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("process: signal %v: %w", sig, err)
	}
	return nil
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	env := os.Environ()
	return append(env, extra...)
}
