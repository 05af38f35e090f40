package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/colpipe/errors"
	"github.com/kbukum/colpipe/logger"
	"github.com/kbukum/colpipe/process"
)

func sh(script string) process.Command {
	return process.Command{Binary: "sh", Args: []string{"-c", script}, GracePeriod: time.Second}
}

func runJob(t *testing.T, col int, cmd process.Command, input string) (*Result, string, error) {
	t.Helper()
	var out lockedBuffer
	res, err := NewRunner(WithLogger(logger.Nop())).Run(context.Background(), Job{
		Column:  col,
		Command: cmd,
		Input:   strings.NewReader(input),
		Output:  &out,
	})
	return res, out.String(), err
}

// lockedBuffer can be read while a merger left behind by a fatal run is
// still flushing into it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunRewritesColumn(t *testing.T) {
	tests := []struct {
		name   string
		column int
		cmd    process.Command
		input  string
		want   string
	}{
		{
			name:   "identity",
			column: 1,
			cmd:    process.Command{Binary: "cat"},
			input:  "a\tb\tc\nd\te\tf\n",
			want:   "a\tb\tc\nd\te\tf\n",
		},
		{
			name:   "uppercase first column",
			column: 0,
			cmd:    process.Command{Binary: "tr", Args: []string{"a-z", "A-Z"}},
			input:  "ab\tcd\nef\tgh\n",
			want:   "AB\tcd\nEF\tgh\n",
		},
		{
			name:   "last column",
			column: 2,
			cmd:    process.Command{Binary: "sed", Args: []string{"s/x/y/"}},
			input:  "1\t2\tx\n3\t4\txx\n",
			want:   "1\t2\ty\n3\t4\tyx\n",
		},
		{
			name:   "single field lines",
			column: 0,
			cmd:    process.Command{Binary: "cat"},
			input:  "one\ntwo\n",
			want:   "one\ntwo\n",
		},
		{
			name:   "empty fields kept",
			column: 1,
			cmd:    sh(`sed 's/^$/-/'`),
			input:  "a\t\tc\n\t\t\n",
			want:   "a\t-\tc\n\t-\t\n",
		},
		{
			name:   "unterminated final line",
			column: 1,
			cmd:    process.Command{Binary: "cat"},
			input:  "a\tb\nc\td",
			want:   "a\tb\nc\td\n",
		},
		{
			name:   "empty input",
			column: 3,
			cmd:    process.Command{Binary: "cat"},
			input:  "",
			want:   "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, out, err := runJob(t, tc.column, tc.cmd, tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != tc.want {
				t.Errorf("output = %q, want %q", out, tc.want)
			}
			if res.ExitCode != 0 {
				t.Errorf("expected exit code 0, got %d", res.ExitCode)
			}
			if res.Stats.LinesSplit != res.Stats.LinesMerged {
				t.Errorf("split %d lines but merged %d", res.Stats.LinesSplit, res.Stats.LinesMerged)
			}
		})
	}
}

func TestRunLargeInput(t *testing.T) {
	var in strings.Builder
	const n = 100000
	for i := 0; i < n; i++ {
		fmt.Fprintf(&in, "row%d\t%d\t%s\n", i, i*7, strings.Repeat("z", i%40))
	}
	res, out, err := runJob(t, 1, process.Command{Binary: "cat"}, in.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != in.String() {
		t.Fatal("output differs from input for an identity filter")
	}
	if res.Stats.LinesSplit != n || res.Stats.LinesMerged != n {
		t.Errorf("expected %d lines each way, got %+v", n, res.Stats)
	}
	if res.Stats.QueueHighWater < 1 {
		t.Errorf("expected a queue high-water mark, got %d", res.Stats.QueueHighWater)
	}
}

func TestRunSlowFilterBuffersInput(t *testing.T) {
	// The filter reads everything before writing anything, so every
	// remainder is queued at once.
	var in strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&in, "%d\tv%d\n", i, i)
	}
	spool := filepath.Join(t.TempDir(), "spool")
	cmd := process.Command{Binary: "sh", Args: []string{"-c", `cat > "$1"; cat "$1"`, "sh", spool}, GracePeriod: time.Second}
	res, out, err := runJob(t, 1, cmd, in.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stats.QueueHighWater != 500 {
		t.Errorf("expected all 500 remainders queued, got %d", res.Stats.QueueHighWater)
	}
	if out != in.String() {
		t.Errorf("output differs from input after buffering filter")
	}
}

func TestRunPropagatesExitCode(t *testing.T) {
	res, out, err := runJob(t, 0, sh(`cat; exit 3`), "a\tb\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 || res.Signaled {
		t.Errorf("expected exit code 3, got %+v", res)
	}
	if out != "a\tb\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRunSignaledFilter(t *testing.T) {
	res, _, err := runJob(t, 0, sh(`cat >/dev/null; kill -9 $$`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Signaled || res.ExitCode != 128+9 {
		t.Errorf("expected SIGKILL exit 137, got %+v", res)
	}
}

func TestRunFatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		column int
		cmd    process.Command
		input  string
		code   apperrors.ErrorCode
	}{
		{"column out of range", 1, process.Command{Binary: "cat"}, "a\tb\nc\n", apperrors.ErrCodeColumnOutOfRange},
		{"filter emits extra line", 0, sh(`cat; echo extra`), "x\n", apperrors.ErrCodeRowCountExcess},
		{"filter drops lines", 0, sh(`cat >/dev/null; echo one`), "a\nb\nc\n", apperrors.ErrCodeRowCountDeficit},
		{"filter emits without input", 0, sh(`echo surprise`), "", apperrors.ErrCodeRowCountExcess},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := NewRunner(WithLogger(logger.Nop())).Run(context.Background(), Job{
				Column:  tc.column,
				Command: tc.cmd,
				Input:   strings.NewReader(tc.input),
				Output:  &out,
			})
			if apperrors.CodeOf(err) != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if !apperrors.IsFatal(err) || apperrors.ExitCode(err) != apperrors.ExitFatal {
				t.Errorf("expected fatal exit code %d, got %d", apperrors.ExitFatal, apperrors.ExitCode(err))
			}
		})
	}
}

func TestRunColumnOutOfRangeReportsLine(t *testing.T) {
	_, _, err := runJob(t, 2, process.Command{Binary: "cat"}, "a\tb\tc\nd\te\tf\ng\th\n")
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Details["line"] != int64(3) || appErr.Details["fields"] != 2 {
		t.Errorf("unexpected details %v", appErr.Details)
	}
	if !strings.Contains(appErr.Message, "line 3") {
		t.Errorf("expected message to name line 3, got %q", appErr.Message)
	}
}

func TestRunSetupFailure(t *testing.T) {
	_, _, err := runJob(t, 0, process.Command{Binary: "colpipe-no-such-filter"}, "a\n")
	if apperrors.CodeOf(err) != apperrors.ErrCodeSetupFailure {
		t.Fatalf("expected SETUP_FAILURE, got %v", err)
	}
	if apperrors.IsFatal(err) {
		t.Error("setup failure must not be fatal")
	}
	if apperrors.ExitCode(err) != apperrors.ExitSetup {
		t.Errorf("expected exit code %d, got %d", apperrors.ExitSetup, apperrors.ExitCode(err))
	}
}

func TestRunRejectsNegativeColumn(t *testing.T) {
	_, _, err := runJob(t, -1, process.Command{Binary: "cat"}, "a\n")
	if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

type panicReader struct{}

func (panicReader) Read([]byte) (int, error) { panic("reader exploded") }

func TestRunRecoversWorkerPanic(t *testing.T) {
	var out bytes.Buffer
	_, err := NewRunner(WithLogger(logger.Nop())).Run(context.Background(), Job{
		Command: process.Command{Binary: "cat"},
		Input:   panicReader{},
		Output:  &out,
	})
	if apperrors.CodeOf(err) != apperrors.ErrCodeUnexpected {
		t.Fatalf("expected UNEXPECTED, got %v", err)
	}
	if apperrors.ExitCode(err) != apperrors.ExitFatal {
		t.Errorf("expected escalated exit code %d, got %d", apperrors.ExitFatal, apperrors.ExitCode(err))
	}
}

func TestRunInputErrorIsFatal(t *testing.T) {
	var out bytes.Buffer
	_, err := NewRunner(WithLogger(logger.Nop())).Run(context.Background(), Job{
		Command: process.Command{Binary: "cat"},
		Input:   failingReader{fmt.Errorf("device gone")},
		Output:  &out,
	})
	if apperrors.CodeOf(err) != apperrors.ErrCodeUnexpected || !apperrors.IsFatal(err) {
		t.Fatalf("expected fatal UNEXPECTED, got %v", err)
	}
}

func TestRunInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	var out bytes.Buffer
	start := time.Now()
	_, err := NewRunner(WithLogger(logger.Nop())).Run(ctx, Job{
		Command: sh(`sleep 30`),
		Input:   strings.NewReader("a\n"),
		Output:  &out,
	})
	if apperrors.CodeOf(err) != apperrors.ErrCodeInterrupted {
		t.Fatalf("expected INTERRUPTED, got %v", err)
	}
	if apperrors.ExitCode(err) != apperrors.ExitInterrupted {
		t.Errorf("expected exit code %d, got %d", apperrors.ExitInterrupted, apperrors.ExitCode(err))
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("interrupt took too long: %s", elapsed)
	}
}

func TestRunLogsWithRunID(t *testing.T) {
	var logs lockedBuffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, "colpipe", &logs)
	runID := uuid.NewString()

	var out bytes.Buffer
	res, err := NewRunner(WithLogger(log)).Run(context.Background(), Job{
		Column:  0,
		Command: process.Command{Binary: "cat"},
		Input:   strings.NewReader("x\n"),
		Output:  &out,
		RunID:   runID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RunID != runID {
		t.Errorf("expected run id %s, got %s", runID, res.RunID)
	}

	var finished map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		if entry["message"] == "run finished" {
			finished = entry
		}
	}
	if finished == nil {
		t.Fatalf("no 'run finished' entry in %s", logs.String())
	}
	if finished[logger.FieldRunID] != runID {
		t.Errorf("expected run_id %s, got %v", runID, finished[logger.FieldRunID])
	}
	if finished[logger.FieldComponent] != logger.ComponentOrchestrator {
		t.Errorf("expected orchestrator component, got %v", finished[logger.FieldComponent])
	}
	if finished["lines_merged"] != float64(1) {
		t.Errorf("expected lines_merged 1, got %v", finished["lines_merged"])
	}
}

func TestRunGeneratesRunID(t *testing.T) {
	res, _, err := runJob(t, 0, process.Command{Binary: "cat"}, "x\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(res.RunID); err != nil {
		t.Errorf("expected generated UUID, got %q", res.RunID)
	}
}

type recordingStarter struct {
	proc *process.Process
}

func (s *recordingStarter) Start(ctx context.Context, cmd process.Command) (*process.Process, error) {
	p, err := process.Start(ctx, cmd)
	s.proc = p
	return p, err
}

func TestRunFatalReleasesPipes(t *testing.T) {
	starter := &recordingStarter{}
	_, err := NewRunner(WithStarter(starter), WithLogger(logger.Nop())).Run(context.Background(), Job{
		Column:  0,
		Command: sh(`cat; echo extra`),
		Input:   strings.NewReader("x\n"),
		Output:  io.Discard,
	})
	if apperrors.CodeOf(err) != apperrors.ErrCodeRowCountExcess {
		t.Fatalf("expected ROW_COUNT_EXCESS, got %v", err)
	}
	if _, err := starter.proc.Stdout.Read(make([]byte, 1)); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected subprocess stdout to be closed, got %v", err)
	}
	if _, err := starter.proc.Stdin.Write([]byte("y\n")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected subprocess stdin to be closed, got %v", err)
	}
}
