package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/colpipe/errors"
)

// isolate keeps config discovery away from the host's files.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func execute(t *testing.T, input string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut lockedBuffer
	code = run(context.Background(), args, strings.NewReader(input), &out, &errOut)
	return code, out.String(), errOut.String()
}

// lockedBuffer can be read while a flow or the filter's stderr copier that
// outlived an aborted run is still writing to it.
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

// overlapWriter records whether two writes were ever in flight at once.
type overlapWriter struct {
	lockedBuffer
	active  atomic.Int32
	overlap atomic.Bool
}

func (w *overlapWriter) Write(p []byte) (int, error) {
	if w.active.Add(1) > 1 {
		w.overlap.Store(true)
	}
	defer w.active.Add(-1)
	time.Sleep(100 * time.Microsecond)
	return w.lockedBuffer.Write(p)
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		args     []string
		wantCode int
		wantOut  string
	}{
		{"identity", "a\tb\tc\n", []string{"1", "cat"}, 0, "a\tb\tc\n"},
		{"multiply column", "a\t1\tc\nd\t2\tf\n", []string{"1", "awk", "{ print $1 * 10 }"}, 0, "a\t10\tc\nd\t20\tf\n"},
		{"filter flags pass through", "x\ty\n", []string{"0", "sed", "-n", "p"}, 0, "x\ty\n"},
		{"filter exit code", "a\n", []string{"0", "sh", "-c", "cat; exit 5"}, 5, "a\n"},
		{"missing command", "a\n", []string{"0"}, apperrors.ExitUsage, ""},
		{"bad column", "a\n", []string{"first", "cat"}, apperrors.ExitUsage, ""},
		{"negative column", "a\n", []string{"-1", "cat"}, apperrors.ExitUsage, ""},
		{"unknown flag", "a\n", []string{"--bogus", "0", "cat"}, apperrors.ExitUsage, ""},
		{"command not found", "a\n", []string{"0", "colpipe-no-such-filter"}, apperrors.ExitSetup, ""},
		{"filter drops lines", "a\nb\n", []string{"0", "sh", "-c", "cat >/dev/null"}, apperrors.ExitFatal, ""},
		{"column out of range", "a\tb\n", []string{"4", "cat"}, apperrors.ExitFatal, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			code, out, stderr := execute(t, tc.input, tc.args...)
			if code != tc.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", code, tc.wantCode, stderr)
			}
			if out != tc.wantOut {
				t.Errorf("stdout = %q, want %q", out, tc.wantOut)
			}
		})
	}
}

func TestRunReportsDiagnostic(t *testing.T) {
	isolate(t)
	code, _, stderr := execute(t, "a\n", "0", "colpipe-no-such-filter")
	if code != apperrors.ExitSetup {
		t.Fatalf("expected exit %d, got %d", apperrors.ExitSetup, code)
	}
	if !strings.Contains(stderr, "colpipe-no-such-filter") {
		t.Errorf("expected diagnostic naming the command, got %q", stderr)
	}
}

func TestRunUsageOnInvalidInput(t *testing.T) {
	isolate(t)
	_, _, stderr := execute(t, "", "0")
	if !strings.Contains(stderr, "Usage:") {
		t.Errorf("expected usage on stderr, got %q", stderr)
	}
}

func TestRunVersion(t *testing.T) {
	isolate(t)
	code, out, _ := execute(t, "", "--version")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.HasPrefix(out, "colpipe ") {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestRunLogFlags(t *testing.T) {
	isolate(t)
	code, _, stderr := execute(t, "a\n", "--log-level", "debug", "--log-format", "json", "0", "cat")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr)
	}
	if !strings.Contains(stderr, `"message":"run finished"`) {
		t.Errorf("expected JSON debug log on stderr, got %q", stderr)
	}
}

func TestRunConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "colpipe.yml")
	yml := "logging:\n  level: debug\n  format: json\nio:\n  read_buffer: 4KB\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	code, out, stderr := execute(t, "k\tv\n", "--config", path, "1", "cat")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr)
	}
	if out != "k\tv\n" {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(stderr, `"message":"run finished"`) {
		t.Errorf("expected config to enable JSON debug logs, got %q", stderr)
	}
}

func TestRunEnvOverridesConfig(t *testing.T) {
	isolate(t)
	t.Setenv("COLPIPE_LOGGING_LEVEL", "debug")
	t.Setenv("COLPIPE_LOGGING_FORMAT", "json")
	code, _, stderr := execute(t, "a\n", "0", "cat")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr)
	}
	if !strings.Contains(stderr, `"run_id"`) {
		t.Errorf("expected JSON logs with a run id, got %q", stderr)
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	isolate(t)
	code, _, _ := execute(t, "a\n", "--config", filepath.Join(t.TempDir(), "absent.yml"), "0", "cat")
	if code != apperrors.ExitUnexpected {
		t.Errorf("expected exit %d, got %d", apperrors.ExitUnexpected, code)
	}
}

func TestRunInvalidRunID(t *testing.T) {
	isolate(t)
	code, _, _ := execute(t, "a\n", "--run-id", "not-a-uuid", "0", "cat")
	if code != apperrors.ExitUsage {
		t.Errorf("expected exit %d, got %d", apperrors.ExitUsage, code)
	}
}

func TestRunInterrupted(t *testing.T) {
	isolate(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)
	var out, errOut lockedBuffer
	code := run(ctx, []string{"--grace-period", "1s", "0", "sleep", "30"}, strings.NewReader("a\n"), &out, &errOut)
	if code != apperrors.ExitInterrupted {
		t.Errorf("expected exit %d, got %d (stderr: %s)", apperrors.ExitInterrupted, code, errOut.String())
	}
}

func TestRunSerializesStderrWrites(t *testing.T) {
	isolate(t)
	var out lockedBuffer
	var errOut overlapWriter
	script := `i=0; while [ $i -lt 50 ]; do echo noise >&2; i=$((i+1)); done; cat`
	code := run(context.Background(), []string{"--log-level", "debug", "0", "sh", "-c", script},
		strings.NewReader("a\nb\nc\n"), &out, &errOut)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, errOut.String())
	}
	if errOut.overlap.Load() {
		t.Error("log lines and filter stderr were written concurrently")
	}
	if got := strings.Count(errOut.String(), "noise"); got != 50 {
		t.Errorf("expected 50 lines of filter stderr, got %d", got)
	}
	if out.String() != "a\nb\nc\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRunFatalWithNoisyFilter(t *testing.T) {
	isolate(t)
	script := `echo noise >&2; cat; echo extra; while :; do echo noise >&2; done`
	code, _, stderr := execute(t, "a\n", "--log-level", "debug", "0", "sh", "-c", script)
	if code != apperrors.ExitFatal {
		t.Fatalf("expected exit %d, got %d", apperrors.ExitFatal, code)
	}
	if !strings.Contains(stderr, string(apperrors.ErrCodeRowCountExcess)) {
		t.Errorf("expected excess diagnostic, got %q", stderr)
	}
}
