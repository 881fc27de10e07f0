package native

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunExecutablePassthrough(t *testing.T) {
	out, err := RunExecutable("/bin/sh", RunOptions{
		Args: []string{"-c", `echo "$1 $2"; cat`, "argv0", "alpha", "beta"},
		Stdin: []byte("from stdin\n"),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.ExitCode != 0 {
		t.Fatalf("exit code = %d", out.ExitCode)
	}
	if !strings.Contains(out.Stdout, "alpha beta") {
		t.Fatalf("args not passed through: %q", out.Stdout)
	}
	if !strings.Contains(out.Stdout, "from stdin") {
		t.Fatalf("stdin not injected: %q", out.Stdout)
	}
}

func TestRunExecutableExitCode(t *testing.T) {
	out, err := RunExecutable("/bin/sh", RunOptions{Args: []string{"-c", "exit 42"}})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.ExitCode != 42 {
		t.Fatalf("exit code = %d, want 42", out.ExitCode)
	}
}

func TestRunExecutableTimeoutKillsProcessGroup(t *testing.T) {
	start := time.Now()
	out, err := RunExecutable("/bin/sh", RunOptions{
		// The child spawns its own descendant; the group kill must take
		// both down.
		Args:    []string{"-c", "sleep 30 & sleep 30"},
		Timeout: 200 * time.Millisecond,
	})
	elapsed := time.Since(start)

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if out.ExitCode != ExitCodeTimeout {
		t.Fatalf("exit code = %d, want %d", out.ExitCode, ExitCodeTimeout)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("watchdog too slow: %v", elapsed)
	}
}

func TestRunExecutableMissingBinary(t *testing.T) {
	_, err := RunExecutable("/nonexistent/kooix-binary", RunOptions{})
	if err == nil {
		t.Fatal("missing binary not reported")
	}
}
