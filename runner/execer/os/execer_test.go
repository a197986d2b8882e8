package os_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/batchd/batchd/runner/execer"
	os_execer "github.com/batchd/batchd/runner/execer/os"
)

// wait polls p until it is done or the timeout passes.
func wait(p execer.Process, timeout time.Duration) (execer.ProcessStatus, bool) {
	deadline := time.Now().Add(timeout)
	for {
		st := p.Poll()
		if st.State.IsDone() {
			return st, true
		}
		if time.Now().After(deadline) {
			return st, false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExitCodes(t *testing.T) {
	exer := os_execer.NewExecer()

	for _, test := range []struct {
		argv []string
		code int
	}{
		{[]string{"true"}, 0},
		{[]string{"false"}, 1},
		{[]string{"sh", "-c", "exit 7"}, 7},
	} {
		p, err := exer.Exec(execer.Command{Argv: test.argv})
		if err != nil {
			t.Fatalf("Couldn't run %v: %v", test.argv, err)
		}
		status, _ := wait(p, 5*time.Second)
		if status.State != execer.COMPLETE || status.ExitCode != test.code {
			t.Fatalf("Got unexpected status running %v: %v", test.argv, status)
		}
	}
}

func TestOutputEnvAndDir(t *testing.T) {
	exer := os_execer.NewExecer()

	var stdout, stderr bytes.Buffer
	cmd := execer.Command{
		Argv:    []string{"sh", "-c", "echo $GREETING; pwd; echo oops >&2"},
		Dir:     "/",
		EnvVars: map[string]string{"GREETING": "hello world"},
		Stdout:  &stdout,
		Stderr:  &stderr,
	}
	p, err := exer.Exec(cmd)
	if err != nil {
		t.Fatalf("Couldn't run: %v", err)
	}
	status, _ := wait(p, 5*time.Second)
	if status.State != execer.COMPLETE || status.ExitCode != 0 {
		t.Fatalf("Got unexpected status: %v", status)
	}
	if stdout.String() != "hello world\n/\n" {
		t.Fatalf("Unexpected stdout %q", stdout.String())
	}
	if stderr.String() != "oops\n" {
		t.Fatalf("Unexpected stderr %q", stderr.String())
	}
}

func TestPollIsNonBlocking(t *testing.T) {
	exer := os_execer.NewExecer()
	p, err := exer.Exec(execer.Command{Argv: []string{"sleep", "5"}})
	if err != nil {
		t.Fatalf("Couldn't run sleep: %v", err)
	}
	if st := p.Poll(); st.State != execer.RUNNING {
		t.Fatalf("Expected RUNNING, got %v", st)
	}
	if err := p.Kill(); err != nil {
		t.Fatalf("Couldn't kill: %v", err)
	}
	st, ok := wait(p, 5*time.Second)
	if !ok {
		t.Fatal("process survived SIGTERM")
	}
	// SIGTERM
	if st.State != execer.COMPLETE || st.ExitCode != 128+15 {
		t.Fatalf("Unexpected status after kill: %v", st)
	}
	if err := p.Kill(); err != nil {
		t.Fatalf("Kill after exit should be a no-op, got %v", err)
	}
}

func TestKillEscalates(t *testing.T) {
	exer := os_execer.NewExecerWithAbortTimeout(100 * time.Millisecond)
	p, err := exer.Exec(execer.Command{Argv: []string{"sh", "-c", "trap '' TERM; sleep 10"}})
	if err != nil {
		t.Fatalf("Couldn't run: %v", err)
	}
	// give the shell time to install the trap
	time.Sleep(200 * time.Millisecond)
	if err := p.Kill(); err != nil {
		t.Fatalf("Couldn't kill: %v", err)
	}
	if _, ok := wait(p, 5*time.Second); !ok {
		t.Fatal("process survived SIGKILL")
	}
}

func TestBadCommand(t *testing.T) {
	exer := os_execer.NewExecer()
	if _, err := exer.Exec(execer.Command{}); err == nil {
		t.Fatal("Expected error for empty argv")
	}
	_, err := exer.Exec(execer.Command{Argv: []string{"/nonexistent/binary"}})
	if err == nil || !strings.Contains(err.Error(), "nonexistent") {
		t.Fatalf("Expected exec error, got %v", err)
	}
}
