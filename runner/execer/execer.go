package execer

import (
	"io"

	"github.com/batchd/batchd/common/log/tags"
)

// Execer lets you run one Unix command. It is at the level of os/exec:
// it knows nothing about jobs or sandboxes, only argv, a directory, an
// environment and where output goes. Tests substitute a fake.

type Command struct {
	Argv []string
	// Working directory; the caller's when empty.
	Dir string
	// Added on top of the parent environment, overriding duplicates.
	EnvVars map[string]string
	Stdout  io.Writer
	Stderr  io.Writer
	tags.LogTags
}

type ProcessState int

const (
	UNKNOWN ProcessState = iota
	RUNNING
	COMPLETE
	FAILED
)

func (s ProcessState) IsDone() bool {
	return s == COMPLETE || s == FAILED
}

func (s ProcessState) String() string {
	switch s {
	case RUNNING:
		return "RUNNING"
	case COMPLETE:
		return "COMPLETE"
	case FAILED:
		return "FAILED"
	}
	return "UNKNOWN"
}

type Execer interface {
	Exec(command Command) (Process, error)
}

type Process interface {
	// Poll returns the current status without blocking.
	Poll() ProcessStatus
	// Kill asks the process to terminate and returns without waiting.
	Kill() error
}

// ProcessStatus is COMPLETE with an ExitCode when the process exited, or
// FAILED with an Error when its exit status could not be determined.
type ProcessStatus struct {
	State    ProcessState
	ExitCode int
	Error    string
}
