package os

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	batchderrors "github.com/batchd/batchd/common/errors"
	"github.com/batchd/batchd/runner/execer"
)

// Time to wait after SIGTERM before the process group gets SIGKILL.
const DefaultAbortTimeout = 10 * time.Second

// Implements runner/execer.Execer
type osExecer struct {
	abortTimeout time.Duration
}

func NewExecer() execer.Execer {
	return &osExecer{abortTimeout: DefaultAbortTimeout}
}

// NewExecerWithAbortTimeout returns an execer that escalates a Kill to
// SIGKILL after abortTimeout.
func NewExecerWithAbortTimeout(abortTimeout time.Duration) execer.Execer {
	return &osExecer{abortTimeout: abortTimeout}
}

// Start a command and return a process that reaps it in the background.
func (e *osExecer) Exec(command execer.Command) (execer.Process, error) {
	if len(command.Argv) == 0 {
		return nil, fmt.Errorf("No command specified.")
	}

	cmd := exec.Command(command.Argv[0], command.Argv[1:]...)
	cmd.Dir = command.Dir

	// Use the parent environment plus whatever additional env vars are provided.
	cmd.Env = os.Environ()
	for k, v := range command.EnvVars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// Sets pgid of all child processes to cmd's pid
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// *os.File writers are handed to the child directly.
	cmd.Stdout = command.Stdout
	cmd.Stderr = command.Stderr

	if err := cmd.Start(); err != nil {
		return nil, batchderrors.NewError(err, batchderrors.CouldNotExecExitCode)
	}
	if cmd.Process == nil {
		return nil, batchderrors.NewError(fmt.Errorf("no process handle for %v", command.Argv),
			batchderrors.CouldNotExecExitCode)
	}

	log.WithFields(
		log.Fields{
			"pid":    cmd.Process.Pid,
			"argv":   command.Argv,
			"tag":    command.Tag,
			"jobID":  command.JobID,
			"taskID": command.TaskID,
		}).Info("Started process")

	p := newProcess(cmd, e.abortTimeout, command.LogTags)
	go p.reap()
	return p, nil
}
