package os

import (
	"os/exec"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	batchderrors "github.com/batchd/batchd/common/errors"
	"github.com/batchd/batchd/common/log/tags"
	"github.com/batchd/batchd/runner/execer"
)

// Implements runner/execer.Process
type process struct {
	cmd          *exec.Cmd
	abortTimeout time.Duration
	done         chan struct{}
	mutex        sync.Mutex
	result       *execer.ProcessStatus
	killed       bool
	tags.LogTags
}

func newProcess(cmd *exec.Cmd, abortTimeout time.Duration, lt tags.LogTags) *process {
	return &process{
		cmd:          cmd,
		abortTimeout: abortTimeout,
		done:         make(chan struct{}),
		LogTags:      lt,
	}
}

// reap waits for the process and records how it ended.
// If the command finishes without error the status is COMPLETE with exit code 0.
// If it fails and we can get a WaitStatus, it is COMPLETE with the failing exit code,
// or 128+signal when a signal ended it. Otherwise it is FAILED with the error.
func (p *process) reap() {
	err := p.cmd.Wait()
	result := statusFromWait(err)

	log.WithFields(
		log.Fields{
			"pid":      p.cmd.Process.Pid,
			"tag":      p.Tag,
			"jobID":    p.JobID,
			"taskID":   p.TaskID,
			"state":    result.State,
			"exitCode": result.ExitCode,
		}).Info("Finished waiting for process")

	p.mutex.Lock()
	p.result = &result
	p.mutex.Unlock()
	close(p.done)
}

func statusFromWait(err error) (result execer.ProcessStatus) {
	if err == nil {
		result.State = execer.COMPLETE
		result.ExitCode = 0
		return result
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			result.State = execer.COMPLETE
			if status.Signaled() {
				result.ExitCode = int(batchderrors.SignalExitCodeBase) + int(status.Signal())
			} else {
				result.ExitCode = status.ExitStatus()
			}
			return result
		}
		result.State = execer.FAILED
		result.Error = "Could not find WaitStatus from exiterr.Sys()"
		return result
	}
	result.State = execer.FAILED
	result.Error = err.Error()
	return result
}

func (p *process) Poll() execer.ProcessStatus {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.result != nil {
		return *p.result
	}
	return execer.ProcessStatus{State: execer.RUNNING}
}

// Kill sends SIGTERM to the process group, allowing for graceful exit, and
// SIGKILL once the abort timeout passes without the process being reaped.
func (p *process) Kill() error {
	p.mutex.Lock()
	if p.result != nil || p.killed {
		p.mutex.Unlock()
		return nil
	}
	p.killed = true
	p.mutex.Unlock()

	pid := p.cmd.Process.Pid
	fields := log.Fields{
		"pid":    pid,
		"tag":    p.Tag,
		"jobID":  p.JobID,
		"taskID": p.TaskID,
	}
	if err := signalGroup(pid, unix.SIGTERM); err != nil {
		log.WithFields(fields).Errorf("Error aborting command via SIGTERM: %s", err)
		return err
	}
	log.WithFields(fields).Info("Aborting process via SIGTERM")

	go func() {
		select {
		case <-p.done:
		case <-time.After(p.abortTimeout):
			log.WithFields(fields).Infof("%v timeout exceeded, sending SIGKILL", p.abortTimeout)
			if err := signalGroup(pid, unix.SIGKILL); err != nil {
				log.WithFields(fields).Errorf("Error killing process group: %s", err)
			}
		}
	}()
	return nil
}

// signalGroup signals the process group led by pid; a group that is already
// gone is not an error.
func signalGroup(pid int, sig unix.Signal) error {
	err := unix.Kill(-pid, sig)
	if err == unix.ESRCH {
		return nil
	}
	return err
}
