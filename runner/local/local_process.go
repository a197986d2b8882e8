package local

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	batchderrors "github.com/batchd/batchd/common/errors"
	"github.com/batchd/batchd/common/log/tags"
	"github.com/batchd/batchd/mesos"
	"github.com/batchd/batchd/os/temp"
	"github.com/batchd/batchd/resource"
	"github.com/batchd/batchd/runner/execer"
	"github.com/batchd/batchd/scheduler/domain"
)

// Sandbox-relative output files.
const (
	StdoutFile = "stdout"
	StderrFile = "stderr"
)

// LocalProcess owns the one OS process of one task. All methods are
// serialized; Start may run on a launch goroutine while Poll runs on the
// polling goroutine.
type LocalProcess struct {
	mu sync.Mutex

	task   *mesos.TaskInfo
	meta   *domain.MetaJob
	exec   execer.Execer
	stager FileStager
	root   *temp.TempDir

	sandbox *temp.TempDir
	proc    execer.Process
	stdout  *os.File
	stderr  *os.File

	start         time.Time
	end           time.Time
	done          bool
	status        execer.ProcessStatus
	killRequested bool
	tags.LogTags
}

// NewLocalProcess prepares a process for task; nothing runs until Start.
// The task sandbox is a directory named by the task id under root.
func NewLocalProcess(task *mesos.TaskInfo, meta *domain.MetaJob, exec execer.Execer, stager FileStager, root *temp.TempDir) *LocalProcess {
	lt := meta.Job.LogTags()
	lt.TaskID = task.GetTaskId().GetValue()
	return &LocalProcess{
		task:    task,
		meta:    meta,
		exec:    exec,
		stager:  stager,
		root:    root,
		LogTags: lt,
	}
}

// Start stages files, prepares the sandbox and spawns `sh -c <cmd>`.
// Nothing is spawned if any step before the spawn fails.
func (p *LocalProcess) Start() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			p.closeOutputs()
			err = errors.Errorf("panic starting task %s: %v", p.TaskID, r)
		}
	}()

	if p.proc != nil || p.done {
		return errors.Errorf("task %s already started", p.TaskID)
	}
	if p.killRequested {
		return errors.Errorf("task %s was killed before it started", p.TaskID)
	}

	res := resource.Decode(p.task.GetResources())
	sandbox, err := p.root.FixedDir(p.TaskID)
	if err != nil {
		return batchderrors.Wrap(err, batchderrors.PreProcessingFailureExitCode, "creating sandbox")
	}
	p.sandbox = sandbox

	job := p.meta.Job
	if err := p.stager.FetchPersistentFiles(p.meta.App.PersistentFiles, sandbox.Dir, job.TrustPVFiles()); err != nil {
		log.WithFields(p.Fields()).Errorf("Cannot fetch persistent files: %v", err)
		return batchderrors.Wrap(err, batchderrors.PreProcessingFailureExitCode, "fetching persistent files")
	}

	env := NewEnvBuilder(res, sandbox.Dir).PutAll(job.Env()).Build()

	if p.stdout, err = os.Create(sandbox.Path(StdoutFile)); err != nil {
		return batchderrors.Wrap(err, batchderrors.PreProcessingFailureExitCode, "creating stdout")
	}
	if p.stderr, err = os.Create(sandbox.Path(StderrFile)); err != nil {
		p.closeOutputs()
		return batchderrors.Wrap(err, batchderrors.PreProcessingFailureExitCode, "creating stderr")
	}

	log.WithFields(p.Fields()).Infof("Running command: %s (resources %s)", job.Cmd(), res)
	p.start = time.Now()
	proc, err := p.exec.Exec(execer.Command{
		Argv:    []string{"sh", "-c", job.Cmd()},
		Dir:     sandbox.Dir,
		EnvVars: env,
		Stdout:  p.stdout,
		Stderr:  p.stderr,
		LogTags: p.LogTags,
	})
	if err != nil {
		p.closeOutputs()
		return errors.Wrapf(err, "could not exec %q", job.Cmd())
	}
	if proc == nil {
		p.closeOutputs()
		return errors.Errorf("failed to start process: %s", job.Cmd())
	}
	p.proc = proc
	return nil
}

func (p *LocalProcess) closeOutputs() {
	if p.stdout != nil {
		p.stdout.Close()
		p.stdout = nil
	}
	if p.stderr != nil {
		p.stderr.Close()
		p.stderr = nil
	}
}

// Poll reports whether the process has exited, without blocking.
func (p *LocalProcess) Poll() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return true
	}
	if p.proc == nil {
		return false
	}
	st := p.proc.Poll()
	if !st.State.IsDone() {
		return false
	}
	p.done = true
	p.status = st
	p.end = time.Now()
	p.closeOutputs()
	log.WithFields(p.Fields()).Infof("Command finished in %v with %v", p.end.Sub(p.start), st)
	return true
}

// Kill asks the process to terminate. It does not wait for it. A kill
// that arrives before Start is remembered and Start then spawns nothing.
func (p *LocalProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil
	}
	p.killRequested = true
	if p.proc == nil {
		return nil
	}
	return p.proc.Kill()
}

// ExitCode is valid once Poll has returned true. A process whose exit
// status could not be read reports KilledExitCode.
func (p *LocalProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.State == execer.FAILED {
		return int(batchderrors.KilledExitCode)
	}
	return p.status.ExitCode
}

func (p *LocalProcess) Status() execer.ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *LocalProcess) KillRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killRequested
}

// Duration is the observed run time; zero until Poll has returned true.
func (p *LocalProcess) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done {
		return 0
	}
	return p.end.Sub(p.start)
}

// Sandbox is the task's working directory, empty before Start.
func (p *LocalProcess) Sandbox() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sandbox == nil {
		return ""
	}
	return p.sandbox.Dir
}
