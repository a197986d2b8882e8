package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	batchderrors "github.com/batchd/batchd/common/errors"
	"github.com/batchd/batchd/common/stats"
	"github.com/batchd/batchd/mesos"
	"github.com/batchd/batchd/scheduler/domain"
)

// JobTracker applies task status reports to the jobs that were launched as
// those tasks. It implements runner/local.StatusSender. Once a job is
// tracked, only the tracker changes it.
type JobTracker struct {
	mu         sync.Mutex
	byTask     map[string]*domain.Job
	onTerminal func(*domain.Job)
	stat       stats.StatsReceiver
	// Now stamps transitions; status timestamps are ignored.
	Now func() time.Time
}

// NewJobTracker calls onTerminal, if set, exactly once for each job that
// reaches FINISHED or KILLED through the tracker.
func NewJobTracker(onTerminal func(*domain.Job), stat stats.StatsReceiver) *JobTracker {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &JobTracker{
		byTask:     make(map[string]*domain.Job),
		onTerminal: onTerminal,
		stat:       stat.Scope("tracker"),
		Now:        time.Now,
	}
}

// Track starts following a STARTING job under its task id.
func (t *JobTracker) Track(job *domain.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTask[job.TaskID()] = job
}

// Reject kills a job that will never be launched.
func (t *JobTracker) Reject(job *domain.Job, reason string, now time.Time) {
	t.mu.Lock()
	delete(t.byTask, job.TaskID())
	err := job.Killed(now, nil, reason)
	t.mu.Unlock()
	if err != nil {
		log.WithFields(job.LogTags().Fields()).Errorf("Cannot kill rejected job: %v", err)
		return
	}
	t.terminal(job)
}

// Job returns the job tracked under taskID.
func (t *JobTracker) Job(taskID string) (*domain.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.byTask[taskID]
	return j, ok
}

// Len is the number of jobs still waiting for a terminal report.
func (t *JobTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byTask)
}

func (t *JobTracker) terminal(job *domain.Job) {
	if t.onTerminal != nil {
		t.onTerminal(job)
	}
}

// SendStatusUpdate never fails for reports it cannot apply; they are logged
// and dropped since resending them cannot help.
func (t *JobTracker) SendStatusUpdate(status *mesos.TaskStatus) error {
	taskID := status.GetTaskId().GetValue()
	t.mu.Lock()
	job, ok := t.byTask[taskID]
	if !ok {
		t.mu.Unlock()
		t.stat.Counter(stats.StatusUnknownTaskCounter).Inc(1)
		log.WithFields(log.Fields{"taskID": taskID, "state": status.GetState()}).
			Warn("Status update for unknown task")
		return nil
	}
	fields := job.LogTags().Fields()
	err := t.apply(job, status, t.Now())
	done := job.State().IsTerminal()
	if done {
		delete(t.byTask, taskID)
	}
	t.mu.Unlock()

	if err != nil {
		log.WithFields(fields).Errorf("Cannot apply %s: %v", status.GetState(), err)
		return nil
	}
	log.WithFields(fields).Infof("Job is %s", job.State())
	if done {
		t.terminal(job)
	}
	return nil
}

func (t *JobTracker) apply(job *domain.Job, status *mesos.TaskStatus, now time.Time) error {
	taskID := status.GetTaskId().GetValue()
	switch st := status.GetState(); st {
	case mesos.TaskState_TASK_STAGING, mesos.TaskState_TASK_STARTING:
		if job.State() == domain.Starting {
			return nil
		}
		return job.Starting(taskID, nil, now)
	case mesos.TaskState_TASK_RUNNING:
		return job.Started(taskID, nil, now)
	case mesos.TaskState_TASK_FINISHED, mesos.TaskState_TASK_FAILED:
		if err := t.catchUp(job, taskID, now); err != nil {
			return err
		}
		code, _ := exitCode(status)
		return job.Finished(now, nil, code)
	case mesos.TaskState_TASK_KILLED:
		return job.Killed(now, nil, killReason(status))
	case mesos.TaskState_TASK_LOST:
		return job.Killed(now, nil, fmt.Sprintf("task lost: %s", status.GetMessage()))
	default:
		return errors.Errorf("unexpected task state %v", st)
	}
}

// catchUp moves a job that missed its RUNNING report to STARTED.
func (t *JobTracker) catchUp(job *domain.Job, taskID string, now time.Time) error {
	if job.State() != domain.Starting {
		return nil
	}
	return job.Started(taskID, nil, now)
}

// exitCode reads the JobResult carried by a terminal report. Without one,
// a FINISHED report means 0 and anything else means KilledExitCode.
func exitCode(status *mesos.TaskStatus) (int, string) {
	if res, err := domain.DeserializeJobResult(status.GetData()); err == nil && res.Result != nil {
		return *res.Result, res.Message
	}
	if status.GetState() == mesos.TaskState_TASK_FINISHED {
		return 0, ""
	}
	return int(batchderrors.KilledExitCode), ""
}

func killReason(status *mesos.TaskStatus) string {
	if _, msg := exitCode(status); msg != "" {
		return msg
	}
	if status.GetMessage() != "" {
		return status.GetMessage()
	}
	return "killed"
}
