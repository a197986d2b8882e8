// Package domain holds the jobs and applications batchd schedules, the
// payload handed to workers and the results they report back.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/batchd/batchd/common/log/tags"
	"github.com/batchd/batchd/resource"
)

// MinMemMB is the smallest memory request a job may make.
const MinMemMB = 32

var (
	ErrInvalidJob        = errors.New("invalid job")
	ErrIllegalTransition = errors.New("illegal job state transition")
)

// JobRequest is what a submitter asks to run.
type JobRequest struct {
	AppID        string
	Name         string
	Cmd          string
	Env          map[string]string
	CPU          int
	MemMB        int
	GPU          int
	DiskMB       int
	Ports        int
	Priority     int
	TrustPVFiles bool
}

// Job is a unit of work and its lifecycle. Its fields change only through
// the transition methods, each of which refuses to run from a state it
// does not start from.
type Job struct {
	id       int
	appID    string
	name     string
	cmd      string
	env      map[string]string
	cpu      int
	memMB    int
	gpu      int
	diskMB   int
	ports    int
	priority int
	retry    int
	state    JobState

	scheduled time.Time
	started   time.Time
	finished  time.Time

	result       *int
	reason       *string
	taskID       string
	url          *string
	trustPVFiles bool
}

// NewJob validates req and returns a CREATED job.
func NewJob(req JobRequest) (*Job, error) {
	j := &Job{
		appID:        req.AppID,
		name:         req.Name,
		cmd:          req.Cmd,
		env:          copyEnv(req.Env),
		cpu:          req.CPU,
		memMB:        req.MemMB,
		gpu:          req.GPU,
		diskMB:       req.DiskMB,
		ports:        req.Ports,
		priority:     req.Priority,
		trustPVFiles: req.TrustPVFiles,
		state:        Created,
	}
	if err := j.validate(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Job) validate() error {
	switch {
	case j.appID == "":
		return errors.Wrap(ErrInvalidJob, "appid is required")
	case j.cmd == "":
		return errors.Wrap(ErrInvalidJob, "cmd is required")
	case j.cpu <= 0:
		return errors.Wrapf(ErrInvalidJob, "cpu must be positive, got %d", j.cpu)
	case j.memMB < MinMemMB:
		return errors.Wrapf(ErrInvalidJob, "memMB must be at least %d, got %d", MinMemMB, j.memMB)
	case j.gpu < 0 || j.diskMB < 0 || j.ports < 0:
		return errors.Wrapf(ErrInvalidJob, "gpu, diskMB and ports must not be negative, got %d, %d, %d",
			j.gpu, j.diskMB, j.ports)
	case j.result != nil && j.state != Finished:
		return errors.Wrapf(ErrInvalidJob, "result set on a %s job", j.state)
	case j.reason != nil && j.state != Killed:
		return errors.Wrapf(ErrInvalidJob, "reason set on a %s job", j.state)
	}
	return nil
}

func copyEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	c := make(map[string]string, len(env))
	for k, v := range env {
		c[k] = v
	}
	return c
}

func (j *Job) ID() int                { return j.id }
func (j *Job) AppID() string          { return j.appID }
func (j *Job) Name() string           { return j.name }
func (j *Job) Cmd() string            { return j.cmd }
func (j *Job) Env() map[string]string { return copyEnv(j.env) }
func (j *Job) CPU() int               { return j.cpu }
func (j *Job) MemMB() int             { return j.memMB }
func (j *Job) GPU() int               { return j.gpu }
func (j *Job) DiskMB() int            { return j.diskMB }
func (j *Job) Ports() int             { return j.ports }
func (j *Job) Priority() int          { return j.priority }
func (j *Job) Retry() int             { return j.retry }
func (j *Job) State() JobState        { return j.state }
func (j *Job) ScheduledAt() time.Time { return j.scheduled }
func (j *Job) StartedAt() time.Time   { return j.started }
func (j *Job) FinishedAt() time.Time  { return j.finished }
func (j *Job) TaskID() string         { return j.taskID }
func (j *Job) TrustPVFiles() bool     { return j.trustPVFiles }

// Result is the exit code, present once the job is FINISHED.
func (j *Job) Result() (int, bool) {
	if j.result == nil {
		return 0, false
	}
	return *j.result, true
}

// Reason is why the job was killed.
func (j *Job) Reason() (string, bool) {
	if j.reason == nil {
		return "", false
	}
	return *j.reason, true
}

// URL is the sandbox url, if any transition supplied one.
func (j *Job) URL() (string, bool) {
	if j.url == nil {
		return "", false
	}
	return *j.url, true
}

// ResourceRequest is the amount this job needs from an offer.
func (j *Job) ResourceRequest() resource.Request {
	return resource.Request{
		CPU:    float64(j.cpu),
		MemMB:  j.memMB,
		DiskMB: j.diskMB,
		GPU:    j.gpu,
		Ports:  j.ports,
	}
}

// LogTags identify this job in logs.
func (j *Job) LogTags() tags.LogTags {
	return tags.LogTags{JobID: fmt.Sprint(j.id), TaskID: j.taskID, Tag: j.appID}
}

func (j *Job) check(op string, from ...JobState) error {
	for _, s := range from {
		if j.state == s {
			return nil
		}
	}
	return errors.Wrapf(ErrIllegalTransition, "%s on job %d in state %s", op, j.id, j.state)
}

func (j *Job) setURL(url *string) {
	if url != nil {
		u := *url
		j.url = &u
	}
}

// Schedule assigns the permanent id and queues the job.
func (j *Job) Schedule(id int, now time.Time) error {
	if err := j.check("schedule", Created); err != nil {
		return err
	}
	j.id = id
	j.scheduled = now
	j.state = Queued
	return nil
}

// DoRetry records another attempt for a queued job.
func (j *Job) DoRetry() error {
	if err := j.check("retry", Queued); err != nil {
		return err
	}
	j.retry++
	return nil
}

// Starting records the task the job was dispatched as.
func (j *Job) Starting(taskID string, url *string, now time.Time) error {
	if err := j.check("starting", Queued); err != nil {
		return err
	}
	if taskID == "" {
		return errors.Wrapf(ErrInvalidJob, "starting job %d without a task id", j.id)
	}
	j.taskID = taskID
	j.setURL(url)
	j.started = now
	j.state = Starting
	return nil
}

// Started confirms the process is running. An empty taskID keeps the
// one recorded by Starting.
func (j *Job) Started(taskID string, url *string, now time.Time) error {
	if err := j.check("started", Starting); err != nil {
		return err
	}
	if taskID != "" {
		j.taskID = taskID
	}
	j.setURL(url)
	j.started = now
	j.state = Started
	return nil
}

// Finished records the process exit status.
func (j *Job) Finished(now time.Time, url *string, exitCode int) error {
	if err := j.check("finished", Started); err != nil {
		return err
	}
	code := exitCode
	j.result = &code
	j.setURL(url)
	j.finished = now
	j.state = Finished
	return nil
}

// Killed ends a job that has not finished, with no exit code.
func (j *Job) Killed(now time.Time, url *string, reason string) error {
	if err := j.check("killed", Queued, Starting, Started); err != nil {
		return err
	}
	r := reason
	j.reason = &r
	j.setURL(url)
	j.finished = now
	j.state = Killed
	return nil
}

func (j *Job) String() string {
	s := fmt.Sprintf("{id=%d, name=%s, appid=%s, cmd=%s, env=%v, cpus=%d, mem=%d",
		j.id, j.name, j.appID, j.cmd, j.env, j.cpu, j.memMB)
	if j.gpu > 0 {
		s += fmt.Sprintf(", gpu=%d", j.gpu)
	}
	if j.diskMB > 0 {
		s += fmt.Sprintf(", disk=%d", j.diskMB)
	}
	if j.ports > 0 {
		s += fmt.Sprintf(", ports=%d", j.ports)
	}
	s += fmt.Sprintf(", priority=%d, retry=%d, state=%s", j.priority, j.retry, j.state)
	if j.taskID != "" {
		s += ", taskId=" + j.taskID
	}
	if r, ok := j.Result(); ok {
		s += fmt.Sprintf(", result=%d", r)
	}
	if r, ok := j.Reason(); ok {
		s += ", reason=" + r
	}
	return s + "}"
}

type jobJSON struct {
	ID           int               `json:"id"`
	AppID        string            `json:"appid"`
	Name         string            `json:"name,omitempty"`
	Cmd          string            `json:"cmd"`
	Env          map[string]string `json:"env,omitempty"`
	CPU          int               `json:"cpu"`
	MemMB        int               `json:"memMB"`
	GPU          int               `json:"gpu"`
	DiskMB       int               `json:"diskMB"`
	Ports        int               `json:"ports"`
	Priority     int               `json:"priority"`
	Retry        int               `json:"retry"`
	State        JobState          `json:"state"`
	Scheduled    *time.Time        `json:"scheduled,omitempty"`
	Started      *time.Time        `json:"started,omitempty"`
	Finished     *time.Time        `json:"finished,omitempty"`
	Result       *int              `json:"result,omitempty"`
	Reason       *string           `json:"reason,omitempty"`
	TaskID       string            `json:"taskId,omitempty"`
	URL          *string           `json:"url,omitempty"`
	TrustPVFiles bool              `json:"trustPVFiles"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (j *Job) MarshalJSON() ([]byte, error) {
	return json.Marshal(jobJSON{
		ID:           j.id,
		AppID:        j.appID,
		Name:         j.name,
		Cmd:          j.cmd,
		Env:          j.env,
		CPU:          j.cpu,
		MemMB:        j.memMB,
		GPU:          j.gpu,
		DiskMB:       j.diskMB,
		Ports:        j.ports,
		Priority:     j.priority,
		Retry:        j.retry,
		State:        j.state,
		Scheduled:    timePtr(j.scheduled),
		Started:      timePtr(j.started),
		Finished:     timePtr(j.finished),
		Result:       j.result,
		Reason:       j.reason,
		TaskID:       j.taskID,
		URL:          j.url,
		TrustPVFiles: j.trustPVFiles,
	})
}

// UnmarshalJSON decodes and validates a job. A job that fails validation
// leaves j unchanged.
func (j *Job) UnmarshalJSON(b []byte) error {
	var w jobJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return errors.Wrap(err, "decoding job")
	}
	decoded := Job{
		id:           w.ID,
		appID:        w.AppID,
		name:         w.Name,
		cmd:          w.Cmd,
		env:          w.Env,
		cpu:          w.CPU,
		memMB:        w.MemMB,
		gpu:          w.GPU,
		diskMB:       w.DiskMB,
		ports:        w.Ports,
		priority:     w.Priority,
		retry:        w.Retry,
		state:        w.State,
		scheduled:    timeVal(w.Scheduled),
		started:      timeVal(w.Started),
		finished:     timeVal(w.Finished),
		result:       w.Result,
		reason:       w.Reason,
		taskID:       w.TaskID,
		url:          w.URL,
		trustPVFiles: w.TrustPVFiles,
	}
	if err := decoded.validate(); err != nil {
		return err
	}
	*j = decoded
	return nil
}
