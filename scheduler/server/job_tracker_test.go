package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchd/batchd/common/stats"
	"github.com/batchd/batchd/mesos"
	"github.com/batchd/batchd/scheduler/domain"
)

func startingJob(t *testing.T, id int, taskID string) *domain.Job {
	j := queuedJob(t, id, 0, domain.JobRequest{})
	require.NoError(t, j.Starting(taskID, nil, now))
	return j
}

func report(taskID string, state mesos.TaskState, code *int, msg string) *mesos.TaskStatus {
	st := &mesos.TaskStatus{TaskId: mesos.NewTaskID(taskID), State: state, Message: msg}
	if code != nil {
		data, _ := domain.NewJobResult(taskID, *code, now, msg).Serialize()
		st.Data = data
	}
	return st
}

func intPtr(i int) *int { return &i }

func newTracker(terminal *[]*domain.Job) *JobTracker {
	tr := NewJobTracker(func(j *domain.Job) { *terminal = append(*terminal, j) }, stats.DefaultStatsReceiver())
	tr.Now = func() time.Time { return now.Add(time.Minute) }
	return tr
}

func TestTrackerSuccessfulRun(t *testing.T) {
	var terminal []*domain.Job
	tr := newTracker(&terminal)
	j := startingJob(t, 1, "t1")
	tr.Track(j)

	assert.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_STARTING, nil, "starting")))
	assert.Equal(t, domain.Starting, j.State())
	assert.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_RUNNING, nil, "started")))
	assert.Equal(t, domain.Started, j.State())
	assert.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_FINISHED, intPtr(0), "finished")))
	assert.Equal(t, domain.Finished, j.State())
	code, ok := j.Result()
	assert.True(t, ok)
	assert.Equal(t, 0, code)
	assert.Equal(t, now.Add(time.Minute), j.FinishedAt())

	assert.Equal(t, []*domain.Job{j}, terminal)
	assert.Equal(t, 0, tr.Len())

	// late duplicates go nowhere
	assert.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_FINISHED, intPtr(0), "finished")))
	assert.Len(t, terminal, 1)
}

func TestTrackerFailedRunFinishesWithCode(t *testing.T) {
	var terminal []*domain.Job
	tr := newTracker(&terminal)
	j := startingJob(t, 1, "t1")
	tr.Track(j)

	// RUNNING was never seen
	assert.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_FAILED, intPtr(7), "finished")))
	assert.Equal(t, domain.Finished, j.State())
	code, _ := j.Result()
	assert.Equal(t, 7, code)
	assert.Len(t, terminal, 1)
}

func TestTrackerKilled(t *testing.T) {
	var terminal []*domain.Job
	tr := newTracker(&terminal)
	j := startingJob(t, 1, "t1")
	tr.Track(j)

	assert.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_KILLED, intPtr(-42), "Job was killed: invalid payload")))
	assert.Equal(t, domain.Killed, j.State())
	reason, ok := j.Reason()
	assert.True(t, ok)
	assert.Equal(t, "Job was killed: invalid payload", reason)
	_, hasResult := j.Result()
	assert.False(t, hasResult)
	assert.Len(t, terminal, 1)
}

func TestTrackerLost(t *testing.T) {
	var terminal []*domain.Job
	tr := newTracker(&terminal)
	j := startingJob(t, 1, "t1")
	tr.Track(j)
	require.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_RUNNING, nil, "")))
	require.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_LOST, nil, "agent gone")))

	assert.Equal(t, domain.Killed, j.State())
	reason, _ := j.Reason()
	assert.Equal(t, "task lost: agent gone", reason)
}

func TestTrackerFinishedWithoutResult(t *testing.T) {
	var terminal []*domain.Job
	tr := newTracker(&terminal)
	ok := startingJob(t, 1, "ok")
	bad := startingJob(t, 2, "bad")
	tr.Track(ok)
	tr.Track(bad)

	require.NoError(t, tr.SendStatusUpdate(report("ok", mesos.TaskState_TASK_FINISHED, nil, "")))
	require.NoError(t, tr.SendStatusUpdate(report("bad", mesos.TaskState_TASK_FAILED, nil, "")))
	code, _ := ok.Result()
	assert.Equal(t, 0, code)
	code, _ = bad.Result()
	assert.Equal(t, -42, code)
}

func TestTrackerUnknownTask(t *testing.T) {
	var terminal []*domain.Job
	stat := stats.DefaultStatsReceiver()
	tr := NewJobTracker(func(j *domain.Job) { terminal = append(terminal, j) }, stat)
	assert.NoError(t, tr.SendStatusUpdate(report("ghost", mesos.TaskState_TASK_FINISHED, intPtr(0), "")))
	assert.Empty(t, terminal)
	assert.Equal(t, int64(1), stat.Scope("tracker").Counter(stats.StatusUnknownTaskCounter).Count())
}

func TestTrackerIllegalReportLeavesJob(t *testing.T) {
	var terminal []*domain.Job
	tr := newTracker(&terminal)
	j := startingJob(t, 1, "t1")
	tr.Track(j)
	require.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_RUNNING, nil, "")))

	// a second RUNNING is an illegal transition; it is logged and dropped
	assert.NoError(t, tr.SendStatusUpdate(report("t1", mesos.TaskState_TASK_RUNNING, nil, "")))
	assert.Equal(t, domain.Started, j.State())
	_, tracked := tr.Job("t1")
	assert.True(t, tracked)
	assert.Empty(t, terminal)
}

func TestTrackerReject(t *testing.T) {
	var terminal []*domain.Job
	tr := newTracker(&terminal)
	j := queuedJob(t, 1, 0, domain.JobRequest{})
	tr.Reject(j, "no such app", now)
	assert.Equal(t, domain.Killed, j.State())
	assert.Equal(t, []*domain.Job{j}, terminal)

	// already terminal, no second callback
	tr.Reject(j, "again", now)
	assert.Len(t, terminal, 1)
}
