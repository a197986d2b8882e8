package local

//go:generate mockgen -source=status_sender.go -package=local -destination=status_sender_mock.go

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"

	batchderrors "github.com/batchd/batchd/common/errors"
	"github.com/batchd/batchd/mesos"
	"github.com/batchd/batchd/scheduler/domain"
)

// Messages carried by status reports.
const (
	StartingMessage = "starting"
	StartedMessage  = "started"
	KilledMessage   = "killed"
	FinishedMessage = "finished"

	// Prefix of the JobResult message of a task that was killed.
	JobKilledMessage = "Job was killed"
)

// StatusSender delivers task status reports toward the scheduler.
// Implementations must be safe for concurrent use.
type StatusSender interface {
	SendStatusUpdate(status *mesos.TaskStatus) error
}

// StatusSenderFunc adapts a function to StatusSender.
type StatusSenderFunc func(status *mesos.TaskStatus) error

func (f StatusSenderFunc) SendStatusUpdate(status *mesos.TaskStatus) error {
	return f(status)
}

func timestamp(now time.Time) float64 {
	return float64(now.UnixNano()) / float64(time.Second)
}

func newStatus(taskID string, state mesos.TaskState, message string, now time.Time) *mesos.TaskStatus {
	return &mesos.TaskStatus{
		TaskId:    mesos.NewTaskID(taskID),
		State:     state,
		Message:   message,
		Timestamp: timestamp(now),
	}
}

func startingStatus(taskID string, now time.Time) *mesos.TaskStatus {
	return newStatus(taskID, mesos.TaskState_TASK_STARTING, StartingMessage, now)
}

func startedStatus(taskID string, now time.Time) *mesos.TaskStatus {
	return newStatus(taskID, mesos.TaskState_TASK_RUNNING, StartedMessage, now)
}

// killedStatus reports a task that never produced an observable process.
func killedStatus(taskID string, reason string, now time.Time) *mesos.TaskStatus {
	msg := JobKilledMessage
	if reason != "" {
		msg = fmt.Sprintf("%s: %s", JobKilledMessage, reason)
	}
	return terminalStatus(taskID, mesos.TaskState_TASK_KILLED, KilledMessage,
		int(batchderrors.KilledExitCode), msg, now)
}

// terminalStatus carries a JobResult with the exit code in its data.
func terminalStatus(taskID string, state mesos.TaskState, message string, exitCode int, resultMsg string, now time.Time) *mesos.TaskStatus {
	st := newStatus(taskID, state, message, now)
	data, err := domain.NewJobResult(taskID, exitCode, now, resultMsg).Serialize()
	if err != nil {
		log.WithFields(log.Fields{"taskID": taskID}).Errorf("Couldn't serialize JobResult: %v", err)
		return st
	}
	st.Data = data
	return st
}

// newSendBackOff bounds how long a terminal report is retried.
func newSendBackOff(retries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(b, uint64(retries))
}
