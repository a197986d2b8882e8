package local

import (
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/batchd/batchd/common/stats"
	"github.com/batchd/batchd/mesos"
	"github.com/batchd/batchd/os/temp"
	"github.com/batchd/batchd/runner/execer"
	"github.com/batchd/batchd/scheduler/domain"
)

// DefaultPollInterval is the pause between sweeps, and so the upper bound
// on how long a finished process waits for its terminal report.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultSendRetries bounds the retries of a rejected terminal report.
const DefaultSendRetries = 3

type taskRecord struct {
	proc *LocalProcess
	// set once STARTED has been sent; only announced tasks are swept
	announced bool
}

// ProcessManager runs tasks as local processes and reports their status.
// Launch and kill requests arrive on the caller's goroutine; a separate
// polling goroutine reaps finished processes, so callers never block on a
// running process.
type ProcessManager struct {
	exec        execer.Execer
	stager      FileStager
	sandbox     *temp.TempDir
	interval    time.Duration
	sendRetries int
	stat        stats.StatsReceiver

	mu      sync.Mutex
	tasks   map[string]*taskRecord
	sender  StatusSender
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewProcessManager creates a stopped manager. Task sandboxes are created
// under sandbox. A non-positive interval means DefaultPollInterval.
func NewProcessManager(
	exec execer.Execer, stager FileStager, sandbox *temp.TempDir, interval time.Duration, stat stats.StatsReceiver) *ProcessManager {

	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	if stager == nil {
		stager = NoopStager{}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ProcessManager{
		exec:        exec,
		stager:      stager,
		sandbox:     sandbox,
		interval:    interval,
		sendRetries: DefaultSendRetries,
		stat:        stat.Scope("manager"),
		tasks:       make(map[string]*taskRecord),
	}
}

// SetSendRetries changes how often a rejected terminal report is retried.
func (m *ProcessManager) SetSendRetries(retries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendRetries = retries
}

// Start binds sender and starts the polling loop. If the loop is already
// running only the sender changes.
func (m *ProcessManager) Start(sender StatusSender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sender = sender
	if m.running {
		log.Info("Process manager already running, rebound status sender")
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.loop(m.stopCh, m.doneCh)
	log.Infof("Started process manager, polling every %v", m.interval)
}

// Stop ends the polling loop after its current sweep. Running processes
// are left alone.
func (m *ProcessManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
	log.Info("Stopping process manager")
}

// Wait blocks until the most recently started polling loop has exited.
func (m *ProcessManager) Wait() {
	m.mu.Lock()
	doneCh := m.doneCh
	m.mu.Unlock()
	if doneCh != nil {
		<-doneCh
	}
}

func (m *ProcessManager) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.Poll()
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// StartTask decodes task's payload and starts its process. Every outcome
// is reported: KILLED alone if the task cannot start, otherwise STARTING
// then RUNNING, and a terminal report later from Poll.
// cpus and memMB are the executor's hints; the task's own resources
// decide what the process gets.
func (m *ProcessManager) StartTask(task *mesos.TaskInfo, cpus, memMB int) {
	taskID := task.GetTaskId().GetValue()
	fields := log.Fields{"taskID": taskID, "cpus": cpus, "memMB": memMB}
	m.stat.Counter(stats.TaskLaunchRequestedCounter).Inc(1)
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(fields).Errorf("Panic starting task: %v", r)
			m.abandon(taskID, nil)
			m.stat.Counter(stats.TaskStartFailureCounter).Inc(1)
			m.sendTerminal(killedStatus(taskID, fmt.Sprintf("internal error: %v", r), time.Now()))
		}
	}()
	if log.IsLevelEnabled(log.TraceLevel) {
		log.WithFields(fields).Tracef("Task info: %s", spew.Sdump(task))
	}

	meta, err := domain.DeserializeMetaJob(task.GetData())
	if err == nil && taskID == "" {
		err = errors.New("task has no id")
	}
	if err != nil {
		log.WithFields(fields).Warnf("Invalid payload from scheduler: %v", err)
		m.stat.Counter(stats.TaskInvalidPayloadCounter).Inc(1)
		m.sendTerminal(killedStatus(taskID, "invalid payload", time.Now()))
		return
	}

	proc := NewLocalProcess(task, meta, m.exec, m.stager, m.sandbox)
	rec := &taskRecord{proc: proc}
	if !m.reserve(taskID, rec) {
		log.WithFields(fields).Warn("Task is already running here, ignoring duplicate launch")
		return
	}

	m.send(startingStatus(taskID, time.Now()))
	if err := proc.Start(); err != nil {
		log.WithFields(fields).Errorf("Failed to start task: %v", err)
		m.abandon(taskID, rec)
		m.stat.Counter(stats.TaskStartFailureCounter).Inc(1)
		m.sendTerminal(killedStatus(taskID, err.Error(), time.Now()))
		return
	}
	m.stat.Counter(stats.TaskStartedCounter).Inc(1)
	m.send(startedStatus(taskID, time.Now()))

	m.mu.Lock()
	rec.announced = true
	m.mu.Unlock()
}

// reserve registers rec under taskID unless the id is taken.
func (m *ProcessManager) reserve(taskID string, rec *taskRecord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[taskID]; ok {
		return false
	}
	m.tasks[taskID] = rec
	m.stat.Gauge(stats.TaskRunningGauge).Update(int64(len(m.tasks)))
	return true
}

// abandon removes taskID if it still maps to rec; a nil rec only matches
// an unannounced record.
func (m *ProcessManager) abandon(taskID string, rec *taskRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tasks[taskID]
	if !ok || (rec != nil && cur != rec) || (rec == nil && cur.announced) {
		return
	}
	delete(m.tasks, taskID)
	m.stat.Gauge(stats.TaskRunningGauge).Update(int64(len(m.tasks)))
}

// KillTask asks a tracked task's process to terminate. Unknown and
// already reaped tasks are ignored. The terminal report comes from Poll.
func (m *ProcessManager) KillTask(taskID *mesos.TaskID) {
	id := taskID.GetValue()
	m.stat.Counter(stats.TaskKillRequestedCounter).Inc(1)
	m.mu.Lock()
	rec, ok := m.tasks[id]
	m.mu.Unlock()
	if !ok {
		log.WithFields(log.Fields{"taskID": id}).Info("Kill requested for unknown or finished task")
		return
	}
	if err := rec.proc.Kill(); err != nil {
		log.WithFields(log.Fields{"taskID": id}).Errorf("Error killing task: %v", err)
	}
}

// IsTaskFinished is true for a task that is not tracked, whether it never
// started here or has already been reaped.
func (m *ProcessManager) IsTaskFinished(taskID *mesos.TaskID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[taskID.GetValue()]
	return !ok
}

// NumTasks is the number of tracked tasks.
func (m *ProcessManager) NumTasks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Poll makes one sweep over the announced tasks, removing each finished
// one and sending its terminal report. Only the sweep that removes a task
// reports it.
func (m *ProcessManager) Poll() {
	defer m.stat.Precision(time.Millisecond).Latency(stats.PollSweepLatency_ms).Time().Stop()

	m.mu.Lock()
	snapshot := make(map[string]*taskRecord, len(m.tasks))
	for id, rec := range m.tasks {
		if rec.announced {
			snapshot[id] = rec
		}
	}
	m.mu.Unlock()

	for id, rec := range snapshot {
		if !rec.proc.Poll() {
			continue
		}
		m.mu.Lock()
		cur, ok := m.tasks[id]
		removed := ok && cur == rec
		if removed {
			delete(m.tasks, id)
			m.stat.Gauge(stats.TaskRunningGauge).Update(int64(len(m.tasks)))
		}
		m.mu.Unlock()
		if removed {
			m.reportFinished(id, rec.proc)
		}
	}
}

func (m *ProcessManager) reportFinished(taskID string, proc *LocalProcess) {
	now := time.Now()
	exitCode := proc.ExitCode()
	st := proc.Status()
	m.stat.Precision(time.Millisecond).Latency(stats.TaskRunLatency_ms).Record(proc.Duration())

	var status *mesos.TaskStatus
	switch {
	case proc.KillRequested():
		m.stat.Counter(stats.TaskKilledCounter).Inc(1)
		status = terminalStatus(taskID, mesos.TaskState_TASK_KILLED, KilledMessage, exitCode,
			JobKilledMessage+": kill requested", now)
	case st.State == execer.COMPLETE && exitCode == 0:
		m.stat.Counter(stats.TaskFinishedCounter).Inc(1)
		log.WithFields(proc.Fields()).Info("Task success")
		status = terminalStatus(taskID, mesos.TaskState_TASK_FINISHED, FinishedMessage, exitCode, "", now)
	default:
		m.stat.Counter(stats.TaskFailedCounter).Inc(1)
		log.WithFields(proc.Fields()).Errorf("Task failed with exit code %d", exitCode)
		status = terminalStatus(taskID, mesos.TaskState_TASK_FAILED, FinishedMessage, exitCode, st.Error, now)
	}
	m.sendTerminal(status)
}

func (m *ProcessManager) currentSender() (StatusSender, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sender, m.sendRetries
}

// send delivers a non-terminal report once.
func (m *ProcessManager) send(status *mesos.TaskStatus) {
	m.deliver(status, false)
}

// sendTerminal delivers a terminal report, retrying with backoff.
func (m *ProcessManager) sendTerminal(status *mesos.TaskStatus) {
	m.deliver(status, true)
}

func (m *ProcessManager) deliver(status *mesos.TaskStatus, retry bool) {
	sender, retries := m.currentSender()
	fields := log.Fields{"taskID": status.GetTaskId().GetValue(), "state": status.GetState()}
	if sender == nil {
		log.WithFields(fields).Warn("No status sender bound, dropping report")
		m.stat.Counter(stats.TaskStatusSendFailureCounter).Inc(1)
		return
	}
	op := func() error { return sender.SendStatusUpdate(status) }
	var err error
	if retry {
		err = backoff.Retry(op, newSendBackOff(retries))
	} else {
		err = op()
	}
	if err != nil {
		log.WithFields(fields).Errorf("Failed to send status update: %v", err)
		m.stat.Counter(stats.TaskStatusSendFailureCounter).Inc(1)
		return
	}
	log.WithFields(fields).Debug("Sent status update")
}
