// Package localbatch runs batch jobs on this host: jobs are queued, placed
// on an offer describing the host's spare capacity, run by a ProcessManager
// and followed until they finish or are killed.
package localbatch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/batchd/batchd/common/stats"
	"github.com/batchd/batchd/mesos"
	"github.com/batchd/batchd/os/temp"
	"github.com/batchd/batchd/resource"
	"github.com/batchd/batchd/runner/execer"
	"github.com/batchd/batchd/runner/local"
	"github.com/batchd/batchd/scheduler/domain"
	"github.com/batchd/batchd/scheduler/server"
	"github.com/batchd/batchd/worker/worker/config"
)

// Driver owns one local scheduling session.
type Driver struct {
	cfg     config.WorkerConfigs
	agentID string

	queue   *server.JobQueue
	apps    *server.AppRegistry
	tracker *server.JobTracker
	planner *server.Planner
	pm      *local.ProcessManager

	mu       sync.Mutex
	capacity resource.Resource
	free     resource.Resource
	assigned map[string]resource.Resource
	nextID   int
	pending  int
	finished []*domain.Job
	wake     chan struct{}
	offers   int
}

// NewDriver wires a session from cfg. Task sandboxes go under root.
func NewDriver(cfg config.WorkerConfigs, exec execer.Execer, stager local.FileStager, root *temp.TempDir, stat stats.StatsReceiver) *Driver {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	agentID, err := os.Hostname()
	if err != nil || agentID == "" {
		agentID = "localhost"
	}
	d := &Driver{
		cfg:      cfg,
		agentID:  agentID,
		capacity: Capacity(cfg.Offer),
		assigned: make(map[string]resource.Resource),
		nextID:   1,
		wake:     make(chan struct{}, 1),
	}
	d.free = d.capacity
	d.queue = server.NewJobQueue(stat)
	d.apps = server.NewAppRegistry()
	d.tracker = server.NewJobTracker(d.onTerminal, stat)
	d.planner = server.NewPlanner(d.queue, d.apps, d.tracker, stat)
	if cfg.LaunchRate > 0 {
		d.planner.Limiter = rate.NewLimiter(rate.Limit(cfg.LaunchRate), cfg.LaunchBurst)
	}
	d.pm = local.NewProcessManager(exec, stager, root, cfg.PollInterval, stat)
	d.pm.SetSendRetries(cfg.SendRetries)
	return d
}

// Capacity is the resource an offer config describes.
func Capacity(o config.OfferConfig) resource.Resource {
	r := resource.Resource{CPU: o.CPUs, MemMB: o.MemMB, DiskMB: o.DiskMB, GPU: o.GPUs}
	if o.PortsEnd != 0 {
		r.Ports = []resource.Range{{Begin: o.PortsBegin, End: o.PortsEnd}}
	}
	return r
}

func (d *Driver) RegisterApp(app *domain.Application) error {
	return d.apps.Register(app)
}

// Submit queues a new job. Jobs that could never fit this host are refused.
func (d *Driver) Submit(req domain.JobRequest) (*domain.Job, error) {
	job, err := domain.NewJob(req)
	if err != nil {
		return nil, err
	}
	if !d.capacity.Covers(job.ResourceRequest()) {
		return nil, errors.Errorf("job needs more than this host offers (%s)", d.capacity)
	}
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.mu.Unlock()

	if err := job.Schedule(id, time.Now()); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.pending++
	d.mu.Unlock()
	if err := d.queue.Push(job); err != nil {
		d.mu.Lock()
		d.pending--
		d.mu.Unlock()
		return nil, err
	}
	log.WithFields(job.LogTags().Fields()).Infof("Queued job %s", job)
	return job, nil
}

func (d *Driver) onTerminal(job *domain.Job) {
	d.mu.Lock()
	if a, ok := d.assigned[job.TaskID()]; ok {
		d.free = d.free.Add(a)
		delete(d.assigned, job.TaskID())
	}
	d.pending--
	d.finished = append(d.finished, job)
	d.mu.Unlock()
	log.WithFields(job.LogTags().Fields()).Infof("Job done: %s", job)

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Driver) remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// launch offers the free capacity once and starts whatever was placed.
func (d *Driver) launch() {
	d.mu.Lock()
	free := d.free
	d.offers++
	offer := server.Offer{ID: fmt.Sprintf("offer-%d", d.offers), AgentID: d.agentID, Resources: free.Encode()}
	d.mu.Unlock()

	for _, l := range d.planner.Plan([]server.Offer{offer}, time.Now()) {
		assigned := resource.Decode(l.Task.GetResources())
		d.mu.Lock()
		d.free = d.free.Sub(assigned)
		d.assigned[l.Task.GetTaskId().GetValue()] = assigned
		d.mu.Unlock()
		d.pm.StartTask(l.Task, int(assigned.CPU), assigned.MemMB)
	}
}

// Run processes queued jobs until every submitted job is done or ctx ends.
// When ctx ends, queued jobs are killed, running ones are asked to stop and
// Run waits up to the abort timeout for their reports. The returned jobs
// are in the order they finished.
func (d *Driver) Run(ctx context.Context) ([]*domain.Job, error) {
	d.pm.Start(d.tracker)
	defer func() {
		d.pm.Stop()
		d.pm.Wait()
	}()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for d.remaining() > 0 {
		d.launch()
		select {
		case <-ctx.Done():
			d.abort()
			return d.results(), ctx.Err()
		case <-d.wake:
		case <-ticker.C:
		}
	}
	return d.results(), nil
}

func (d *Driver) abort() {
	log.Info("Aborting: killing queued and running jobs")
	now := time.Now()
	for _, job := range d.queue.Drain() {
		d.tracker.Reject(job, "aborted", now)
	}
	d.mu.Lock()
	running := make([]string, 0, len(d.assigned))
	for taskID := range d.assigned {
		running = append(running, taskID)
	}
	d.mu.Unlock()
	for _, taskID := range running {
		d.pm.KillTask(mesos.NewTaskID(taskID))
	}

	deadline := time.After(d.cfg.AbortTimeout + 2*d.cfg.PollInterval)
	for d.remaining() > 0 {
		select {
		case <-d.wake:
		case <-deadline:
			log.Warnf("Gave up waiting for %d jobs", d.remaining())
			return
		}
	}
}

func (d *Driver) results() []*domain.Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*domain.Job(nil), d.finished...)
}
