package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	uuid "github.com/nu7hatch/gouuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/batchd/batchd/common/log/helpers"
	"github.com/batchd/batchd/common/stats"
	"github.com/batchd/batchd/mesos"
	"github.com/batchd/batchd/resource"
	"github.com/batchd/batchd/scheduler/domain"
)

// Offer is a set of resources on one agent that the cluster manager lets
// us use.
type Offer struct {
	ID        string
	AgentID   string
	Resources []*mesos.Resource
}

// Launch is a job handled onto an offer, ready to hand to an executor.
type Launch struct {
	OfferID string
	Job     *domain.Job
	Task    *mesos.TaskInfo
}

// AppRegistry resolves application ids. Safe for concurrent use.
type AppRegistry struct {
	mu   sync.RWMutex
	apps map[string]*domain.Application
}

func NewAppRegistry() *AppRegistry {
	return &AppRegistry{apps: make(map[string]*domain.Application)}
}

// Register validates and adds app, replacing one with the same id.
func (r *AppRegistry) Register(app *domain.Application) error {
	if err := app.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.AppID] = app
	return nil
}

func (r *AppRegistry) Get(appID string) (*domain.Application, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[appID]
	return app, ok
}

// Planner matches queued jobs to offers.
type Planner struct {
	queue   *JobQueue
	apps    *AppRegistry
	tracker *JobTracker
	stat    stats.StatsReceiver

	// SandboxURL, when set, is a format string taking the task id; the
	// result is recorded as the job's url.
	SandboxURL string
	// Limiter, when set, caps the launch rate. Jobs over the limit stay queued.
	Limiter *rate.Limiter
}

func NewPlanner(queue *JobQueue, apps *AppRegistry, tracker *JobTracker, stat stats.StatsReceiver) *Planner {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &Planner{queue: queue, apps: apps, tracker: tracker, stat: stat.Scope("planner")}
}

func generateTaskID(job *domain.Job) string {
	id, err := uuid.NewV4()
	for err != nil {
		id, err = uuid.NewV4()
	}
	return fmt.Sprintf("%s-%d-%s", job.AppID(), job.ID(), id.String())
}

// request is what job needs. A job without its own disk size asks for
// its application's.
func request(job *domain.Job, app *domain.Application) resource.Request {
	req := job.ResourceRequest()
	if req.DiskMB == 0 {
		req.DiskMB = helpers.CopyPointerToInt(app.DiskMB, 0)
	}
	return req
}

// Plan fits queued jobs, in queue order, into the first offer with room.
// Jobs that fit nowhere go back on the queue without counting a retry.
// Jobs of unknown or disabled applications are killed. Every returned
// job is STARTING and tracked.
func (p *Planner) Plan(offers []Offer, now time.Time) []Launch {
	remaining := make([]resource.Resource, len(offers))
	for i, o := range offers {
		remaining[i] = resource.Decode(o.Resources)
		log.Debugf("Offer %s on %s: %s", o.ID, o.AgentID, remaining[i])
	}
	used := make([]bool, len(offers))

	var launches []Launch
	var unplaced []*domain.Job
	for _, job := range p.queue.Drain() {
		fields := job.LogTags().Fields()
		app, ok := p.apps.Get(job.AppID())
		if !ok || !app.Enabled {
			reason := fmt.Sprintf("application %s is not registered", job.AppID())
			if ok {
				reason = fmt.Sprintf("application %s is disabled", job.AppID())
			}
			log.WithFields(fields).Warn(reason)
			p.tracker.Reject(job, reason, now)
			continue
		}

		req := request(job, app)
		handled := false
		for i := range offers {
			assigned, rest, ok := remaining[i].Allocate(req)
			if !ok {
				continue
			}
			if p.Limiter != nil && !p.Limiter.AllowN(now, 1) {
				break
			}
			taskID := generateTaskID(job)
			url := helpers.CopyStringToPointer(p.sandboxURL(taskID))
			if err := job.Starting(taskID, url, now); err != nil {
				log.WithFields(fields).Errorf("Cannot start job: %v", err)
				p.tracker.Reject(job, err.Error(), now)
				handled = true
				break
			}
			task, err := p.buildTask(taskID, job, app, offers[i], assigned)
			if err != nil {
				log.WithFields(fields).Errorf("Cannot build task: %v", err)
				p.tracker.Reject(job, err.Error(), now)
				handled = true
				break
			}
			remaining[i] = rest
			used[i] = true
			handled = true
			p.tracker.Track(job)
			p.stat.Counter(stats.JobLaunchedCounter).Inc(1)
			log.WithFields(job.LogTags().Fields()).Infof("Launching on offer %s: %s", offers[i].ID, assigned)
			launches = append(launches, Launch{OfferID: offers[i].ID, Job: job, Task: task})
			break
		}
		if !handled {
			unplaced = append(unplaced, job)
		}
	}

	for _, job := range unplaced {
		if err := p.queue.Push(job); err != nil {
			log.WithFields(job.LogTags().Fields()).Errorf("Lost job while requeueing: %v", err)
		}
	}
	for i, u := range used {
		if !u {
			log.Debugf("Declining offer %s", offers[i].ID)
			p.stat.Counter(stats.OfferDeclinedCounter).Inc(1)
		}
	}
	return launches
}

func (p *Planner) sandboxURL(taskID string) string {
	if p.SandboxURL == "" {
		return ""
	}
	if !strings.Contains(p.SandboxURL, "%s") {
		return p.SandboxURL
	}
	return fmt.Sprintf(p.SandboxURL, taskID)
}

// buildTask serializes job, which is already STARTING, as the task payload.
func (p *Planner) buildTask(taskID string, job *domain.Job, app *domain.Application, offer Offer, assigned resource.Resource) (*mesos.TaskInfo, error) {
	data, err := (&domain.MetaJob{App: app, Job: job}).Serialize()
	if err != nil {
		return nil, err
	}
	resources := resource.ConstructWithDisk(assigned.CPU, assigned.MemMB, assigned.DiskMB, assigned.GPU)
	if ports := resource.BuildPorts(assigned.Ports); ports != nil {
		resources = append(resources, ports)
	}
	name := job.Name()
	if name == "" {
		name = fmt.Sprintf("%s-%d", job.AppID(), job.ID())
	}
	return &mesos.TaskInfo{
		Name:      name,
		TaskId:    mesos.NewTaskID(taskID),
		AgentId:   &mesos.AgentID{Value: offer.AgentID},
		Resources: resources,
		Data:      data,
	}, nil
}
