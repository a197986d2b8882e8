package server

import (
	"container/heap"
	"sync"

	"github.com/pkg/errors"

	"github.com/batchd/batchd/common/stats"
	"github.com/batchd/batchd/scheduler/domain"
)

// jobHeap orders by priority, highest first, then by id.
type jobHeap []*domain.Job

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority() != h[j].Priority() {
		return h[i].Priority() > h[j].Priority()
	}
	return h[i].ID() < h[j].ID()
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*domain.Job)) }
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return j
}

// JobQueue holds QUEUED jobs waiting for an offer. Safe for concurrent use.
type JobQueue struct {
	mu   sync.Mutex
	jobs jobHeap
	stat stats.StatsReceiver
}

func NewJobQueue(stat stats.StatsReceiver) *JobQueue {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &JobQueue{stat: stat.Scope("queue")}
}

// Push adds a QUEUED job.
func (q *JobQueue) Push(job *domain.Job) error {
	if job.State() != domain.Queued {
		return errors.Errorf("cannot queue job %d in state %s", job.ID(), job.State())
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.jobs, job)
	q.stat.Counter(stats.JobQueuedCounter).Inc(1)
	q.stat.Gauge(stats.JobQueueLenGauge).Update(int64(len(q.jobs)))
	return nil
}

// Drain pops every job, in order.
func (q *JobQueue) Drain() []*domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*domain.Job, 0, len(q.jobs))
	for len(q.jobs) > 0 {
		out = append(out, heap.Pop(&q.jobs).(*domain.Job))
	}
	q.stat.Gauge(stats.JobQueueLenGauge).Update(0)
	return out
}

func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
