// Package workqueue provides a fixed-size pool of worker goroutines fed by
// an unbounded FIFO of tasks. Finish waits for every submitted task to
// complete without stopping the workers, so the same pool can run several
// fan-out/join phases in a row. Shutdown stops the workers.
package workqueue

import (
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
)

// DefaultWorkers is used when a non-positive worker count is requested.
const DefaultWorkers = 5

// Queue is a work queue. All state is guarded by mu; workers wait on work,
// Finish waits on idle.
type Queue struct {
	mu       sync.Mutex
	work     *sync.Cond
	idle     *sync.Cond
	tasks    []func()
	pending  int
	shutdown bool
	workers  int
	exited   sync.WaitGroup
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New starts workers goroutines. m may be nil.
func New(workers int, m *metrics.Metrics) *Queue {
	if workers < 1 {
		workers = DefaultWorkers
	}
	q := &Queue{
		workers: workers,
		metrics: m,
		logger:  slog.Default().With("component", "workqueue"),
	}
	q.work = sync.NewCond(&q.mu)
	q.idle = sync.NewCond(&q.mu)
	q.exited.Add(workers)
	for i := 0; i < workers; i++ {
		go q.run(i)
	}
	return q
}

// Execute enqueues task and wakes one worker. It never blocks on task
// execution. Tasks submitted after Shutdown are dropped.
func (q *Queue) Execute(task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		q.logger.Warn("task submitted after shutdown, dropping")
		q.metrics.TaskDone("dropped")
		return
	}
	q.pending++
	q.metrics.SetPending(q.pending)
	q.tasks = append(q.tasks, task)
	q.work.Signal()
}

// Finish blocks until every submitted task, including tasks submitted by
// other tasks, has completed. Workers keep running.
func (q *Queue) Finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 {
		q.idle.Wait()
	}
}

// Shutdown tells workers to exit. A worker that is running a task finishes
// it first. Tasks still queued are discarded and released from the pending
// count so Finish cannot block forever.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return
	}
	q.shutdown = true
	if n := len(q.tasks); n > 0 {
		q.logger.Warn("discarding queued tasks on shutdown", "tasks", n)
		q.tasks = nil
		q.release(n)
	}
	q.work.Broadcast()
}

// Join waits for pending work, shuts the pool down and waits for every
// worker to exit.
func (q *Queue) Join() {
	q.Finish()
	q.Shutdown()
	q.exited.Wait()
}

// Size returns the number of workers.
func (q *Queue) Size() int {
	return q.workers
}

// Pending returns the number of tasks submitted but not yet completed.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

func (q *Queue) run(id int) {
	defer q.exited.Done()
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.shutdown {
			q.work.Wait()
		}
		if q.shutdown {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.runTask(id, task)
	}
}

func (q *Queue) runTask(id int, task func()) {
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			q.logger.Error("task panicked", "worker", id, "panic", r)
		}
		q.metrics.TaskDone(status)
		q.mu.Lock()
		q.release(1)
		q.mu.Unlock()
	}()
	task()
}

// release must be called with mu held.
func (q *Queue) release(n int) {
	q.pending -= n
	q.metrics.SetPending(q.pending)
	if q.pending == 0 {
		q.idle.Broadcast()
	}
}
