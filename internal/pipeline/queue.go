package pipeline

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Job is one unit of background work. Jobs are delivered at least once: a
// failing run is retried, so implementations carry their own idempotency
// key.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Queue is a buffered channel with a worker pool behind it. Enqueue never
// blocks the caller; when the buffer is full the job is dropped and logged.
type Queue struct {
	jobs        chan Job
	workers     int
	maxAttempts int
	retryDelay  time.Duration

	scheduled atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewQueue(workers, size, maxAttempts int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Queue{
		jobs:        make(chan Job, size),
		workers:     workers,
		maxAttempts: maxAttempts,
		retryDelay:  250 * time.Millisecond,
	}
}

func (q *Queue) Start() {
	q.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		q.cancel = cancel
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(ctx, i)
		}
		log.Printf("Started %d pipeline worker(s)", q.workers)
	})
}

// Stop cancels the workers and waits for in-flight jobs to finish. Buffered
// jobs that never ran stay unprocessed.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Enqueue schedules a job, reporting whether it was accepted.
func (q *Queue) Enqueue(j Job) bool {
	select {
	case q.jobs <- j:
		q.scheduled.Add(1)
		return true
	default:
		q.dropped.Add(1)
		log.Printf("Pipeline queue full, dropping %s job", j.Name())
		return false
	}
}

func (q *Queue) Scheduled() int64 { return q.scheduled.Load() }
func (q *Queue) Processed() int64 { return q.processed.Load() }
func (q *Queue) Failed() int64    { return q.failed.Load() }
func (q *Queue) Dropped() int64   { return q.dropped.Load() }

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			q.run(ctx, id, j)
		}
	}
}

func (q *Queue) run(ctx context.Context, workerID int, j Job) {
	for attempt := 1; ; attempt++ {
		err := j.Run(ctx)
		if err == nil {
			q.processed.Add(1)
			return
		}

		if attempt >= q.maxAttempts {
			q.failed.Add(1)
			log.Printf("[worker %d] %s job failed permanently after %d attempt(s): %v", workerID, j.Name(), attempt, err)
			return
		}

		log.Printf("[worker %d] %s job attempt %d failed, retrying: %v", workerID, j.Name(), attempt, err)
		select {
		case <-ctx.Done():
			q.failed.Add(1)
			return
		case <-time.After(time.Duration(attempt) * q.retryDelay):
		}
	}
}
