package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/article-dl/pkg/config"
	"github.com/Sriram-PR/article-dl/pkg/models"
	"github.com/Sriram-PR/article-dl/pkg/parse"
	"github.com/Sriram-PR/article-dl/pkg/queue"
	"github.com/Sriram-PR/article-dl/pkg/utils"
)

// ErrSchedulerStarted is returned when Run is called more than once on a Scheduler
var ErrSchedulerStarted = errors.New("scheduler already started")

// TaskRunner produces exactly one Result per Task
type TaskRunner interface {
	Run(ctx context.Context, task models.Task) models.Result
}

// ResultSink observes every Result the scheduler emits. Observe is called from worker goroutines.
type ResultSink interface {
	Observe(batchID string, result models.Result)
}

// ActivitySink is an optional extension of ResultSink notified around each task
type ActivitySink interface {
	TaskStarted()
	TaskFinished()
}

// Scheduler runs one batch: a fixed pool of workers pulling tasks from a shared FIFO queue
type Scheduler struct {
	ID string // Unique per batch

	runner      TaskRunner
	concurrency int
	delay       time.Duration // Sleep after each task, per worker
	inFlightMax time.Duration // Ceiling for a task that outlives batch cancellation
	sinks       []ResultSink
	log         *logrus.Entry

	started   atomic.Bool
	total     atomic.Int64
	completed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	notFound  atomic.Int64
	dropped   atomic.Int64
}

// NewScheduler creates a scheduler for a single batch using the validated config
func NewScheduler(runner TaskRunner, cfg *config.AppConfig, log *logrus.Entry, sinks ...ResultSink) *Scheduler {
	id := uuid.New().String()
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = config.DefaultConcurrency
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &Scheduler{
		ID:          id,
		runner:      runner,
		concurrency: concurrency,
		delay:       cfg.Delay(),
		inFlightMax: 2*timeout + time.Second, // Primary plus one fallback attempt
		sinks:       sinks,
		log:         log.WithField("batch_id", id),
	}
}

// Run validates urls and starts the workers. Results arrive on the returned channel in completion order;
// the channel is closed once every worker has exited.
// Returns utils.ErrEmptyBatch, before any worker starts, when no line is acceptable.
//
// Cancelling ctx stops workers from pulling new tasks. A task already running finishes on a context
// detached from ctx and still emits its Result; tasks never started are dropped.
func (s *Scheduler) Run(ctx context.Context, urls []string) (<-chan models.Result, error) {
	accepted := parse.AcceptedLines(urls)
	if len(accepted) == 0 {
		return nil, fmt.Errorf("%w: none of %d input lines is an article URL", utils.ErrEmptyBatch, len(urls))
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrSchedulerStarted
	}

	q := queue.NewTaskQueue(s.log.WithField("component", "task_queue"))
	for i, u := range accepted {
		q.Add(models.Task{Seq: i, URL: u})
	}
	q.Close()
	s.total.Store(int64(len(accepted)))

	// Buffered for the whole batch so a slow consumer never stalls a worker
	out := make(chan models.Result, len(accepted))

	s.log.WithFields(logrus.Fields{
		"accepted":    len(accepted),
		"rejected":    len(urls) - len(accepted),
		"concurrency": s.concurrency,
		"delay":       s.delay,
	}).Info("Starting batch")

	workersDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if n := q.Drain(); n > 0 {
				s.dropped.Add(int64(n))
				s.log.Warnf("Batch cancelled (%v), dropped %d queued tasks", ctx.Err(), n)
			}
		case <-workersDone:
		}
	}()

	var g errgroup.Group
	for i := 1; i <= s.concurrency; i++ {
		workerLog := s.log.WithField("worker_id", i)
		g.Go(func() error {
			s.worker(ctx, q, out, workerLog)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(workersDone)
		state := s.State()
		s.log.WithFields(logrus.Fields{
			"completed": state.Completed,
			"succeeded": state.Succeeded,
			"failed":    state.Failed,
			"not_found": state.NotFound,
			"dropped":   s.dropped.Load(),
		}).Info("Batch finished")
		close(out)
	}()

	return out, nil
}

// worker pulls tasks until the queue is exhausted or ctx is cancelled
func (s *Scheduler) worker(ctx context.Context, q *queue.TaskQueue, out chan<- models.Result, workerLog *logrus.Entry) {
	workerLog.Debug("Worker starting")
	defer workerLog.Debug("Worker finished")

	for {
		if ctx.Err() != nil {
			return
		}
		task, ok := q.Pop()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			// Popped after cancellation; never started
			s.dropped.Add(1)
			return
		}

		out <- s.runTask(ctx, task)

		if q.Len() == 0 {
			// Closed and empty: nothing left to pace
			return
		}
		if !sleepCtx(ctx, s.delay) {
			return
		}
	}
}

// runTask executes one task on a context that survives batch cancellation, then records the outcome
func (s *Scheduler) runTask(ctx context.Context, task models.Task) models.Result {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.inFlightMax)
	defer cancel()

	s.notifyStart()
	result := s.runner.Run(taskCtx, task)
	s.notifyFinish()

	s.record(result)
	for _, sink := range s.sinks {
		sink.Observe(s.ID, result)
	}
	return result
}

func (s *Scheduler) record(result models.Result) {
	switch result.Status() {
	case models.ResultStatusSuccess:
		s.succeeded.Add(1)
	case models.ResultStatusNotFound:
		s.notFound.Add(1)
	default:
		s.failed.Add(1)
	}
	s.completed.Add(1)
}

func (s *Scheduler) notifyStart() {
	for _, sink := range s.sinks {
		if a, ok := sink.(ActivitySink); ok {
			a.TaskStarted()
		}
	}
}

func (s *Scheduler) notifyFinish() {
	for _, sink := range s.sinks {
		if a, ok := sink.(ActivitySink); ok {
			a.TaskFinished()
		}
	}
}

// State returns a snapshot of the batch counters
func (s *Scheduler) State() models.BatchState {
	return models.BatchState{
		Total:     s.total.Load(),
		Completed: s.completed.Load(),
		Succeeded: s.succeeded.Load(),
		Failed:    s.failed.Load(),
		NotFound:  s.notFound.Load(),
	}
}

// Dropped returns how many accepted tasks were discarded by cancellation
func (s *Scheduler) Dropped() int64 {
	return s.dropped.Load()
}

// sleepCtx waits for d or until ctx is done; returns false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
