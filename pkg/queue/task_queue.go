package queue

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/article-dl/pkg/models"
)

// TaskQueue is a thread-safe FIFO of batch tasks shared by all workers
type TaskQueue struct {
	items  []models.Task
	head   int // Index of the next task to hand out
	mu     sync.Mutex
	cond   *sync.Cond // Signalled when a task is added or the queue closes
	closed bool
	log    *logrus.Entry
}

// NewTaskQueue creates an empty, open queue
func NewTaskQueue(log *logrus.Entry) *TaskQueue {
	q := &TaskQueue{log: log}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add appends a task. Adding to a closed queue is logged and ignored.
func (q *TaskQueue) Add(task models.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.log.Warnf("Attempted to add task to closed queue: %s", task.URL)
		return
	}
	q.items = append(q.items, task)
	q.cond.Signal()
}

// Pop removes and returns the oldest task.
// It blocks while the queue is empty and open; returns false once the queue is closed and empty.
func (q *TaskQueue) Pop() (models.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == len(q.items) {
		if q.closed {
			return models.Task{}, false
		}
		q.cond.Wait()
	}

	task := q.items[q.head]
	q.items[q.head] = models.Task{}
	q.head++
	if q.head == len(q.items) {
		// Fully consumed; reset so the backing array can be reused
		q.items = q.items[:0]
		q.head = 0
	}
	return task, true
}

// Close marks the queue as complete; waiting workers wake and drain what is left
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
}

// Drain closes the queue and discards every task not yet handed out, returning how many were dropped
func (q *TaskQueue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.items) - q.head
	q.items = nil
	q.head = 0
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
	return dropped
}

// Len returns the number of tasks waiting to be handed out
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
