package persist

import "sync"

// taskQueue is a thread-safe FIFO queue of pending tickets.
//
// The queue is unbounded so a burst of autosaves never blocks the store's
// notification path. Thread-safety covers external enqueuing from any
// goroutine while the coordinator's worker dequeues.
//
// A buffered signal channel announces availability so the worker can wait
// without spinning; the buffer of one coalesces repeated signals.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []*Ticket
	closed bool
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]*Ticket, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a ticket to the back of the queue.
// Returns false if the queue is closed; the ticket was not accepted.
func (q *taskQueue) Enqueue(t *Ticket) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.tasks = append(q.tasks, t)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front ticket without blocking.
// Returns (nil, false) when the queue is empty.
func (q *taskQueue) TryDequeue() (*Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	t := q.tasks[0]

	// Nil out the slot so the backing array does not retain the ticket and
	// its captured closure until reallocation.
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}

	return t, true
}

// Wait returns a channel that signals when tickets may be available.
// The channel closes when the queue closes, waking all waiters for good.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Closed reports whether intake has stopped.
func (q *taskQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops intake and wakes any blocked waiters.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
