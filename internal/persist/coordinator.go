package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCoordinatorClosed rejects tickets that were still queued when the
// coordinator shut down, and any enqueued after.
var ErrCoordinatorClosed = errors.New("persist: coordinator closed")

// Op is one durable operation. The context carries no deadline of its own;
// an op that needs a timeout wraps one inside the closure.
type Op func(ctx context.Context) error

// Ticket tracks one enqueued operation through to settlement.
type Ticket struct {
	name string
	op   Op

	once sync.Once
	done chan struct{}
	err  error
}

func newTicket(name string, op Op) *Ticket {
	return &Ticket{name: name, op: op, done: make(chan struct{})}
}

// settle records the outcome exactly once and releases waiters.
func (t *Ticket) settle(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Name returns the label the operation was enqueued under.
func (t *Ticket) Name() string { return t.name }

// Done returns a channel that closes when the operation settles.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Err returns the settled outcome: nil for success, the op's error for
// failure, ErrCoordinatorClosed for a rejected ticket. Before Done closes
// it returns nil.
func (t *Ticket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the operation settles or ctx expires.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return t.err
	}
}

// Coordinator runs durable operations one at a time in FIFO order.
type Coordinator struct {
	queue  *taskQueue
	logger *slog.Logger

	closeOnce sync.Once
	exited    chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a coordinator and starts its worker goroutine.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		queue:  newTaskQueue(),
		logger: slog.Default(),
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

var (
	defaultOnce sync.Once
	defaultCoor *Coordinator
)

// Default returns the process-wide coordinator, started on first use.
func Default() *Coordinator {
	defaultOnce.Do(func() {
		defaultCoor = New()
	})
	return defaultCoor
}

// Enqueue submits an operation and returns its ticket. The returned ticket
// is never nil; after Close it is already rejected with
// ErrCoordinatorClosed.
func (c *Coordinator) Enqueue(name string, op Op) *Ticket {
	t := newTicket(name, op)
	if !c.queue.Enqueue(t) {
		t.settle(ErrCoordinatorClosed)
		opsTotal.WithLabelValues("rejected").Inc()
		c.logger.Warn("operation rejected, coordinator closed", "op", name)
		return t
	}
	queueDepth.Set(float64(c.queue.Len()))
	c.logger.Debug("operation enqueued", "op", name, "depth", c.queue.Len())
	return t
}

// QueueLen returns the number of operations waiting to run.
//
// Used for testing and introspection.
func (c *Coordinator) QueueLen() int {
	return c.queue.Len()
}

// Close stops intake, lets the in-flight operation finish, rejects every
// still-queued ticket with ErrCoordinatorClosed and waits for the worker
// to exit. Safe to call more than once.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.queue.Close()
	})
	<-c.exited
}

// run is the worker loop.
// CRITICAL: Must run in exactly ONE goroutine. Every durable write in the
// process happens here, which is the whole FIFO guarantee.
func (c *Coordinator) run() {
	defer close(c.exited)
	c.logger.Debug("persistence worker starting")

	for {
		if c.queue.Closed() {
			c.rejectRemaining()
			c.logger.Info("persistence worker stopped")
			return
		}

		t, ok := c.queue.TryDequeue()
		if ok {
			c.execute(t)
			continue
		}

		// Queue empty. The signal channel closes on Close, so this wakes
		// either way and the loop re-checks.
		<-c.queue.Wait()
	}
}

// execute runs one operation to settlement.
func (c *Coordinator) execute(t *Ticket) {
	queueDepth.Set(float64(c.queue.Len()))

	start := time.Now()
	err := t.op(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		opsTotal.WithLabelValues("failed").Inc()
		c.logger.Error("persistence operation failed",
			"op", t.name,
			"error", err,
			"elapsed", elapsed,
		)
	} else {
		opsTotal.WithLabelValues("ok").Inc()
		c.logger.Debug("persistence operation done",
			"op", t.name,
			"elapsed", elapsed,
		)
	}
	t.settle(err)
}

// rejectRemaining settles every queued ticket with ErrCoordinatorClosed.
func (c *Coordinator) rejectRemaining() {
	for {
		t, ok := c.queue.TryDequeue()
		if !ok {
			queueDepth.Set(0)
			return
		}
		opsTotal.WithLabelValues("rejected").Inc()
		c.logger.Warn("queued operation rejected at shutdown", "op", t.name)
		t.settle(ErrCoordinatorClosed)
	}
}
