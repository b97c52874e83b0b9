package store

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/easelhq/easel/internal/guard"
	"github.com/easelhq/easel/internal/history"
	"github.com/easelhq/easel/internal/model"
	"github.com/easelhq/easel/internal/normalize"
)

// Store owns the normalized canvas state and serializes every mutation.
//
// Safe for concurrent use. Mutations are atomic: a reader either observes
// the state before an operation or after it, never a partial application.
type Store struct {
	mu sync.Mutex

	state   *normalize.State
	version int64
	updated time.Time

	// Transient UI references. Never versioned, never in history, and
	// cleared whenever the referenced component leaves the state.
	selected        string
	connectionStart string

	guard   *guard.Guard
	history *history.History
	clock   func() time.Time
	logger  *slog.Logger

	guardCfg guard.Config
	limit    int
	gridSize float64

	subs    map[int]func(Change)
	nextSub int
}

// Change describes one committed, non-silent mutation, delivered to
// subscribers. Snapshot is an immutable denormalized copy of the state
// after the mutation.
type Change struct {
	Snapshot model.Snapshot
	Action   string
	Source   string
	Version  int64
	At       time.Time
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		clock:    time.Now,
		logger:   slog.Default(),
		limit:    history.DefaultLimit,
		gridSize: normalize.DefaultGridSize,
		subs:     make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = normalize.NewState(s.normalizeOptions())
	s.guard = guard.New(s.guardCfg, s.clock)
	s.history = history.New(s.limit)
	return s
}

// normalizeOptions returns the options every state of this store is built
// with. Order is always preserved: the collection order is the z-order
// the renderer draws in.
func (s *Store) normalizeOptions() normalize.Options {
	return normalize.Options{PreserveOrder: true, GridSize: s.gridSize}
}

// mutate runs one guarded operation through the commit pipeline.
//
// fn executes under the store lock against the current state and returns
// the replacement state, a no-op (nil, false, nil), or a validation error.
// Outcomes map to the caller's bool: only a committed state change returns
// true.
func (s *Store) mutate(action string, payload any, opts []CallOption, fn func(st *normalize.State) (*normalize.State, bool, error)) bool {
	call := applyCallOptions(opts)

	s.mu.Lock()
	if d := s.guard.Allow(action, model.Fingerprint(action, payload)); !d.Allowed {
		s.mu.Unlock()
		s.recordDrop(action, call, d)
		return false
	}

	next, changed, err := fn(s.state)
	if err != nil {
		s.mu.Unlock()
		mutationsTotal.WithLabelValues(action, "rejected").Inc()
		s.logger.Warn("mutation rejected",
			"action", action,
			"source", call.source,
			"error", err,
		)
		return false
	}
	if !changed {
		s.mu.Unlock()
		mutationsTotal.WithLabelValues(action, "noop").Inc()
		return false
	}

	pre := s.state
	s.state = next
	s.dropStaleRefs()
	change, listeners, notify := s.commit(action, call, pre)
	version := s.version
	s.mu.Unlock()

	mutationsTotal.WithLabelValues(action, "applied").Inc()
	s.logger.Debug("mutation applied",
		"action", action,
		"source", call.source,
		"version", version,
		"silent", call.silent,
	)
	if notify {
		for _, fn := range listeners {
			fn(change)
		}
	}
	return true
}

// commit finalizes an applied mutation. Caller holds the lock and has
// already swapped the state; pre is the displaced state, or nil for
// history-exempt operations.
func (s *Store) commit(action string, call callOptions, pre *normalize.State) (Change, []func(Change), bool) {
	if call.silent {
		return Change{}, nil, false
	}
	s.version++
	s.updated = s.clock()
	if pre != nil && !call.noHistory {
		s.history.Push(pre)
	}
	if len(s.subs) == 0 {
		return Change{}, nil, false
	}
	change := Change{
		Snapshot: normalize.Denormalize(s.state),
		Action:   action,
		Source:   call.source,
		Version:  s.version,
		At:       s.updated,
	}
	return change, s.listeners(), true
}

// dropStaleRefs clears transient references whose component is gone.
// Caller holds the lock; runs after every state swap, so undo and bulk
// replacement cascade the same way removeComponent does.
func (s *Store) dropStaleRefs() {
	if s.selected != "" && !s.state.HasComponent(s.selected) {
		s.selected = ""
	}
	if s.connectionStart != "" && !s.state.HasComponent(s.connectionStart) {
		s.connectionStart = ""
	}
}

// recordDrop logs and counts a guard rejection.
func (s *Store) recordDrop(action string, call callOptions, d guard.Decision) {
	guardDropsTotal.WithLabelValues(string(d.Reason)).Inc()
	mutationsTotal.WithLabelValues(action, "dropped").Inc()
	args := []any{
		"action", action,
		"source", call.source,
		"reason", string(d.Reason),
		"until", d.Until,
	}
	if d.Reason == guard.ReasonLoop {
		args = append(args, "period", d.Period)
	}
	s.logger.Warn("mutation dropped by guard", args...)
}

// listeners snapshots the subscriber set in registration order.
// Caller holds the lock.
func (s *Store) listeners() []func(Change) {
	if len(s.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Change), len(ids))
	for i, id := range ids {
		fns[i] = s.subs[id]
	}
	return fns
}

// Subscribe registers fn for committed, non-silent mutations.
//
// Listeners run synchronously on the mutating goroutine after the store
// lock is released, so a listener may itself call store operations; the
// guard breaks any feedback cascade that results. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Undo restores the most recent history entry.
//
// Undo is guard-checked like any mutation and bumps the version: versions
// only move forward, a restored state never restores its old number. The
// displaced state moves onto the redo stack; nothing is pushed to history.
func (s *Store) Undo(opts ...CallOption) bool {
	return s.timeTravel("undo", opts, func() (*normalize.State, bool) {
		return s.history.Undo(s.state)
	})
}

// Redo reverses the most recent Undo.
func (s *Store) Redo(opts ...CallOption) bool {
	return s.timeTravel("redo", opts, func() (*normalize.State, bool) {
		return s.history.Redo(s.state)
	})
}

// timeTravel is the shared undo/redo pipeline. The fingerprint covers the
// current version: a caller spinning on a bottomed-out undo repeats the
// same attempt and trips the loop detector.
func (s *Store) timeTravel(action string, opts []CallOption, move func() (*normalize.State, bool)) bool {
	call := applyCallOptions(opts)

	s.mu.Lock()
	if d := s.guard.Allow(action, model.Fingerprint(action, s.version)); !d.Allowed {
		s.mu.Unlock()
		s.recordDrop(action, call, d)
		return false
	}
	next, ok := move()
	if !ok {
		s.mu.Unlock()
		mutationsTotal.WithLabelValues(action, "noop").Inc()
		return false
	}

	s.state = next
	s.dropStaleRefs()
	change, listeners, notify := s.commit(action, call, nil)
	version := s.version
	s.mu.Unlock()

	mutationsTotal.WithLabelValues(action, "applied").Inc()
	s.logger.Debug("mutation applied",
		"action", action,
		"source", call.source,
		"version", version,
		"silent", call.silent,
	)
	if notify {
		for _, fn := range listeners {
			fn(change)
		}
	}
	return true
}

// Reset tears the store down to a pristine empty state.
//
// Version returns to 0, both history stacks and the guard window are
// cleared, and transient references are dropped. Reset bypasses the
// guard: it is the escape hatch that must work even mid-cooldown.
// Subscribers are notified once with action "reset".
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = normalize.NewState(s.normalizeOptions())
	s.version = 0
	s.updated = time.Time{}
	s.selected = ""
	s.connectionStart = ""
	s.history.Clear()
	s.guard.Reset()

	var (
		change Change
		notify bool
	)
	listeners := s.listeners()
	if len(listeners) > 0 {
		change = Change{
			Snapshot: normalize.Denormalize(s.state),
			Action:   "reset",
			Version:  0,
			At:       s.clock(),
		}
		notify = true
	}
	s.mu.Unlock()

	mutationsTotal.WithLabelValues("reset", "applied").Inc()
	s.logger.Info("store reset")
	if notify {
		for _, fn := range listeners {
			fn(change)
		}
	}
}

// Snapshot returns an immutable denormalized copy of the current state.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return normalize.Denormalize(s.state)
}

// State returns the current normalized state.
//
// The state is an immutable version: callers may hold it across later
// mutations and read it without locking, which is how query plans and
// persistence closures take a consistent view.
func (s *Store) State() *normalize.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version returns the monotonic mutation counter.
func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// LastUpdatedAt returns the commit time of the latest non-silent
// mutation, or the zero time for a pristine store.
func (s *Store) LastUpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

// SelectedComponent returns the transient selection, or "".
func (s *Store) SelectedComponent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// ConnectionStart returns the component a pending connection starts from,
// or "".
func (s *Store) ConnectionStart() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionStart
}

// CanUndo reports whether an Undo would restore anything.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether a Redo would restore anything.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// HistoryLengths returns the undo/redo stack depths.
//
// Used for testing and introspection.
func (s *Store) HistoryLengths() (past, future int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Lengths()
}

// GuardBlocked reports whether the guard would reject an attempt made
// right now for cooldown alone.
func (s *Store) GuardBlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.Blocked()
}
