package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/easelhq/easel/internal/normalize"
	"github.com/easelhq/easel/internal/store"
)

// DefaultAutosaveInterval is the quiet period after the last change before
// an autosave fires.
const DefaultAutosaveInterval = 1000 * time.Millisecond

// SaveFunc persists one consistent view of the canvas. The state handed in
// is an immutable version captured when the save was scheduled; the store
// may move on while the save runs.
type SaveFunc func(ctx context.Context, st *normalize.State) error

// Autosaver watches a store and schedules a save through the coordinator
// once changes go quiet. A burst of mutations produces one save of the
// final state, not one save per mutation.
type Autosaver struct {
	store    *store.Store
	coord    *Coordinator
	save     SaveFunc
	logger   *slog.Logger
	interval time.Duration

	mu          sync.Mutex
	debounced   func(func())
	unsubscribe func()
}

// AutosaverOption configures an Autosaver.
type AutosaverOption func(*Autosaver)

// WithInterval overrides the debounce quiet period.
func WithInterval(d time.Duration) AutosaverOption {
	return func(a *Autosaver) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithAutosaveLogger sets the autosaver's logger.
func WithAutosaveLogger(logger *slog.Logger) AutosaverOption {
	return func(a *Autosaver) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAutosaver wires a store to the coordinator. Nothing happens until
// Start.
func NewAutosaver(s *store.Store, c *Coordinator, save SaveFunc, opts ...AutosaverOption) *Autosaver {
	a := &Autosaver{
		store:    s,
		coord:    c,
		save:     save,
		logger:   slog.Default(),
		interval: DefaultAutosaveInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start subscribes to the store. Safe to call on a started autosaver.
func (a *Autosaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.unsubscribe != nil {
		return
	}
	a.debounced = debounce.New(a.interval)
	a.unsubscribe = a.store.Subscribe(func(store.Change) {
		a.debounced(a.enqueueSave)
	})
	a.logger.Debug("autosave armed", "interval", a.interval)
}

// Stop unsubscribes from the store. A save already past the debounce may
// still run; nothing new is scheduled. Safe to call more than once, and
// Start may be called again afterwards.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.unsubscribe == nil {
		return
	}
	a.unsubscribe()
	a.unsubscribe = nil
	a.debounced = nil
	a.logger.Debug("autosave disarmed")
}

// Flush schedules a save of the current state immediately, bypassing the
// debounce. Works whether or not the autosaver is started; shutdown paths
// use it to capture the final state.
func (a *Autosaver) Flush() *Ticket {
	st := a.store.State()
	return a.coord.Enqueue("save", func(ctx context.Context) error {
		return a.save(ctx, st)
	})
}

// enqueueSave fires after the quiet period.
func (a *Autosaver) enqueueSave() {
	a.mu.Lock()
	stopped := a.unsubscribe == nil
	a.mu.Unlock()
	if stopped {
		return
	}

	st := a.store.State()
	a.coord.Enqueue("autosave", func(ctx context.Context) error {
		return a.save(ctx, st)
	})
}
