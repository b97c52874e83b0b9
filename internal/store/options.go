package store

import (
	"log/slog"
	"time"

	"github.com/easelhq/easel/internal/guard"
)

// Option configures a Store at construction.
type Option func(*Store)

// WithLogger sets the diagnostic logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used for LastUpdatedAt and the guard's
// window arithmetic. Defaults to time.Now; tests pass a manual clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithHistoryLimit sets the undo/redo depth. Defaults to
// history.DefaultLimit.
func WithHistoryLimit(limit int) Option {
	return func(s *Store) { s.limit = limit }
}

// WithGridSize sets the info-card spatial bucket size. Defaults to
// normalize.DefaultGridSize.
func WithGridSize(size float64) Option {
	return func(s *Store) {
		if size > 0 {
			s.gridSize = size
		}
	}
}

// WithGuard tunes the rate guard. Zero fields keep the guard defaults.
func WithGuard(cfg guard.Config) Option {
	return func(s *Store) { s.guardCfg = cfg }
}

// callOptions carries the per-call flags every operation accepts.
type callOptions struct {
	source    string
	silent    bool
	noHistory bool
}

// CallOption tags a single store operation.
type CallOption func(*callOptions)

// WithSource labels the mutation with a free-form origin for diagnostics
// ("toolbar", "import", "autosave-test", ...). The label travels on the
// Change delivered to subscribers.
func WithSource(source string) CallOption {
	return func(o *callOptions) { o.source = source }
}

// Silent applies the mutation without a version bump, history entry or
// subscriber notification. Used for high-frequency transient updates such
// as live dragging.
func Silent() CallOption {
	return func(o *callOptions) { o.silent = true }
}

// NoHistory commits the mutation normally but skips the history push, so
// undo will step over it.
func NoHistory() CallOption {
	return func(o *callOptions) { o.noHistory = true }
}

func applyCallOptions(opts []CallOption) callOptions {
	var call callOptions
	for _, opt := range opts {
		opt(&call)
	}
	return call
}
