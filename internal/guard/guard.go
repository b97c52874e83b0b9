package guard

import (
	"slices"
	"time"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultWindow     = 100 * time.Millisecond
	DefaultThreshold  = 10
	DefaultCooldown   = 250 * time.Millisecond
	DefaultLoopFactor = 2.0
)

// Reason classifies why an attempt was rejected.
type Reason string

const (
	// ReasonRate marks an attempt rejected because the window already held
	// Threshold attempts.
	ReasonRate Reason = "rate"

	// ReasonLoop marks an attempt rejected because the detector found a
	// periodic fingerprint sequence in the recent history.
	ReasonLoop Reason = "loop"

	// ReasonCooldown marks an attempt rejected while an earlier block was
	// still cooling down.
	ReasonCooldown Reason = "cooldown"
)

// Attempt is one recorded mutation attempt.
//
// Fingerprint identifies the attempt's payload, typically
// model.Fingerprint over the action and its arguments. When no fingerprint
// is supplied the action name alone identifies the attempt.
type Attempt struct {
	Time        time.Time
	Action      string
	Fingerprint string
}

// loopKey is the identity the detector compares attempts by.
func (a Attempt) loopKey() string {
	if a.Fingerprint == "" {
		return a.Action
	}
	return a.Action + ":" + a.Fingerprint
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	Reason  Reason    // set when not allowed
	Until   time.Time // when the block lifts; zero when allowed
	Period  int       // fingerprint cycle length; set for ReasonLoop only
}

// Config tunes a Guard. Zero fields fall back to the package defaults.
type Config struct {
	// Window is the sliding interval over which attempts are counted.
	Window time.Duration

	// Threshold is how many attempts the window may hold before further
	// attempts are blocked.
	Threshold int

	// Cooldown is how long a block lasts once raised.
	Cooldown time.Duration

	// LoopFactor scales the cooldown when the loop detector, rather than
	// the raw count, raised the block.
	LoopFactor float64
}

// Guard rate-limits mutation attempts against a single store.
//
// Reactive UI code can re-trigger mutations from its own update cycle:
// a mutation notifies a subscriber, the subscriber issues the same
// mutation, and the cascade repeats every tick until the process freezes.
//
// Example cascade:
//
//	updateComponent applies → subscriber recomputes layout → updateComponent
//	applies (again!) → subscriber recomputes layout → ...
//
// The guard keeps a sliding window of recent attempts. Once the window
// fills past Threshold the guard blocks, rejecting every attempt until
// Cooldown elapses. A separate pure function (Detect) watches the same
// window for periodic fingerprint sequences and raises the block early,
// with an extended cooldown, before the raw count is reached.
//
// There is no permanent trip. Once traffic quiets down the cooldown
// expires, the stale window is discarded and attempts flow again.
//
// A Guard belongs to exactly one store, which serializes all calls;
// Guard itself is not safe for concurrent use.
type Guard struct {
	cfg    Config
	now    func() time.Time
	window []Attempt

	blocked      bool
	blockedUntil time.Time
}

// New creates a guard with cfg, reading time from now.
//
// Zero cfg fields fall back to the package defaults. A nil now falls back
// to time.Now; tests pass a manual clock.
func New(cfg Config, now func() time.Time) *Guard {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.LoopFactor <= 0 {
		cfg.LoopFactor = DefaultLoopFactor
	}
	if now == nil {
		now = time.Now
	}
	return &Guard{cfg: cfg, now: now}
}

// Allow records a mutation attempt and decides whether it may proceed.
//
// The attempt is recorded even when the decision is a rejection, so the
// window reflects real pressure. Attempts made while blocked never extend
// the cooldown; they are discarded together with the rest of the window
// once the cooldown lifts.
func (g *Guard) Allow(action, fingerprint string) Decision {
	now := g.now()
	g.window = pruneBefore(g.window, now.Add(-g.cfg.Window))
	g.window = append(g.window, Attempt{Time: now, Action: action, Fingerprint: fingerprint})

	if g.blocked {
		if now.Before(g.blockedUntil) {
			return Decision{Reason: ReasonCooldown, Until: g.blockedUntil}
		}
		// Cooldown elapsed. Everything recorded before or during the
		// block is stale; the current attempt opens a fresh window.
		g.blocked = false
		g.window = append(g.window[:0], g.window[len(g.window)-1])
	}

	if period, ok := Detect(g.window); ok {
		until := now.Add(time.Duration(float64(g.cfg.Cooldown) * g.cfg.LoopFactor))
		g.blocked = true
		g.blockedUntil = until
		return Decision{Reason: ReasonLoop, Until: until, Period: period}
	}

	if len(g.window) > g.cfg.Threshold {
		until := now.Add(g.cfg.Cooldown)
		g.blocked = true
		g.blockedUntil = until
		return Decision{Reason: ReasonRate, Until: until}
	}

	return Decision{Allowed: true}
}

// Reset restores the guard to allowed with an empty window.
//
// Used when the whole project is reset and between test scenarios.
func (g *Guard) Reset() {
	g.window = nil
	g.blocked = false
	g.blockedUntil = time.Time{}
}

// Blocked reports whether an attempt made right now would be rejected for
// cooldown alone.
func (g *Guard) Blocked() bool {
	return g.blocked && g.now().Before(g.blockedUntil)
}

// BlockedUntil returns the end of the active cooldown, or the zero time
// when the guard is allowed.
func (g *Guard) BlockedUntil() time.Time {
	if !g.Blocked() {
		return time.Time{}
	}
	return g.blockedUntil
}

// WindowSize returns the number of attempts currently recorded.
//
// Used for testing and introspection.
func (g *Guard) WindowSize() int {
	return len(g.window)
}

// Window returns a copy of the recorded attempts, oldest first.
//
// Used for testing and introspection.
func (g *Guard) Window() []Attempt {
	return slices.Clone(g.window)
}

// pruneBefore drops attempts at or before cutoff, reusing the backing
// array. Attempts are appended in time order, so the survivors form a
// suffix.
func pruneBefore(window []Attempt, cutoff time.Time) []Attempt {
	keep := 0
	for keep < len(window) && !window[keep].Time.After(cutoff) {
		keep++
	}
	if keep == 0 {
		return window
	}
	return append(window[:0], window[keep:]...)
}
