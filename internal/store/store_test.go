package store

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easelhq/easel/internal/guard"
	"github.com/easelhq/easel/internal/model"
	"github.com/easelhq/easel/internal/testutil"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *testutil.ManualClock) {
	t.Helper()
	clk := testutil.NewManualClock(time.Time{})
	base := []Option{
		WithClock(clk.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(append(base, opts...)...), clk
}

func comp(id string, x, y float64) model.Component {
	return model.Component{ID: id, Type: "service", X: x, Y: y, Width: 120, Height: 80}
}

func conn(id, source, target string) model.Connection {
	return model.Connection{ID: id, SourceID: source, TargetID: target, Type: "data-flow"}
}

func card(id string, x, y float64, content string) model.InfoCard {
	return model.InfoCard{ID: id, X: x, Y: y, Content: content}
}

func TestNew_Defaults(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Equal(t, int64(0), s.Version())
	assert.True(t, s.LastUpdatedAt().IsZero())
	assert.True(t, s.Snapshot().IsEmpty())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	assert.Empty(t, s.SelectedComponent())
	assert.Empty(t, s.ConnectionStart())
}

func TestStore_VersionAndTimestampAdvance(t *testing.T) {
	s, clk := newTestStore(t)

	require.True(t, s.AddComponent(comp("api", 0, 0)))
	assert.Equal(t, int64(1), s.Version())
	assert.Equal(t, testutil.Epoch, s.LastUpdatedAt())

	later := clk.Advance(5 * time.Second)
	require.True(t, s.AddComponent(comp("db", 100, 0)))
	assert.Equal(t, int64(2), s.Version())
	assert.Equal(t, later, s.LastUpdatedAt())
}

func TestStore_SilentMutationSkipsVersionHistoryAndListeners(t *testing.T) {
	s, _ := newTestStore(t)

	notified := 0
	defer s.Subscribe(func(Change) { notified++ })()

	require.True(t, s.AddComponent(comp("api", 0, 0), Silent()))

	assert.Equal(t, int64(0), s.Version(), "silent mutation must not bump the version")
	assert.True(t, s.LastUpdatedAt().IsZero())
	assert.False(t, s.CanUndo())
	assert.Zero(t, notified)
	assert.Len(t, s.Snapshot().Components, 1, "the state change itself still lands")
}

func TestStore_NoHistoryStillBumpsVersionAndNotifies(t *testing.T) {
	s, _ := newTestStore(t)

	notified := 0
	defer s.Subscribe(func(Change) { notified++ })()

	require.True(t, s.AddComponent(comp("api", 0, 0), NoHistory()))

	assert.Equal(t, int64(1), s.Version())
	assert.Equal(t, 1, notified)
	assert.False(t, s.CanUndo(), "history-exempt mutation must not create an undo entry")
}

func TestStore_SubscribeDeliversCommittedChange(t *testing.T) {
	s, _ := newTestStore(t)

	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	require.True(t, s.AddComponent(comp("api", 10, 20), WithSource("toolbar")))
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "addComponent", c.Action)
	assert.Equal(t, "toolbar", c.Source)
	assert.Equal(t, int64(1), c.Version)
	assert.Equal(t, testutil.Epoch, c.At)
	require.Len(t, c.Snapshot.Components, 1)
	assert.Equal(t, "api", c.Snapshot.Components[0].ID)

	unsubscribe()
	require.True(t, s.AddComponent(comp("db", 0, 0)))
	assert.Len(t, got, 1, "no deliveries after unsubscribe")

	unsubscribe() // second call is a no-op
}

func TestStore_ListenerRunsOutsideLock(t *testing.T) {
	s, _ := newTestStore(t)

	var seen int64
	defer s.Subscribe(func(c Change) {
		// Re-entering the store from a listener must not deadlock, and the
		// listener observes the already-committed version.
		seen = s.Version()
		assert.Equal(t, c.Version, seen)
	})()

	require.True(t, s.AddComponent(comp("api", 0, 0)))
	assert.Equal(t, int64(1), seen)
}

func TestStore_NoOpMutationDoesNotNotify(t *testing.T) {
	s, _ := newTestStore(t)
	require.True(t, s.SetComponents([]model.Component{comp("api", 0, 0)}))

	notified := 0
	defer s.Subscribe(func(Change) { notified++ })()

	assert.False(t, s.SetComponents([]model.Component{comp("api", 0, 0)}))
	assert.Zero(t, notified)
	assert.Equal(t, int64(1), s.Version())
}

func TestStore_RapidMutationsTripGuard(t *testing.T) {
	s, clk := newTestStore(t)

	// Eleven distinct mutations inside a frozen window: the default
	// threshold admits exactly ten.
	applied := 0
	for i := 0; i < 11; i++ {
		if s.AddComponent(comp(fmt.Sprintf("c-%d", i), float64(i), 0)) {
			applied++
		}
	}
	assert.Equal(t, 10, applied)
	assert.Len(t, s.Snapshot().Components, 10)
	assert.Equal(t, int64(10), s.Version())

	// Inside the cooldown everything stays dropped.
	clk.Advance(100 * time.Millisecond)
	assert.False(t, s.AddComponent(comp("late", 0, 0)))

	// The first attempt after the cooldown goes through.
	clk.Advance(150 * time.Millisecond)
	assert.True(t, s.AddComponent(comp("after", 0, 0)))
	assert.Len(t, s.Snapshot().Components, 11)
}

func TestStore_FeedbackLoopThroughListenerIsBroken(t *testing.T) {
	s, clk := newTestStore(t)
	require.True(t, s.AddComponent(comp("api", 1, 0)))

	// A listener that keeps nudging the same component re-enters the store
	// on every notification. Without the guard this recursion would never
	// terminate; the loop detector has to cut it off.
	calls := 0
	defer s.Subscribe(func(c Change) {
		calls++
		require.Less(t, calls, 50, "cascade was not broken")
		x := c.Snapshot.Components[0].X
		next := 1.0
		if x == 1 {
			next = 2
		}
		s.UpdateComponent("api", ComponentPatch{X: &next})
	})()

	// Returns only once the guard refuses the next hop of the cascade.
	s.UpdateComponent("api", ComponentPatch{Y: ptr(5.0)})
	assert.Less(t, calls, 50)

	// Loop cooldown is escalated to twice the base; after it expires the
	// store works again (listener removed by the deferred unsubscribe only
	// at test end, so mutate something unrelated).
	clk.Advance(2 * 250 * time.Millisecond)
	assert.True(t, s.AddComponent(comp("db", 0, 0)))
}

func ptr[T any](v T) *T { return &v }

func TestStore_UndoRedoRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	require.True(t, s.AddComponent(comp("a", 0, 0)))
	require.True(t, s.AddComponent(comp("b", 1, 0)))
	require.True(t, s.AddComponent(comp("c", 2, 0)))
	require.Equal(t, int64(3), s.Version())

	require.True(t, s.Undo())
	assert.Len(t, s.Snapshot().Components, 2)
	require.True(t, s.Undo())
	assert.Len(t, s.Snapshot().Components, 1)
	require.True(t, s.Undo())
	assert.True(t, s.Snapshot().IsEmpty())
	assert.False(t, s.CanUndo())

	require.True(t, s.Redo())
	require.True(t, s.Redo())
	require.True(t, s.Redo())
	assert.False(t, s.CanRedo())

	snap := s.Snapshot()
	require.Len(t, snap.Components, 3)
	assert.Equal(t, "a", snap.Components[0].ID)
	assert.Equal(t, "c", snap.Components[2].ID)

	// Versions only move forward: three mutations plus six time travels.
	assert.Equal(t, int64(9), s.Version())
}

func TestStore_UndoAtBottomIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)

	assert.False(t, s.Undo())
	assert.False(t, s.Redo())
	assert.Equal(t, int64(0), s.Version())

	require.True(t, s.AddComponent(comp("a", 0, 0)))
	require.True(t, s.Undo())
	assert.False(t, s.Undo(), "second undo has nothing left to restore")
	assert.Equal(t, int64(2), s.Version())
}

func TestStore_NewMutationClearsRedo(t *testing.T) {
	s, _ := newTestStore(t)

	require.True(t, s.AddComponent(comp("a", 0, 0)))
	require.True(t, s.AddComponent(comp("b", 1, 0)))
	require.True(t, s.Undo())
	require.True(t, s.CanRedo())

	require.True(t, s.AddComponent(comp("c", 2, 0)))
	assert.False(t, s.CanRedo(), "diverging mutation invalidates the redo branch")

	snap := s.Snapshot()
	require.Len(t, snap.Components, 2)
	assert.Equal(t, "a", snap.Components[0].ID)
	assert.Equal(t, "c", snap.Components[1].ID)
}

func TestStore_UndoClearsStaleSelection(t *testing.T) {
	s, _ := newTestStore(t)

	require.True(t, s.AddComponent(comp("a", 0, 0)))
	require.True(t, s.Select("a"))
	require.Equal(t, "a", s.SelectedComponent())

	// Undoing the add removes the selected component from the state.
	require.True(t, s.Undo())
	assert.Empty(t, s.SelectedComponent())
}

func TestStore_HistoryLimitHonored(t *testing.T) {
	s, _ := newTestStore(t, WithHistoryLimit(2), WithGuard(guard.Config{Threshold: 1000}))

	for i := 0; i < 5; i++ {
		require.True(t, s.AddComponent(comp(fmt.Sprintf("c-%d", i), float64(i), 0)))
	}

	past, _ := s.HistoryLengths()
	assert.Equal(t, 2, past)

	require.True(t, s.Undo())
	require.True(t, s.Undo())
	assert.False(t, s.CanUndo())
	assert.Len(t, s.Snapshot().Components, 3, "only the two retained steps unwind")
}

func TestStore_Reset(t *testing.T) {
	s, _ := newTestStore(t)

	require.True(t, s.AddComponent(comp("a", 0, 0)))
	require.True(t, s.AddComponent(comp("b", 1, 0)))
	require.True(t, s.Select("a"))

	var resets []Change
	defer s.Subscribe(func(c Change) { resets = append(resets, c) })()

	s.Reset()

	assert.Equal(t, int64(0), s.Version())
	assert.True(t, s.Snapshot().IsEmpty())
	assert.True(t, s.LastUpdatedAt().IsZero())
	assert.Empty(t, s.SelectedComponent())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	require.Len(t, resets, 1)
	assert.Equal(t, "reset", resets[0].Action)
	assert.Equal(t, int64(0), resets[0].Version)
	assert.True(t, resets[0].Snapshot.IsEmpty())
}

func TestStore_ResetClearsGuardState(t *testing.T) {
	s, _ := newTestStore(t)

	// Trip the rate guard with a frozen clock.
	for i := 0; i < 11; i++ {
		s.AddComponent(comp(fmt.Sprintf("c-%d", i), 0, 0))
	}
	require.False(t, s.AddComponent(comp("blocked", 0, 0)))

	// Reset bypasses the guard and clears its window, so the store is
	// usable again without waiting out the cooldown.
	s.Reset()
	assert.True(t, s.AddComponent(comp("fresh", 0, 0)))
}

func TestStore_SelectAndBeginConnection(t *testing.T) {
	s, _ := newTestStore(t)
	require.True(t, s.AddComponent(comp("a", 0, 0)))

	notified := 0
	defer s.Subscribe(func(Change) { notified++ })()

	require.True(t, s.Select("a"))
	assert.Equal(t, "a", s.SelectedComponent())
	assert.False(t, s.Select("a"), "re-selecting the selection is a no-op")
	assert.False(t, s.Select("ghost"), "unknown component cannot be selected")
	assert.Equal(t, "a", s.SelectedComponent())

	require.True(t, s.BeginConnection("a"))
	assert.Equal(t, "a", s.ConnectionStart())

	require.True(t, s.Select(""))
	assert.Empty(t, s.SelectedComponent())
	require.True(t, s.BeginConnection(""))
	assert.Empty(t, s.ConnectionStart())

	assert.Equal(t, int64(1), s.Version(), "transient references never version")
	assert.Zero(t, notified)
	past, _ := s.HistoryLengths()
	assert.Equal(t, 1, past, "only the addComponent entered history")
}

func TestStore_RemoveComponentClearsTransientRefs(t *testing.T) {
	s, _ := newTestStore(t)

	require.True(t, s.AddComponent(comp("a", 0, 0)))
	require.True(t, s.AddComponent(comp("b", 1, 0)))
	require.True(t, s.Select("a"))
	require.True(t, s.BeginConnection("a"))

	require.True(t, s.RemoveComponent("a"))
	assert.Empty(t, s.SelectedComponent())
	assert.Empty(t, s.ConnectionStart())

	// References to surviving components are untouched.
	require.True(t, s.Select("b"))
	assert.False(t, s.RemoveInfoCard("none"))
	assert.Equal(t, "b", s.SelectedComponent())
}

func TestStore_SnapshotIsIsolatedCopy(t *testing.T) {
	s, _ := newTestStore(t)
	require.True(t, s.AddComponent(model.Component{
		ID: "a", Type: "service", Properties: map[string]any{"replicas": 3},
	}))

	snap := s.Snapshot()
	snap.Components[0].X = 999
	snap.Components[0].Properties["replicas"] = 0

	fresh := s.Snapshot()
	assert.Equal(t, float64(0), fresh.Components[0].X)
	assert.Equal(t, 3, fresh.Components[0].Properties["replicas"])
}

func TestStore_ConcurrentMutations(t *testing.T) {
	s, _ := newTestStore(t, WithGuard(guard.Config{Threshold: 10_000}))

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.AddComponent(comp(fmt.Sprintf("w%d-c%d", w, i), float64(i), float64(w)))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(workers*perWorker), s.Version())
	assert.Len(t, s.Snapshot().Components, workers*perWorker)
}

func TestStore_StateSharedAcrossVersions(t *testing.T) {
	s, _ := newTestStore(t)

	require.True(t, s.AddComponent(comp("a", 0, 0)))
	before := s.State()

	require.True(t, s.AddComponent(comp("b", 1, 0)))

	// The earlier state is an immutable version: still readable, still one
	// component, even though the store has moved on.
	assert.Len(t, before.ComponentIDs(), 1)
	assert.Len(t, s.State().ComponentIDs(), 2)
}
