package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wallHarness struct {
	roster    *Roster
	positions []Vec3
	decisions []WallDecision
	sched     *WallToggleScheduler
}

func newWallHarness(walls ...Wall) *wallHarness {
	h := &wallHarness{roster: NewRoster(walls)}
	h.sched = NewWallToggleScheduler(h.roster, 2, 1, NewRand(7),
		func() []Vec3 { return h.positions },
		func(d WallDecision) { h.decisions = append(h.decisions, d) })
	return h
}

func TestRoster_IndexesAndBounds(t *testing.T) {
	r := NewRoster([]Wall{{Name: "a", Active: true}, {Name: "b"}})

	w, ok := r.At(1)
	require.True(t, ok)
	assert.Equal(t, 1, w.Index)
	assert.Equal(t, "b", w.Name)

	_, ok = r.At(2)
	assert.False(t, ok)
	assert.False(t, r.Set(-1, true))
	assert.False(t, r.Set(2, true))

	require.True(t, r.Set(1, true))
	assert.True(t, r.Walls()[1].Active)
}

func TestWallToggleScheduler_Decide(t *testing.T) {
	tests := []struct {
		name        string
		positions   []Vec3
		wantActive  bool
		wantFlipped bool
	}{
		{name: "nobody near", positions: []Vec3{{X: 5}, {Z: -5}}, wantActive: false, wantFlipped: true},
		{name: "someone inside threshold", positions: []Vec3{{X: 5}, {X: 0.5}}, wantActive: true},
		{name: "exactly at threshold flips", positions: []Vec3{{X: 1}}, wantActive: false, wantFlipped: true},
		{name: "no participants", wantActive: false, wantFlipped: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newWallHarness(Wall{Name: "w", Active: true})
			h.positions = tt.positions

			d := h.sched.Decide(0)
			assert.Equal(t, 0, d.Index)
			assert.Equal(t, tt.wantActive, d.Active)
			assert.Equal(t, tt.wantFlipped, d.Flipped)
		})
	}
}

func TestWallToggleScheduler_FirstFireAfterOneInterval(t *testing.T) {
	h := newWallHarness(Wall{Name: "w", Active: true})
	h.positions = []Vec3{{X: 10}}

	h.sched.Advance(2)
	assert.Empty(t, h.decisions, "not started")

	h.sched.Start()
	for range 3 {
		h.sched.Advance(0.5)
	}
	assert.Empty(t, h.decisions)

	h.sched.Advance(0.5)
	require.Len(t, h.decisions, 1)
	assert.Equal(t, WallDecision{Index: 0, Active: false, Flipped: true}, h.decisions[0])

	w, _ := h.roster.At(0)
	assert.False(t, w.Active, "roster follows the decision")
}

func TestWallToggleScheduler_CatchesUpWholeIntervals(t *testing.T) {
	h := newWallHarness(Wall{Name: "w"})
	h.positions = []Vec3{{X: 10}}

	h.sched.Start()
	h.sched.Advance(5)

	require.Len(t, h.decisions, 2)
	assert.True(t, h.decisions[0].Active)
	assert.False(t, h.decisions[1].Active)
}

func TestWallToggleScheduler_BlockedWallKeepsState(t *testing.T) {
	h := newWallHarness(Wall{Name: "w", Active: true})
	h.positions = []Vec3{{X: 0.25}}

	h.sched.Start()
	h.sched.Advance(2)

	require.Len(t, h.decisions, 1)
	assert.Equal(t, WallDecision{Index: 0, Active: true}, h.decisions[0])
}

func TestWallToggleScheduler_NothingAfterStop(t *testing.T) {
	h := newWallHarness(Wall{Name: "w", Active: true})

	h.sched.Start()
	h.sched.Advance(1.5)
	h.sched.Stop()
	h.sched.Stop()
	assert.False(t, h.sched.Running())

	h.sched.Advance(10)
	assert.Empty(t, h.decisions)

	// restarting begins a fresh interval
	h.sched.Start()
	h.sched.Advance(1.5)
	assert.Empty(t, h.decisions)
	h.sched.Advance(0.5)
	assert.Len(t, h.decisions, 1)
}

func TestWallToggleScheduler_EmptyRosterNeverEmits(t *testing.T) {
	h := newWallHarness()
	h.sched.Start()
	h.sched.Advance(10)
	assert.Empty(t, h.decisions)
}

func TestWallToggleScheduler_SameSeedSameChoices(t *testing.T) {
	walls := []Wall{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}}
	run := func() []int {
		h := newWallHarness(walls...)
		h.sched.Start()
		h.sched.Advance(20)
		var idx []int
		for _, d := range h.decisions {
			idx = append(idx, d.Index)
		}
		return idx
	}

	first := run()
	require.Len(t, first, 10)
	assert.Equal(t, first, run())
}
