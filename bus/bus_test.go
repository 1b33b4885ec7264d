// SPDX-License-Identifier: EPL-2.0

package bus

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/silverlode/voicecore/internal/enginetest"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func simpleGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Build([]Def{
		{Name: "master", Gain: 1, ChildBuses: []string{"sfx", "music"}},
		{Name: "sfx", Gain: 1},
		{Name: "music", Gain: 1},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestBuild_RequiresMaster(t *testing.T) {
	t.Parallel()

	_, err := Build([]Def{{Name: "sfx", Gain: 1}})
	if !errors.Is(err, ErrNoMaster) {
		t.Errorf("Build() error = %v, want ErrNoMaster", err)
	}
}

func TestBuild_RejectsUnknownChild(t *testing.T) {
	t.Parallel()

	_, err := Build([]Def{
		{Name: "master", Gain: 1, ChildBuses: []string{"ghost"}},
	})
	if !errors.Is(err, ErrUnknownBus) {
		t.Errorf("Build() error = %v, want ErrUnknownBus", err)
	}
}

func TestBuild_RejectsUnknownDuck(t *testing.T) {
	t.Parallel()

	_, err := Build([]Def{
		{Name: "master", Gain: 1, DuckBuses: []string{"ghost"}},
	})
	if !errors.Is(err, ErrUnknownBus) {
		t.Errorf("Build() error = %v, want ErrUnknownBus", err)
	}
}

func TestGraph_MasterFinalGain(t *testing.T) {
	t.Parallel()

	g := simpleGraph(t)
	master := g.Master()

	g.Update(1.0/60, 0.8, false)
	if got := g.FinalGain(master); !almostEqual(got, 0.8) {
		t.Errorf("unmuted final gain = %v, want 0.8", got)
	}

	g.Update(1.0/60, 0.8, true)
	if got := g.FinalGain(master); got != 0 {
		t.Errorf("muted final gain = %v, want 0", got)
	}
}

func TestGraph_GainPropagatesToChildren(t *testing.T) {
	t.Parallel()

	g := simpleGraph(t)
	sfx := g.Find("sfx")
	g.SetGain(sfx, 0.5)

	g.Update(1.0/60, 1.0, false)
	if got := g.FinalGain(sfx); !almostEqual(got, 0.5) {
		t.Errorf("sfx final gain = %v, want 0.5", got)
	}
}

func TestGraph_ActiveCountTracking(t *testing.T) {
	t.Parallel()

	g := simpleGraph(t)
	sfx := g.Find("sfx")

	g.Activate(sfx)
	g.Activate(sfx)
	if got := g.ActiveCount(sfx); got != 2 {
		t.Errorf("ActiveCount() = %v, want 2", got)
	}
	g.Deactivate(sfx)
	if got := g.ActiveCount(sfx); got != 1 {
		t.Errorf("ActiveCount() = %v, want 1", got)
	}
	g.Deactivate(sfx)
	g.Deactivate(sfx) // must not go negative
	if got := g.ActiveCount(sfx); got != 0 {
		t.Errorf("ActiveCount() = %v, want 0", got)
	}
}

// TestGraph_DuckFadeSchedule checks a duck relationship where bus A
// ducks bus B by 0.25 with a 1s fade-in and 2s fade-out.
func TestGraph_DuckFadeSchedule(t *testing.T) {
	t.Parallel()

	g, err := Build([]Def{
		{Name: "master", Gain: 1, ChildBuses: []string{"a", "b"}},
		{Name: "a", Gain: 1, DuckBuses: []string{"b"}, DuckGain: 0.25, DuckFadeInTime: 1.0, DuckFadeOutTime: 2.0},
		{Name: "b", Gain: 1},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	a := g.Find("a")
	b := g.Find("b")
	clock := enginetest.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	// t=0: a's sound starts.
	g.Activate(a)

	// t=0.5: half-way through the 1s fade-in.
	g.Update(clock.Advance(500*time.Millisecond), 1, false)
	if got := g.FinalGain(b); !almostEqual(got, 0.625) {
		t.Errorf("t=0.5: b final gain = %v, want 0.625", got)
	}

	// t=1.0: fade-in completes just as the sound ends.
	g.Update(clock.Advance(500*time.Millisecond), 1, false)
	g.Deactivate(a)
	if got := g.FinalGain(b); !almostEqual(got, 0.25) {
		t.Errorf("t=1.0: b final gain = %v, want 0.25 (fully ducked)", got)
	}

	// t=2.0: halfway back through the 2s fade-out.
	g.Update(clock.Advance(time.Second), 1, false)
	if got := g.FinalGain(b); !almostEqual(got, 0.625) {
		t.Errorf("t=2.0: b final gain = %v, want 0.625", got)
	}

	// t=3.0: fully recovered.
	g.Update(clock.Advance(time.Second), 1, false)
	if got := g.FinalGain(b); !almostEqual(got, 1.0) {
		t.Errorf("t=3.0: b final gain = %v, want 1.0", got)
	}
}

func TestGraph_DuckIsMinAcrossMultipleDuckers(t *testing.T) {
	t.Parallel()

	g, err := Build([]Def{
		{Name: "master", Gain: 1, ChildBuses: []string{"a", "c", "b"}},
		{Name: "a", Gain: 1, DuckBuses: []string{"b"}, DuckGain: 0.5, DuckFadeInTime: 0, DuckFadeOutTime: 0},
		{Name: "c", Gain: 1, DuckBuses: []string{"b"}, DuckGain: 0.1, DuckFadeInTime: 0, DuckFadeOutTime: 0},
		{Name: "b", Gain: 1},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	a, c, b := g.Find("a"), g.Find("c"), g.Find("b")
	g.Activate(a)
	g.Activate(c)
	g.Update(1, 1, false)

	if got := g.FinalGain(b); !almostEqual(got, 0.1) {
		t.Errorf("b final gain = %v, want 0.1 (most aggressive ducker wins)", got)
	}
}

func TestGraph_FadeToImmediateAtZeroDuration(t *testing.T) {
	t.Parallel()

	g := simpleGraph(t)
	sfx := g.Find("sfx")
	g.FadeTo(sfx, 0.3, 0)
	if got := g.Gain(sfx); !almostEqual(got, 0.3) {
		t.Errorf("Gain() after zero-duration FadeTo = %v, want 0.3", got)
	}
}

func TestGraph_FadeToOverTime(t *testing.T) {
	t.Parallel()

	g := simpleGraph(t)
	sfx := g.Find("sfx")
	g.FadeTo(sfx, 0, 2.0)
	clock := enginetest.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	g.Update(clock.Advance(time.Second), 1, false)
	if got := g.Gain(sfx); !almostEqual(got, 0.5) {
		t.Errorf("Gain() halfway through fade = %v, want 0.5", got)
	}

	g.Update(clock.Advance(time.Second), 1, false)
	if got := g.Gain(sfx); !almostEqual(got, 0) {
		t.Errorf("Gain() after fade completes = %v, want 0", got)
	}
}

func TestGraph_FindUnknownReturnsInvalidHandle(t *testing.T) {
	t.Parallel()

	g := simpleGraph(t)
	if h := g.Find("ghost"); h.IsValid() {
		t.Error("Find() on unknown name should return an invalid handle")
	}
}
