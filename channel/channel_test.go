// SPDX-License-Identifier: EPL-2.0

package channel

import (
	"testing"

	"github.com/silverlode/voicecore/backend/null"
	"github.com/silverlode/voicecore/bus"
	"github.com/silverlode/voicecore/collection"
	"github.com/silverlode/voicecore/gainpan"
	"github.com/silverlode/voicecore/geom"
	"github.com/silverlode/voicecore/sample"
)

func newTestGraph(t *testing.T) *bus.Graph {
	t.Helper()
	g, err := bus.Build([]bus.Def{{Name: "master", Gain: 1}})
	if err != nil {
		t.Fatalf("bus.Build() error = %v", err)
	}
	return g
}

func newTestCollection(g *bus.Graph, priority float64) *collection.Collection {
	c := collection.New("test", g.Master())
	c.Priority = priority
	c.Mode = collection.Nonpositional
	c.Samples = sample.NewSet([]sample.Entry{
		{Sample: &sample.Buffered{Rate: 44100, Ch: 1, PCM: []float32{0, 0}}, Probability: 1},
	})
	return c
}

func TestPool_AdmitAndStartPlaying_RealChannel(t *testing.T) {
	t.Parallel()

	be := null.New(1)
	p := NewPool(1, 0, be)
	buses := newTestGraph(t)
	c := newTestCollection(buses, 1)

	h, ok := p.PopFreeReal()
	if !ok {
		t.Fatal("PopFreeReal() = false, want a free real channel")
	}
	if err := p.InsertAdmitted(h, 1); err != nil {
		t.Fatalf("InsertAdmitted() error = %v", err)
	}
	if err := p.StartPlaying(h, buses, c, c.Samples.Select(0), 1, gainpan.Pan{}, geom.Vector3D{}, 1, false, false); err != nil {
		t.Fatalf("StartPlaying() error = %v", err)
	}

	lifecycle, err := p.Lifecycle(h)
	if err != nil || lifecycle != Playing {
		t.Fatalf("Lifecycle() = %v, %v, want Playing", lifecycle, err)
	}
	if !be.Occupied(0) {
		t.Error("backend slot 0 should be occupied after StartPlaying")
	}
	if buses.ActiveCount(c.Bus) != 1 {
		t.Errorf("master active_count = %d, want 1", buses.ActiveCount(c.Bus))
	}
}

func TestPool_Halt_ReturnsToMatchingFreeList(t *testing.T) {
	t.Parallel()

	be := null.New(1)
	p := NewPool(1, 1, be)
	buses := newTestGraph(t)
	c := newTestCollection(buses, 1)

	h, _ := p.PopFreeReal()
	_ = p.InsertAdmitted(h, 1)
	if err := p.StartPlaying(h, buses, c, c.Samples.Select(0), 1, gainpan.Pan{}, geom.Vector3D{}, 1, false, false); err != nil {
		t.Fatalf("StartPlaying() error = %v", err)
	}

	if err := p.Halt(h, buses); err != nil {
		t.Fatalf("Halt() error = %v", err)
	}
	if p.FreeRealLen() != 1 {
		t.Errorf("FreeRealLen() = %d, want 1 (halted channel was Real)", p.FreeRealLen())
	}
	if buses.ActiveCount(c.Bus) != 0 {
		t.Errorf("master active_count = %d, want 0 after Halt", buses.ActiveCount(c.Bus))
	}
	if be.Occupied(0) {
		t.Error("backend slot 0 should be released after Halt")
	}

	// The old handle must now be rejected: the arena slot's generation
	// was bumped when it returned to the free list.
	if _, err := p.Lifecycle(h); err != ErrInvalidHandle {
		t.Errorf("Lifecycle() on halted handle error = %v, want ErrInvalidHandle", err)
	}
}

func TestPool_EvictTail_RefusesAtExactTail(t *testing.T) {
	t.Parallel()

	be := null.New(1)
	p := NewPool(1, 0, be)
	buses := newTestGraph(t)
	high := newTestCollection(buses, 10)

	h, _ := p.PopFreeReal()
	_ = p.InsertAdmitted(h, 10)
	if err := p.StartPlaying(h, buses, high, high.Samples.Select(0), 1, gainpan.Pan{}, geom.Vector3D{}, 1, false, false); err != nil {
		t.Fatalf("StartPlaying() error = %v", err)
	}

	// A lower-priority request has nothing below it to evict.
	if _, ok := p.EvictTail(1); ok {
		t.Error("EvictTail(1) should refuse when 1 would land at the exact tail")
	}
	lifecycle, _ := p.Lifecycle(h)
	if lifecycle != Playing {
		t.Errorf("existing channel lifecycle = %v, want Playing (untouched)", lifecycle)
	}
}

func TestPool_EvictTail_ReusesSlotAndInvalidatesOldHandle(t *testing.T) {
	t.Parallel()

	be := null.New(1)
	p := NewPool(1, 0, be)
	buses := newTestGraph(t)
	c := newTestCollection(buses, 1)

	old, _ := p.PopFreeReal()
	_ = p.InsertAdmitted(old, 1)
	if err := p.StartPlaying(old, buses, c, c.Samples.Select(0), 1, gainpan.Pan{}, geom.Vector3D{}, 1, false, false); err != nil {
		t.Fatalf("StartPlaying() error = %v", err)
	}

	newH, ok := p.EvictTail(1)
	if !ok {
		t.Fatal("EvictTail(1) should succeed against an equal-priority sole occupant")
	}
	if newH == old {
		t.Fatal("EvictTail must invalidate the evicted handle's generation")
	}
	if _, err := p.Lifecycle(old); err != ErrInvalidHandle {
		t.Errorf("old handle error = %v, want ErrInvalidHandle", err)
	}
	backing, err := p.Backing(newH)
	if err != nil || !backing.Real {
		t.Errorf("Backing(newH) = %+v, %v, want Real (reused slot)", backing, err)
	}
}

func TestPool_DevirtualizeFromPlaying_KeepsLoserInPlayList(t *testing.T) {
	t.Parallel()

	be := null.New(1)
	p := NewPool(1, 1, be)
	buses := newTestGraph(t)
	low := newTestCollection(buses, 5)
	high := newTestCollection(buses, 10)

	realH, _ := p.PopFreeReal()
	_ = p.InsertAdmitted(realH, 5)
	if err := p.StartPlaying(realH, buses, low, low.Samples.Select(0), 1, gainpan.Pan{}, geom.Vector3D{}, 1, false, false); err != nil {
		t.Fatal(err)
	}

	virtH, _ := p.PopFreeVirtual()
	_ = p.InsertAdmitted(virtH, 10)
	if err := p.StartPlaying(virtH, buses, high, high.Samples.Select(0), 1, gainpan.Pan{}, geom.Vector3D{}, 1, false, false); err != nil {
		t.Fatal(err)
	}

	if err := p.DevirtualizeFromPlaying(virtH, realH); err != nil {
		t.Fatalf("DevirtualizeFromPlaying() error = %v", err)
	}

	vb, _ := p.Backing(virtH)
	if !vb.Real {
		t.Error("winner should now be Real")
	}
	rb, _ := p.Backing(realH)
	if rb.Real {
		t.Error("loser should now be Virtual")
	}
	lifecycle, _ := p.Lifecycle(realH)
	if lifecycle != Playing {
		t.Errorf("loser lifecycle = %v, want Playing (still tracked, just silent)", lifecycle)
	}
	if p.PlayLen() != 2 {
		t.Errorf("PlayLen() = %d, want 2 (loser stays in L_play)", p.PlayLen())
	}
	if !be.Occupied(0) {
		t.Error("slot 0 should now carry the winner's audio")
	}
}

