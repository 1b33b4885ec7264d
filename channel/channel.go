// SPDX-License-Identifier: EPL-2.0

// Package channel implements the per-voice lifecycle state machine and
// the arena of channels shared by three intrusive lists. All channels
// live in one fixed-capacity arena; list membership is index-based
// prev/next links inside each arena entry rather than separately
// heap-allocated nodes, and handles are (index, generation) pairs so a
// stale reference is rejected rather than silently aliasing a reused
// slot.
package channel

import (
	"errors"
	"fmt"
	"sort"

	"github.com/silverlode/voicecore/backend"
	"github.com/silverlode/voicecore/bus"
	"github.com/silverlode/voicecore/collection"
	"github.com/silverlode/voicecore/gainpan"
	"github.com/silverlode/voicecore/geom"
	"github.com/silverlode/voicecore/sample"
)

// ErrInvalidHandle is returned by any Pool operation on a Handle that
// has since been halted and its slot possibly reused.
var ErrInvalidHandle = errors.New("channel: invalid handle")

// ErrBadTransition is returned by a lifecycle operation attempted from
// a state that does not permit it.
var ErrBadTransition = errors.New("channel: invalid lifecycle transition")

// Lifecycle is a channel's playback state.
type Lifecycle int

const (
	Stopped Lifecycle = iota
	Playing
	Paused
	FadingOut
)

func (l Lifecycle) String() string {
	switch l {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case FadingOut:
		return "fading-out"
	default:
		return "unknown"
	}
}

// Backing records whether a channel currently owns a real backend slot.
// It is a dynamic property of the channel, not a fixed capability: a
// channel's backing moves between Real and Virtual across its lifetime
// via devirtualization, and which free list an idle channel rests in
// always matches its *current* backing.
type Backing struct {
	Real bool
	Slot int
}

// Handle references a channel within a Pool. It is only valid for the
// Pool that produced it, and only until that channel halts.
type Handle struct {
	index      uint32
	generation uint32
}

// IsValid reports whether h has ever been issued (the zero Handle is
// never valid).
func (h Handle) IsValid() bool { return h.generation != 0 }

const invalidIndex = ^uint32(0)

type entry struct {
	generation uint32
	lifecycle  Lifecycle
	backing    Backing
	// backendStarted tracks whether backend.Start has actually been
	// called for this channel's current Real occupancy. A channel
	// admitted while the engine is paused becomes logically Playing
	// without ever reaching the backend until the engine resumes.
	backendStarted bool

	collection   *collection.Collection
	chosenSample sample.Sample
	loop         bool
	userGain     float64
	computedGain float64
	location     geom.Vector3D
	pan          gainpan.Pan

	// L_play links; invalidIndex when not linked (i.e. currently in a
	// free list instead).
	prev, next uint32
}

func (e *entry) priority() float64 {
	if e.collection == nil {
		return 0
	}
	return e.computedGain * e.collection.Priority
}

// Pool is the fixed-capacity channel arena plus its three disjoint
// lists: L_play (priority-ordered, doubly linked through
// entry.prev/next), L_free_real, and L_free_virtual (simple stacks,
// since order among idle channels of the same backing is immaterial).
type Pool struct {
	entries []entry
	backend backend.Backend

	freeReal    []uint32
	freeVirtual []uint32

	playHead, playTail uint32
	playLen            int
}

// NewPool allocates nReal+nVirtual channels. The first nReal start
// backed by real slots 0..nReal-1; the remaining nVirtual start
// Virtual. All begin idle, in the free list matching their backing.
func NewPool(nReal, nVirtual int, be backend.Backend) *Pool {
	n := nReal + nVirtual
	p := &Pool{
		entries:  make([]entry, n),
		backend:  be,
		playHead: invalidIndex,
		playTail: invalidIndex,
	}
	for i := 0; i < n; i++ {
		e := &p.entries[i]
		e.generation = 1
		e.prev, e.next = invalidIndex, invalidIndex
		if i < nReal {
			e.backing = Backing{Real: true, Slot: i}
			p.freeReal = append(p.freeReal, uint32(i))
		} else {
			p.freeVirtual = append(p.freeVirtual, uint32(i))
		}
	}
	return p
}

// Capacity returns the total number of channels (N_real + N_virtual).
func (p *Pool) Capacity() int { return len(p.entries) }

// PlayLen returns |L_play|.
func (p *Pool) PlayLen() int { return p.playLen }

// FreeRealLen returns |L_free_real|.
func (p *Pool) FreeRealLen() int { return len(p.freeReal) }

// FreeVirtualLen returns |L_free_virtual|.
func (p *Pool) FreeVirtualLen() int { return len(p.freeVirtual) }

func (p *Pool) handleFor(idx uint32) Handle {
	return Handle{index: idx, generation: p.entries[idx].generation}
}

func (p *Pool) live(h Handle) (*entry, uint32, error) {
	if !h.IsValid() || int(h.index) >= len(p.entries) {
		return nil, 0, ErrInvalidHandle
	}
	e := &p.entries[h.index]
	if e.generation != h.generation {
		return nil, 0, ErrInvalidHandle
	}
	return e, h.index, nil
}

// --- L_play navigation, for the scheduler's priority scans ---

// Head returns the highest-priority channel in L_play.
func (p *Pool) Head() (Handle, bool) {
	if p.playHead == invalidIndex {
		return Handle{}, false
	}
	return p.handleFor(p.playHead), true
}

// Tail returns the lowest-priority channel in L_play.
func (p *Pool) Tail() (Handle, bool) {
	if p.playTail == invalidIndex {
		return Handle{}, false
	}
	return p.handleFor(p.playTail), true
}

// Next returns the channel immediately after h in L_play (lower
// priority), if any.
func (p *Pool) Next(h Handle) (Handle, bool) {
	e, _, err := p.live(h)
	if err != nil || e.next == invalidIndex {
		return Handle{}, false
	}
	return p.handleFor(e.next), true
}

// Prev returns the channel immediately before h in L_play (higher
// priority), if any.
func (p *Pool) Prev(h Handle) (Handle, bool) {
	e, _, err := p.live(h)
	if err != nil || e.prev == invalidIndex {
		return Handle{}, false
	}
	return p.handleFor(e.prev), true
}

// --- accessors ---

func (p *Pool) Lifecycle(h Handle) (Lifecycle, error) {
	e, _, err := p.live(h)
	if err != nil {
		return Stopped, err
	}
	return e.lifecycle, nil
}

func (p *Pool) Backing(h Handle) (Backing, error) {
	e, _, err := p.live(h)
	if err != nil {
		return Backing{}, err
	}
	return e.backing, nil
}

func (p *Pool) Priority(h Handle) (float64, error) {
	e, _, err := p.live(h)
	if err != nil {
		return 0, err
	}
	return e.priority(), nil
}

func (p *Pool) Collection(h Handle) (*collection.Collection, error) {
	e, _, err := p.live(h)
	if err != nil {
		return nil, err
	}
	return e.collection, nil
}

func (p *Pool) Sample(h Handle) (sample.Sample, error) {
	e, _, err := p.live(h)
	if err != nil {
		return nil, err
	}
	return e.chosenSample, nil
}

func (p *Pool) UserGain(h Handle) (float64, error) {
	e, _, err := p.live(h)
	if err != nil {
		return 0, err
	}
	return e.userGain, nil
}

func (p *Pool) SetUserGain(h Handle, g float64) error {
	e, _, err := p.live(h)
	if err != nil {
		return err
	}
	e.userGain = g
	return nil
}

func (p *Pool) ComputedGain(h Handle) (float64, error) {
	e, _, err := p.live(h)
	if err != nil {
		return 0, err
	}
	return e.computedGain, nil
}

func (p *Pool) SetComputedGain(h Handle, g float64) error {
	e, _, err := p.live(h)
	if err != nil {
		return err
	}
	e.computedGain = g
	return nil
}

func (p *Pool) Pan(h Handle) (gainpan.Pan, error) {
	e, _, err := p.live(h)
	if err != nil {
		return gainpan.Pan{}, err
	}
	return e.pan, nil
}

func (p *Pool) SetPan(h Handle, pan gainpan.Pan) error {
	e, _, err := p.live(h)
	if err != nil {
		return err
	}
	e.pan = pan
	return nil
}

func (p *Pool) Location(h Handle) (geom.Vector3D, error) {
	e, _, err := p.live(h)
	if err != nil {
		return geom.Vector3D{}, err
	}
	return e.location, nil
}

func (p *Pool) SetLocation(h Handle, loc geom.Vector3D) error {
	e, _, err := p.live(h)
	if err != nil {
		return err
	}
	e.location = loc
	return nil
}

// IsPlaying reports whether h is logically Playing or FadingOut. It
// does not query the backend; UpdateState is what demotes a channel
// whose backend has naturally finished.
func (p *Pool) IsPlaying(h Handle) (bool, error) {
	e, _, err := p.live(h)
	if err != nil {
		return false, err
	}
	return e.lifecycle == Playing || e.lifecycle == FadingOut, nil
}

// --- L_play list primitives ---

func (p *Pool) unlinkPlay(idx uint32) {
	e := &p.entries[idx]
	if e.prev != invalidIndex {
		p.entries[e.prev].next = e.next
	} else {
		p.playHead = e.next
	}
	if e.next != invalidIndex {
		p.entries[e.next].prev = e.prev
	} else {
		p.playTail = e.prev
	}
	e.prev, e.next = invalidIndex, invalidIndex
	p.playLen--
}

// insertPlayAfter links idx into L_play immediately after afterIdx
// (toward the tail side), or at the head if afterIdx is invalidIndex.
func (p *Pool) insertPlayAfter(idx, afterIdx uint32) {
	e := &p.entries[idx]
	if afterIdx == invalidIndex {
		e.prev = invalidIndex
		e.next = p.playHead
		if p.playHead != invalidIndex {
			p.entries[p.playHead].prev = idx
		} else {
			p.playTail = idx
		}
		p.playHead = idx
	} else {
		after := &p.entries[afterIdx]
		e.prev = afterIdx
		e.next = after.next
		if after.next != invalidIndex {
			p.entries[after.next].prev = idx
		} else {
			p.playTail = idx
		}
		after.next = idx
	}
	p.playLen++
}

// findInsertionPoint scans L_play from the tail toward the head and
// returns the index of the first node whose priority is strictly
// greater than prio, or invalidIndex if none (insert at head).
// InsertAdmitted and EvictTail use it to place a new channel.
func (p *Pool) findInsertionPoint(prio float64) uint32 {
	idx := p.playTail
	for idx != invalidIndex {
		if p.entries[idx].priority() > prio {
			return idx
		}
		idx = p.entries[idx].prev
	}
	return invalidIndex
}

// --- free-list primitives ---

func (p *Pool) popFreeReal() (uint32, bool) {
	if len(p.freeReal) == 0 {
		return 0, false
	}
	idx := p.freeReal[len(p.freeReal)-1]
	p.freeReal = p.freeReal[:len(p.freeReal)-1]
	return idx, true
}

func (p *Pool) popFreeVirtual() (uint32, bool) {
	if len(p.freeVirtual) == 0 {
		return 0, false
	}
	idx := p.freeVirtual[len(p.freeVirtual)-1]
	p.freeVirtual = p.freeVirtual[:len(p.freeVirtual)-1]
	return idx, true
}

func (p *Pool) pushFree(idx uint32) {
	if p.entries[idx].backing.Real {
		p.freeReal = append(p.freeReal, idx)
	} else {
		p.freeVirtual = append(p.freeVirtual, idx)
	}
}

// HasFreeReal reports whether L_free_real is non-empty.
func (p *Pool) HasFreeReal() bool { return len(p.freeReal) > 0 }

// HasFreeVirtual reports whether L_free_virtual is non-empty.
func (p *Pool) HasFreeVirtual() bool { return len(p.freeVirtual) > 0 }

// PopFreeReal pops and returns a handle to an idle real-backed channel.
func (p *Pool) PopFreeReal() (Handle, bool) {
	idx, ok := p.popFreeReal()
	if !ok {
		return Handle{}, false
	}
	return p.handleFor(idx), true
}

// PopFreeVirtual pops and returns a handle to an idle virtual-backed
// channel.
func (p *Pool) PopFreeVirtual() (Handle, bool) {
	idx, ok := p.popFreeVirtual()
	if !ok {
		return Handle{}, false
	}
	return p.handleFor(idx), true
}

// InsertAdmitted links a freshly popped (Stopped, idle) channel into
// L_play at the position dictated by prio, generalizing the admission
// insertion scan to whatever handle the scheduler already
// obtained from a free list.
func (p *Pool) InsertAdmitted(h Handle, prio float64) error {
	e, idx, err := p.live(h)
	if err != nil {
		return err
	}
	if e.lifecycle != Stopped {
		return fmt.Errorf("%w: InsertAdmitted on a non-Stopped channel", ErrBadTransition)
	}
	after := p.findInsertionPoint(prio)
	p.insertPlayAfter(idx, after)
	return nil
}

// EvictTail halts and reuses L_play's current tail entry in place: the
// same arena slot (and its current Real/Virtual backing) becomes the
// caller's new channel, unlinked and reinserted at the position
// dictated by prio. It refuses (ok=false) if the computed insertion
// point for prio is exactly the
// current tail — i.e. there is no lower-priority channel to evict.
func (p *Pool) EvictTail(prio float64) (h Handle, ok bool) {
	after := p.findInsertionPoint(prio)
	if p.playTail == invalidIndex || after == p.playTail {
		return Handle{}, false
	}
	tailIdx := p.playTail
	p.haltInPlace(tailIdx)
	p.unlinkPlay(tailIdx)
	p.entries[tailIdx].generation++
	p.insertPlayAfter(tailIdx, after)
	return p.handleFor(tailIdx), true
}

// haltInPlace stops idx's backend occupancy and clears its collection
// and sample without returning it to a free list, since the caller
// immediately reuses the arena slot for a new channel. It does not
// touch the bus graph; the scheduler deactivates the evicted channel's
// bus once EvictTail succeeds.
func (p *Pool) haltInPlace(idx uint32) {
	e := &p.entries[idx]
	if e.backing.Real && e.backendStarted {
		p.backend.Halt(e.backing.Slot)
	}
	e.lifecycle = Stopped
	e.backendStarted = false
	e.collection = nil
	e.chosenSample = nil
}

// --- lifecycle transitions ---

// StartPlaying performs the transition into Playing from Stopped for
// a channel already linked into L_play by InsertAdmitted
// or EvictTail: it links into collection's bus (incrementing
// active_count) and, if h is Real and the engine is not paused, calls
// backend.Start. On backend failure it reverts the bus link, unlinks
// from L_play, and returns h to its matching free list.
func (p *Pool) StartPlaying(h Handle, buses *bus.Graph, c *collection.Collection, s sample.Sample, computedGain float64, pan gainpan.Pan, loc geom.Vector3D, userGain float64, loop bool, enginePaused bool) error {
	e, idx, err := p.live(h)
	if err != nil {
		return err
	}
	if e.lifecycle != Stopped {
		return fmt.Errorf("%w: StartPlaying on a non-Stopped channel", ErrBadTransition)
	}

	e.collection = c
	e.chosenSample = s
	e.computedGain = computedGain
	e.pan = pan
	e.location = loc
	e.userGain = userGain
	e.loop = loop

	buses.Activate(c.Bus)
	e.lifecycle = Playing

	if e.backing.Real && !enginePaused {
		if !p.backend.Start(e.backing.Slot, s, loop) {
			buses.Deactivate(c.Bus)
			e.lifecycle = Stopped
			e.collection = nil
			e.chosenSample = nil
			p.unlinkPlay(idx)
			p.entries[idx].generation++
			p.pushFree(idx)
			return fmt.Errorf("channel: backend refused slot %d", e.backing.Slot)
		}
		e.backendStarted = true
	}
	return nil
}

// Halt performs the transition into Stopped from any non-Stopped
// state: unlinks from L_play, deactivates the bound bus,
// stops the backend slot if one was ever actually started, and returns
// the channel to the free list matching its current backing.
func (p *Pool) Halt(h Handle, buses *bus.Graph) error {
	e, idx, err := p.live(h)
	if err != nil {
		return err
	}
	if e.lifecycle == Stopped {
		return nil
	}
	if e.backing.Real && e.backendStarted {
		p.backend.Halt(e.backing.Slot)
	}
	if e.collection != nil {
		buses.Deactivate(e.collection.Bus)
	}
	e.lifecycle = Stopped
	e.backendStarted = false
	e.collection = nil
	e.chosenSample = nil
	p.unlinkPlay(idx)
	p.entries[idx].generation++
	p.pushFree(idx)
	return nil
}

// Pause performs the Playing -> Paused transition.
func (p *Pool) Pause(h Handle) error {
	e, _, err := p.live(h)
	if err != nil {
		return err
	}
	if e.lifecycle != Playing {
		return fmt.Errorf("%w: Pause requires Playing", ErrBadTransition)
	}
	if e.backing.Real && e.backendStarted {
		p.backend.Pause(e.backing.Slot)
	}
	e.lifecycle = Paused
	return nil
}

// Resume performs the Paused -> Playing transition. A channel that was
// admitted while the engine itself was paused (and so never actually
// reached the backend) is started now instead of resumed.
func (p *Pool) Resume(h Handle) error {
	e, _, err := p.live(h)
	if err != nil {
		return err
	}
	if e.lifecycle != Paused {
		return fmt.Errorf("%w: Resume requires Paused", ErrBadTransition)
	}
	if e.backing.Real {
		if e.backendStarted {
			p.backend.Resume(e.backing.Slot)
		} else if p.backend.Start(e.backing.Slot, e.chosenSample, e.loop) {
			e.backendStarted = true
		}
	}
	e.lifecycle = Playing
	return nil
}

// FadeOut performs the Playing -> FadingOut transition.
func (p *Pool) FadeOut(h Handle, ms int) error {
	e, _, err := p.live(h)
	if err != nil {
		return err
	}
	if e.lifecycle != Playing {
		return fmt.Errorf("%w: FadeOut requires Playing", ErrBadTransition)
	}
	if e.backing.Real && e.backendStarted {
		p.backend.FadeOut(e.backing.Slot, ms)
	}
	e.lifecycle = FadingOut
	return nil
}

// UpdateState probes the backend for Real Playing/FadingOut channels
// and demotes them to Stopped once the backend reports the slot is no
// longer playing (looping samples never report this, so only
// non-looping and fading channels
// are ever affected in practice). It returns true if h transitioned to
// Stopped.
func (p *Pool) UpdateState(h Handle, buses *bus.Graph) (stopped bool, err error) {
	e, _, err := p.live(h)
	if err != nil {
		return false, err
	}
	if !e.backing.Real || !e.backendStarted {
		return false, nil
	}
	if e.lifecycle != Playing && e.lifecycle != FadingOut {
		return false, nil
	}
	if p.backend.IsPlaying(e.backing.Slot) {
		return false, nil
	}
	return true, p.Halt(h, buses)
}

// PushGainPan sends a Real channel's just-recomputed gain and pan to
// the backend. It is a no-op for Virtual channels and for Real
// channels that have not yet actually reached
// the backend (paused-engine admission).
func (p *Pool) PushGainPan(h Handle, gain float64) error {
	e, _, err := p.live(h)
	if err != nil {
		return err
	}
	if !e.backing.Real || !e.backendStarted {
		return nil
	}
	p.backend.SetGain(e.backing.Slot, gain)
	p.backend.SetPan(e.backing.Slot, e.pan.X, e.pan.Y)
	return nil
}

// DevirtualizeFromFree transfers idle real-backable capacity fh (an
// idle channel just popped from L_free_real) onto Virtual channel v,
// the devirtualization primitive. fh must not be linked into L_play;
// it becomes Virtual and is pushed onto L_free_virtual.
func (p *Pool) DevirtualizeFromFree(v Handle, fh Handle) error {
	ve, _, err := p.live(v)
	if err != nil {
		return err
	}
	fe, fidx, err := p.live(fh)
	if err != nil {
		return err
	}
	ve.backing, fe.backing = fe.backing, Backing{Real: false}
	p.startTransferredBacking(ve)
	p.freeVirtual = append(p.freeVirtual, fidx)
	return nil
}

// DevirtualizeFromPlaying swaps backing between Virtual channel v and
// currently-Real, lower-priority channel r, both linked in L_play. r
// keeps its place in L_play — it continues to be tracked, only silent
// — so a channel that loses its real slot to a higher-priority
// arrival can later reclaim a real slot
// itself once one frees up.
func (p *Pool) DevirtualizeFromPlaying(v, r Handle) error {
	ve, _, err := p.live(v)
	if err != nil {
		return err
	}
	re, _, err := p.live(r)
	if err != nil {
		return err
	}
	ve.backing, re.backing = re.backing, Backing{Real: false}
	re.backendStarted = false
	p.startTransferredBacking(ve)
	return nil
}

// ResortPlay stably re-sorts L_play by descending priority, preserving
// existing relative order among equal-priority entries. Because
// insertion always places a new equal-priority
// channel ahead of existing peers, that recency ordering survives
// arbitrarily many stable re-sorts.
func (p *Pool) ResortPlay() {
	if p.playLen <= 1 {
		return
	}
	order := make([]uint32, 0, p.playLen)
	for idx := p.playHead; idx != invalidIndex; idx = p.entries[idx].next {
		order = append(order, idx)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return p.entries[order[i]].priority() > p.entries[order[j]].priority()
	})
	p.playHead = order[0]
	p.playTail = order[len(order)-1]
	for i, idx := range order {
		e := &p.entries[idx]
		if i == 0 {
			e.prev = invalidIndex
		} else {
			e.prev = order[i-1]
		}
		if i == len(order)-1 {
			e.next = invalidIndex
		} else {
			e.next = order[i+1]
		}
	}
}

func (p *Pool) startTransferredBacking(ve *entry) {
	if ve.lifecycle == Playing {
		ve.backendStarted = p.backend.Start(ve.backing.Slot, ve.chosenSample, ve.loop)
	} else if ve.lifecycle == Paused {
		ve.backendStarted = p.backend.Start(ve.backing.Slot, ve.chosenSample, ve.loop)
		if ve.backendStarted {
			p.backend.Pause(ve.backing.Slot)
		}
	}
}
