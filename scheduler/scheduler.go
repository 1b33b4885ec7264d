// SPDX-License-Identifier: EPL-2.0

// Package scheduler implements admission, priority-ordered eviction,
// and the per-frame virtual/real rebalance: the VoiceScheduler that
// decides which requested sounds are actually audible when demand
// exceeds the backend's real-channel budget.
package scheduler

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/silverlode/voicecore/bus"
	"github.com/silverlode/voicecore/channel"
	"github.com/silverlode/voicecore/collection"
	"github.com/silverlode/voicecore/gainpan"
	"github.com/silverlode/voicecore/geom"
	"github.com/silverlode/voicecore/listener"
)

// ErrRefusedLowPriority is returned by Play when no free or evictable
// slot exists for a request at or below the current minimum priority.
var ErrRefusedLowPriority = errors.New("scheduler: refused, priority too low")

// ErrBackendStartFailed is returned by Play when the collection has no
// samples to choose from, or the backend refused to start a Real slot.
var ErrBackendStartFailed = errors.New("scheduler: backend refused to start")

// Rand is the minimal randomness surface Scheduler needs to draw a
// SampleSet entry; *rand.Rand satisfies it, and tests can substitute a
// deterministic stub.
type Rand interface {
	Float64() float64
}

// Scheduler owns the channel arena, the bus graph, and the listener
// pool, and drives the play/advance_frame/rebalance sequence over
// them.
type Scheduler struct {
	pool      *channel.Pool
	buses     *bus.Graph
	listeners *listener.Set
	rng       Rand

	masterGain float64
	muted      bool
	paused     bool
	frame      uint64

	// streamHandle tracks the single currently-playing stream-mode
	// channel: starting a new stream displaces whatever stream was
	// already playing.
	streamHandle   channel.Handle
	haveStreamSlot bool
}

// New constructs a Scheduler over an already-built channel pool, bus
// graph, and listener set. rng defaults to a package-seeded rand.Rand
// if nil.
func New(pool *channel.Pool, buses *bus.Graph, listeners *listener.Set, rng Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Scheduler{pool: pool, buses: buses, listeners: listeners, rng: rng, masterGain: 1}
}

// SetMasterGain sets the linear master gain applied at the bus root.
func (s *Scheduler) SetMasterGain(g float64) { s.masterGain = g }

// SetMute sets whether the master bus is silenced regardless of gain.
func (s *Scheduler) SetMute(m bool) { s.muted = m }

// Paused reports whether the engine is currently paused.
func (s *Scheduler) Paused() bool { return s.paused }

// Frame returns the number of AdvanceFrame calls so far.
func (s *Scheduler) Frame() uint64 { return s.frame }

// SetPaused pauses or resumes the whole engine. Pausing suspends only
// real backend playback of currently-Playing Real channels; resuming
// continues them from where they were, starting the backend for any
// channel that was admitted while paused and never actually reached it.
func (s *Scheduler) SetPaused(paused bool) {
	if s.paused == paused {
		return
	}
	s.paused = paused
	if paused {
		s.pauseAllReal()
	} else {
		s.resumeAllReal()
	}
}

func (s *Scheduler) pauseAllReal() {
	next := func(h channel.Handle) (channel.Handle, bool) { return s.pool.Next(h) }
	for h, ok := s.pool.Head(); ok; h, ok = next(h) {
		backing, err := s.pool.Backing(h)
		lifecycle, _ := s.pool.Lifecycle(h)
		if err == nil && backing.Real && lifecycle == channel.Playing {
			_ = s.pool.Pause(h)
		}
	}
}

func (s *Scheduler) resumeAllReal() {
	next := func(h channel.Handle) (channel.Handle, bool) { return s.pool.Next(h) }
	for h, ok := s.pool.Head(); ok; h, ok = next(h) {
		backing, err := s.pool.Backing(h)
		lifecycle, _ := s.pool.Lifecycle(h)
		if err == nil && backing.Real && lifecycle == channel.Paused {
			_ = s.pool.Resume(h)
		}
	}
}

// calcGainPan computes the request's gain and stereo pan: with no
// listener available a Positional source is silent; a Nonpositional
// source ignores distance but still needs a listener frame to project
// a stereo pan, so it too pans to center with no listener present.
func (s *Scheduler) calcGainPan(c *collection.Collection, loc geom.Vector3D, userGain float64) (float64, gainpan.Pan) {
	h, dSq, local, ok := s.listeners.Best(loc)
	_ = h
	if !ok {
		if c.Mode == collection.Positional {
			return 0, gainpan.Pan{}
		}
		return c.Gain * userGain, gainpan.Pan{}
	}

	pan := gainpan.FromListenerSpace(local)
	if c.Mode == collection.Nonpositional {
		return c.Gain * userGain, pan
	}
	atten := gainpan.DistanceAttenuation(dSq, c.AttenuationParams())
	return c.Gain * userGain * atten, pan
}

// Play runs the admission algorithm: compute the request's priority,
// find or free a slot for it, and start playback.
func (s *Scheduler) Play(c *collection.Collection, location geom.Vector3D, userGain float64) (channel.Handle, error) {
	if c.Stream && s.haveStreamSlot {
		if lifecycle, err := s.pool.Lifecycle(s.streamHandle); err == nil && lifecycle != channel.Stopped {
			_ = s.pool.Halt(s.streamHandle, s.buses)
		}
		s.haveStreamSlot = false
	}

	if c.Samples == nil || c.Samples.Len() == 0 {
		return channel.Handle{}, fmt.Errorf("%w: collection %q has no samples", ErrBackendStartFailed, c.Name)
	}

	g, pan := s.calcGainPan(c, location, userGain)
	prio := g * c.Priority

	h, err := s.admit(prio)
	if err != nil {
		return channel.Handle{}, err
	}

	draw := s.rng.Float64() * c.Samples.Total()
	chosen := c.Samples.Select(draw)

	if err := s.pool.StartPlaying(h, s.buses, c, chosen, g, pan, location, userGain, c.Loop, s.paused); err != nil {
		return channel.Handle{}, fmt.Errorf("%w: %v", ErrBackendStartFailed, err)
	}

	if c.Stream {
		s.streamHandle = h
		s.haveStreamSlot = true
	}
	return h, nil
}

// admit obtains a backing channel
// linked into L_play at the position dictated by prio.
func (s *Scheduler) admit(prio float64) (channel.Handle, error) {
	if !s.paused {
		if h, ok := s.pool.PopFreeReal(); ok {
			_ = s.pool.InsertAdmitted(h, prio)
			return h, nil
		}
	}
	if h, ok := s.pool.PopFreeVirtual(); ok {
		_ = s.pool.InsertAdmitted(h, prio)
		return h, nil
	}
	if tail, ok := s.pool.Tail(); ok {
		tailColl, _ := s.pool.Collection(tail)
		if h, ok := s.pool.EvictTail(prio); ok {
			if tailColl != nil {
				s.buses.Deactivate(tailColl.Bus)
			}
			return h, nil
		}
	}
	return channel.Handle{}, ErrRefusedLowPriority
}

// AdvanceFrame runs the per-frame sequence: finished
// sweep, bus update, gain/pan recompute, priority re-sort, rebalance.
func (s *Scheduler) AdvanceFrame(dt float64) {
	s.frame++

	for h, ok := s.pool.Head(); ok; {
		next, hasNext := s.pool.Next(h)
		_, _ = s.pool.UpdateState(h, s.buses)
		if hasNext {
			h, ok = next, true
		} else {
			ok = false
		}
	}

	s.buses.Update(dt, s.masterGain, s.muted)

	for h, ok := s.pool.Head(); ok; h, ok = s.pool.Next(h) {
		c, err := s.pool.Collection(h)
		if err != nil || c == nil {
			continue
		}
		loc, _ := s.pool.Location(h)
		userGain, _ := s.pool.UserGain(h)
		g, pan := s.calcGainPan(c, loc, userGain)
		_ = s.pool.SetComputedGain(h, g)
		_ = s.pool.SetPan(h, pan)
		_ = s.pool.PushGainPan(h, g*s.buses.FinalGain(c.Bus))
	}

	s.pool.ResortPlay()

	if !s.paused {
		s.rebalance()
	}
}

// rebalance runs the virtual/real reshuffle.
func (s *Scheduler) rebalance() {
	tailCursor, haveCursor := s.pool.Tail()

	h, ok := s.pool.Head()
	for ok {
		next, hasNext := s.pool.Next(h)

		backing, err := s.pool.Backing(h)
		if err == nil && !backing.Real {
			if f, ok2 := s.pool.PopFreeReal(); ok2 {
				_ = s.pool.DevirtualizeFromFree(h, f)
			} else {
				found, foundOK := s.findLowerPriorityReal(h, tailCursor, haveCursor)
				if !foundOK {
					return
				}
				prevOfFound, hasPrev := s.pool.Prev(found)
				_ = s.pool.DevirtualizeFromPlaying(h, found)
				tailCursor, haveCursor = prevOfFound, hasPrev
			}
		}

		if !hasNext {
			return
		}
		h, ok = next, true
	}
}

func (s *Scheduler) findLowerPriorityReal(v, cursor channel.Handle, haveCursor bool) (channel.Handle, bool) {
	if !haveCursor {
		return channel.Handle{}, false
	}
	vPrio, err := s.pool.Priority(v)
	if err != nil {
		return channel.Handle{}, false
	}
	r := cursor
	for {
		if r == v {
			return channel.Handle{}, false
		}
		backing, err := s.pool.Backing(r)
		prio, _ := s.pool.Priority(r)
		if err == nil && backing.Real && prio < vPrio {
			return r, true
		}
		prevR, hasPrev := s.pool.Prev(r)
		if !hasPrev {
			return channel.Handle{}, false
		}
		r = prevR
	}
}

// Pool exposes the underlying channel pool for read-only inspection
// (invariant tests, EngineCore handle plumbing).
func (s *Scheduler) Pool() *channel.Pool { return s.pool }

// Buses exposes the underlying bus graph.
func (s *Scheduler) Buses() *bus.Graph { return s.buses }

// Listeners exposes the underlying listener set.
func (s *Scheduler) Listeners() *listener.Set { return s.listeners }
