// SPDX-License-Identifier: EPL-2.0

// Package null provides a deterministic, allocation-free mixer backend
// that performs no real I/O. It is used by cmd/voicedemo's headless
// mode and by the channel, scheduler, and engine tests: a scriptable
// stand-in for real hardware.
package null

import "github.com/silverlode/voicecore/sample"

type slotState struct {
	occupied bool
	playing  bool
	paused   bool
	loop     bool
	sample   sample.Sample
	gain     float64
	panX     float64
	panZ     float64
	fadingMs int
}

// Backend is a fixed-slot mixer backend that only tracks state; it
// never produces audio. Tests can force a slot to report finished via
// Finish, simulating the natural end of a non-looping sample.
type Backend struct {
	slots []slotState
}

// New constructs a Backend with slotCount real-channel slots.
func New(slotCount int) *Backend {
	return &Backend{slots: make([]slotState, slotCount)}
}

func (b *Backend) SlotCount() int { return len(b.slots) }

func (b *Backend) Start(slot int, s sample.Sample, loop bool) bool {
	sl := &b.slots[slot]
	sl.occupied = true
	sl.playing = true
	sl.paused = false
	sl.loop = loop
	sl.sample = s
	sl.fadingMs = 0
	return true
}

func (b *Backend) Halt(slot int) {
	sl := &b.slots[slot]
	*sl = slotState{}
}

func (b *Backend) Pause(slot int) {
	sl := &b.slots[slot]
	if sl.occupied {
		sl.paused = true
	}
}

func (b *Backend) Resume(slot int) {
	sl := &b.slots[slot]
	if sl.occupied {
		sl.paused = false
	}
}

func (b *Backend) SetGain(slot int, gain float64) { b.slots[slot].gain = gain }
func (b *Backend) SetPan(slot int, x, z float64)  { b.slots[slot].panX, b.slots[slot].panZ = x, z }

func (b *Backend) IsPlaying(slot int) bool {
	sl := &b.slots[slot]
	return sl.occupied && sl.playing
}

func (b *Backend) FadeOut(slot int, ms int) {
	sl := &b.slots[slot]
	if sl.occupied {
		sl.fadingMs = ms
	}
}

// Finish is a test hook that simulates the backend reporting a slot's
// sample as naturally finished (e.g. a non-looping sample ran out, or a
// scripted fade-out completed).
func (b *Backend) Finish(slot int) {
	b.slots[slot].playing = false
}

// Gain returns slot's most recently set gain, for test assertions.
func (b *Backend) Gain(slot int) float64 { return b.slots[slot].gain }

// Pan returns slot's most recently set pan, for test assertions.
func (b *Backend) Pan(slot int) (x, z float64) {
	sl := &b.slots[slot]
	return sl.panX, sl.panZ
}

// Occupied reports whether Start has been called on slot without a
// following Halt.
func (b *Backend) Occupied(slot int) bool { return b.slots[slot].occupied }

// Paused reports whether slot is currently paused.
func (b *Backend) Paused(slot int) bool { return b.slots[slot].paused }

// FadingMs returns the milliseconds passed to the most recent FadeOut
// on slot, or 0 if none is in progress.
func (b *Backend) FadingMs(slot int) int { return b.slots[slot].fadingMs }
