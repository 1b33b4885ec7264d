// SPDX-License-Identifier: EPL-2.0

// Package backend defines the mixer-backend trait the engine core
// drives: a sink exposing a fixed-capacity set of opaque real-channel
// slots.
package backend

import "github.com/silverlode/voicecore/sample"

// Backend exposes N fixed real-channel slots, numbered 0..SlotCount()-1.
// No slot is ever driven by two channels at once; ownership transfer
// (devirtualization) is entirely the caller's responsibility.
type Backend interface {
	// Start assigns s to slot and begins playback, looping if loop is
	// true. It returns false if the slot could not start (e.g. the
	// sample is unplayable), leaving the slot's prior state untouched.
	Start(slot int, s sample.Sample, loop bool) bool
	// Halt stops slot immediately and releases its sample reference.
	Halt(slot int)
	// Pause suspends slot without releasing its sample reference.
	Pause(slot int)
	// Resume continues a paused slot from where it left off.
	Resume(slot int)
	// SetGain sets slot's linear output gain.
	SetGain(slot int, gain float64)
	// SetPan sets slot's stereo/positional pan.
	SetPan(slot int, x, z float64)
	// IsPlaying reports whether slot is still producing audio. It
	// returns false once a non-looping sample finishes naturally.
	IsPlaying(slot int) bool
	// FadeOut begins an ms-millisecond linear fade to silence, after
	// which the backend is expected to report IsPlaying as false.
	FadeOut(slot int, ms int)
	// SlotCount returns the number of real-channel slots this backend
	// exposes.
	SlotCount() int
}
