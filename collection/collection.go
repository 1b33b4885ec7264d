// SPDX-License-Identifier: EPL-2.0

// Package collection implements the named SoundCollection entity: a
// SampleSet plus playback parameters (gain, priority, loop, stream,
// attenuation curve, bus binding) and the reference count
// that governs its lifetime under SoundBank loading/unloading.
package collection

import (
	"github.com/silverlode/voicecore/bus"
	"github.com/silverlode/voicecore/gainpan"
	"github.com/silverlode/voicecore/sample"
)

// AttenuationMode selects whether a collection's gain depends on 3D
// distance to the listener.
type AttenuationMode int

const (
	// Positional sources attenuate with distance; with no listener
	// available they are silent.
	Positional AttenuationMode = iota
	// Nonpositional sources ignore distance entirely.
	Nonpositional
)

// Collection is one named SoundCollection.
type Collection struct {
	Name string
	Bus  bus.Handle

	Gain     float64
	Priority float64
	Loop     bool
	Stream   bool
	Mode     AttenuationMode

	MinAudibleRadius   float64
	RollInRadius       float64
	RollOutRadius      float64
	MaxAudibleRadius   float64
	RollInCurveFactor  float64
	RollOutCurveFactor float64

	Samples *sample.Set

	refCount int
}

// New constructs a Collection with a reference count of zero; the
// caller (typically bank.Registry) is expected to Retain it before
// handing out any reference.
func New(name string, busHandle bus.Handle) *Collection {
	return &Collection{Name: name, Bus: busHandle, Gain: 1, Priority: 0}
}

// AttenuationParams adapts a Collection's rolloff fields into the
// argument gainpan.DistanceAttenuation expects.
func (c *Collection) AttenuationParams() gainpan.AttenuationParams {
	return gainpan.AttenuationParams{
		MinAudibleRadius:   c.MinAudibleRadius,
		RollInRadius:       c.RollInRadius,
		RollOutRadius:      c.RollOutRadius,
		MaxAudibleRadius:   c.MaxAudibleRadius,
		RollInCurveFactor:  c.RollInCurveFactor,
		RollOutCurveFactor: c.RollOutCurveFactor,
	}
}

// RefCount returns the collection's current reference count.
func (c *Collection) RefCount() int { return c.refCount }

// Retain increments the reference count, e.g. when a bank that
// references this collection is loaded.
func (c *Collection) Retain() { c.refCount++ }

// Release decrements the reference count and reports whether it
// reached zero, at which point the caller should destroy the
// collection.
func (c *Collection) Release() bool {
	if c.refCount > 0 {
		c.refCount--
	}
	return c.refCount == 0
}
