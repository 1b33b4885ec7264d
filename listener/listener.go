// SPDX-License-Identifier: EPL-2.0

// Package listener implements the fixed-capacity pool of oriented
// audio listeners and closest-listener queries used by the voice
// scheduler to compute distance attenuation and pan.
package listener

import (
	"errors"

	"github.com/silverlode/voicecore/geom"
)

// ErrInvalidHandle is returned by any operation on a Handle whose
// generation no longer matches the pool's live entry (already removed,
// or from a different Set).
var ErrInvalidHandle = errors.New("listener: invalid handle")

// Handle references a listener slot. It is only valid for the Set that
// produced it, and only until that slot is removed and reused.
type Handle struct {
	index      uint32
	generation uint32
}

// IsValid reports whether h has ever been issued (the zero Handle is
// never valid).
func (h Handle) IsValid() bool { return h.generation != 0 }

type entry struct {
	inUse      bool
	generation uint32
	inverse    geom.Matrix
}

// Set is a fixed-capacity pool of listeners. The zero value is not
// usable; construct with NewSet.
type Set struct {
	entries []entry
	free    []uint32
}

// NewSet allocates a pool with room for capacity listeners.
func NewSet(capacity int) *Set {
	s := &Set{
		entries: make([]entry, capacity),
		free:    make([]uint32, capacity),
	}
	for i := range s.free {
		s.free[i] = uint32(capacity - 1 - i)
	}
	return s
}

// Add allocates a listener at the world origin facing +Y with up +Z.
// When the pool is full it returns the zero Handle and a non-nil
// "pool exhausted" error (not ErrInvalidHandle).
func (s *Set) Add() (Handle, error) {
	if len(s.free) == 0 {
		return Handle{}, errors.New("listener: pool exhausted")
	}
	idx := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	e := &s.entries[idx]
	e.inUse = true
	e.generation++
	e.inverse = geom.InverseWorld(geom.Vector3D{}, geom.Vector3D{Y: 1}, geom.Vector3D{Z: 1})

	return Handle{index: idx, generation: e.generation}, nil
}

// Remove returns h's slot to the free list. Using h again after Remove
// is a contract violation reported as ErrInvalidHandle.
func (s *Set) Remove(h Handle) error {
	e, err := s.live(h)
	if err != nil {
		return err
	}
	e.inUse = false
	s.free = append(s.free, h.index)
	return nil
}

// SetOrientation updates h's inverse-world matrix from a world-space
// location, forward vector, and up vector.
func (s *Set) SetOrientation(h Handle, location, forward, up geom.Vector3D) error {
	e, err := s.live(h)
	if err != nil {
		return err
	}
	e.inverse = geom.InverseWorld(location, forward, up)
	return nil
}

// Matrix returns h's current inverse-world matrix.
func (s *Set) Matrix(h Handle) (geom.Matrix, error) {
	e, err := s.live(h)
	if err != nil {
		return geom.Matrix{}, err
	}
	return e.inverse, nil
}

// SetMatrix installs an inverse-world matrix directly, bypassing basis
// construction.
func (s *Set) SetMatrix(h Handle, m geom.Matrix) error {
	e, err := s.live(h)
	if err != nil {
		return err
	}
	e.inverse = m
	return nil
}

// Best finds the listener whose transformed distance to loc is
// smallest. Ties are broken toward the listener in the lowest arena
// slot (stable iteration order over the arena; a fresh pool hands out
// slots lowest-first, but a removed slot is reused by the next Add),
// so the choice never flickers between equidistant listeners as others
// are added or removed. It returns false if the set has no live
// listeners.
func (s *Set) Best(loc geom.Vector3D) (h Handle, distSq float64, local geom.Vector3D, ok bool) {
	bestDistSq := 0.0
	found := false

	for i := range s.entries {
		e := &s.entries[i]
		if !e.inUse {
			continue
		}
		p := e.inverse.Transform(loc)
		d := p.LengthSq()
		if !found || d < bestDistSq {
			found = true
			bestDistSq = d
			h = Handle{index: uint32(i), generation: e.generation}
			local = p
		}
	}

	return h, bestDistSq, local, found
}

func (s *Set) live(h Handle) (*entry, error) {
	if !h.IsValid() || int(h.index) >= len(s.entries) {
		return nil, ErrInvalidHandle
	}
	e := &s.entries[h.index]
	if !e.inUse || e.generation != h.generation {
		return nil, ErrInvalidHandle
	}
	return e, nil
}
