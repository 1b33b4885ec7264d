// SPDX-License-Identifier: EPL-2.0

package voicecore

import (
	"errors"
	"fmt"

	"github.com/silverlode/voicecore/bus"
	"github.com/silverlode/voicecore/channel"
	"github.com/silverlode/voicecore/geom"
	"github.com/silverlode/voicecore/listener"
)

// ChannelHandle is a caller-facing reference to one playing voice.
// It is only valid for the EngineCore that produced it, and only
// until the channel halts.
type ChannelHandle struct {
	e *EngineCore
	h channel.Handle
}

// IsValid reports whether the handle still refers to a live channel.
func (ch ChannelHandle) IsValid() bool {
	if ch.e == nil {
		return false
	}
	_, err := ch.e.sched.Pool().Lifecycle(ch.h)
	return err == nil
}

// IsPlaying reports whether the channel is logically Playing or
// FadingOut.
func (ch ChannelHandle) IsPlaying() bool {
	if ch.e == nil {
		return false
	}
	playing, err := ch.e.sched.Pool().IsPlaying(ch.h)
	return err == nil && playing
}

// Stop halts the channel immediately, returning it to its free list.
func (ch ChannelHandle) Stop() error {
	return ch.wrap(ch.e.sched.Pool().Halt(ch.h, ch.e.sched.Buses()))
}

// FadeOut begins an ms-millisecond linear fade to silence.
func (ch ChannelHandle) FadeOut(ms int) error {
	return ch.wrap(ch.e.sched.Pool().FadeOut(ch.h, ms))
}

// Pause suspends the channel (Playing -> Paused).
func (ch ChannelHandle) Pause() error {
	return ch.wrap(ch.e.sched.Pool().Pause(ch.h))
}

// Resume continues a paused channel (Paused -> Playing).
func (ch ChannelHandle) Resume() error {
	return ch.wrap(ch.e.sched.Pool().Resume(ch.h))
}

// Location returns the channel's current world-space location.
func (ch ChannelHandle) Location() (geom.Vector3D, error) {
	loc, err := ch.e.sched.Pool().Location(ch.h)
	return loc, ch.wrap(err)
}

// SetLocation updates the channel's world-space location; the next
// AdvanceFrame recomputes its gain and pan against it.
func (ch ChannelHandle) SetLocation(loc geom.Vector3D) error {
	return ch.wrap(ch.e.sched.Pool().SetLocation(ch.h, loc))
}

// Gain returns the channel's user gain multiplier.
func (ch ChannelHandle) Gain() (float64, error) {
	g, err := ch.e.sched.Pool().UserGain(ch.h)
	return g, ch.wrap(err)
}

// SetGain updates the channel's user gain multiplier.
func (ch ChannelHandle) SetGain(g float64) error {
	return ch.wrap(ch.e.sched.Pool().SetUserGain(ch.h, g))
}

func (ch ChannelHandle) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, channel.ErrInvalidHandle) {
		ch.e.logf(LevelWarn, "operation on an invalid channel handle")
		return fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	return err
}

// BusHandle is a caller-facing reference to a bus in the engine's
// static bus graph. Bus handles never expire: the graph's shape is
// fixed after Init.
type BusHandle struct {
	e *EngineCore
	h bus.Handle
}

// IsValid reports whether the handle refers to a declared bus.
func (bh BusHandle) IsValid() bool { return bh.h.IsValid() }

// Gain returns the bus's current user gain.
func (bh BusHandle) Gain() float64 { return bh.e.buses.Gain(bh.h) }

// SetGain immediately sets the bus's user gain, canceling any
// in-flight fade.
func (bh BusHandle) SetGain(gain float64) { bh.e.buses.SetGain(bh.h, gain) }

// FadeTo schedules the bus's user gain to move linearly toward target
// over duration seconds.
func (bh BusHandle) FadeTo(target, duration float64) { bh.e.buses.FadeTo(bh.h, target, duration) }

// FinalGain returns the bus's most recently computed final gain,
// valid only after at least one AdvanceFrame.
func (bh BusHandle) FinalGain() float64 { return bh.e.buses.FinalGain(bh.h) }

// ListenerHandle is a caller-facing reference to one listener in the
// engine's listener pool.
type ListenerHandle struct {
	e *EngineCore
	h listener.Handle
}

// IsValid reports whether the handle still refers to a live listener.
func (lh ListenerHandle) IsValid() bool {
	if lh.e == nil {
		return false
	}
	_, err := lh.e.sched.Listeners().Matrix(lh.h)
	return err == nil
}

// SetOrientation places the listener at location, facing forward, with
// up as its up vector.
func (lh ListenerHandle) SetOrientation(location, forward, up geom.Vector3D) error {
	return lh.wrap(lh.e.sched.Listeners().SetOrientation(lh.h, location, forward, up))
}

// Location returns the listener's current world-space position,
// recovered from its inverse-world matrix (the listener pool stores
// orientation as one matrix rather than separate location/forward/up
// fields, so this inverts the rotation to recover the translation).
func (lh ListenerHandle) Location() (geom.Vector3D, error) {
	m, err := lh.e.sched.Listeners().Matrix(lh.h)
	if err != nil {
		return geom.Vector3D{}, lh.wrap(err)
	}
	return matrixTranslation(m), nil
}

// SetLocation moves the listener to loc without changing its current
// forward/up orientation.
func (lh ListenerHandle) SetLocation(loc geom.Vector3D) error {
	m, err := lh.e.sched.Listeners().Matrix(lh.h)
	if err != nil {
		return lh.wrap(err)
	}
	raw := m.Raw()
	up := geom.Vector3D{X: raw[1][0], Y: raw[1][1], Z: raw[1][2]}
	forward := geom.Vector3D{X: raw[2][0], Y: raw[2][1], Z: raw[2][2]}
	return lh.SetOrientation(loc, forward, up)
}

// matrixTranslation recovers the world-space position encoded by an
// inverse-world matrix built from an orthonormal (right, up, forward)
// basis: pos = R^T * (-t), i.e. the negated translation column
// re-expressed against the basis rows.
func matrixTranslation(m geom.Matrix) geom.Vector3D {
	raw := m.Raw()
	right := geom.Vector3D{X: raw[0][0], Y: raw[0][1], Z: raw[0][2]}
	up := geom.Vector3D{X: raw[1][0], Y: raw[1][1], Z: raw[1][2]}
	forward := geom.Vector3D{X: raw[2][0], Y: raw[2][1], Z: raw[2][2]}
	t0, t1, t2 := raw[0][3], raw[1][3], raw[2][3]
	return geom.Vector3D{
		X: -t0*right.X - t1*up.X - t2*forward.X,
		Y: -t0*right.Y - t1*up.Y - t2*forward.Y,
		Z: -t0*right.Z - t1*up.Z - t2*forward.Z,
	}
}

// Matrix returns the listener's current inverse-world matrix.
func (lh ListenerHandle) Matrix() (geom.Matrix, error) {
	m, err := lh.e.sched.Listeners().Matrix(lh.h)
	return m, lh.wrap(err)
}

// SetMatrix installs an inverse-world matrix directly, bypassing basis
// construction from location/forward/up.
func (lh ListenerHandle) SetMatrix(m geom.Matrix) error {
	return lh.wrap(lh.e.sched.Listeners().SetMatrix(lh.h, m))
}

func (lh ListenerHandle) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, listener.ErrInvalidHandle) {
		lh.e.logf(LevelWarn, "operation on an invalid listener handle")
		return fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	return err
}
