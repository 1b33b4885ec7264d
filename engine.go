// SPDX-License-Identifier: EPL-2.0

// Package voicecore is a thin façade over the engine's focused
// subpackages (gainpan, listener, bus, sample, collection, bank,
// channel, scheduler, backend, loader, config): a single EngineCore
// that wires them together and exposes the public operations a caller
// needs, so nothing outside this package ever has to touch the
// subpackages directly.
package voicecore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/silverlode/voicecore/backend"
	"github.com/silverlode/voicecore/bank"
	"github.com/silverlode/voicecore/bus"
	"github.com/silverlode/voicecore/channel"
	"github.com/silverlode/voicecore/collection"
	"github.com/silverlode/voicecore/config"
	"github.com/silverlode/voicecore/geom"
	"github.com/silverlode/voicecore/listener"
	"github.com/silverlode/voicecore/sample"
	"github.com/silverlode/voicecore/scheduler"
)

// AssetLoader resolves an asset name to a decoded or streamable sample.
// *loader.Loader satisfies this; tests substitute internal/enginetest's
// MockLoader.
type AssetLoader interface {
	EnsureLoaded(name string) (sample.Sample, error)
}

// Opener yields a readable stream for a bank or collection definition
// file. It exists purely to let tests substitute an in-memory blob
// source; production callers can leave it at its os.Open default.
type Opener func(name string) (io.ReadCloser, error)

func defaultOpener(name string) (io.ReadCloser, error) { return os.Open(name) }

// EngineCore is the engine's single owner-facing entry point: one
// instance per audio device, driven by a single-threaded cooperative
// caller. It must never be invoked concurrently on the same instance.
type EngineCore struct {
	sched    *scheduler.Scheduler
	registry *bank.Registry
	buses    *bus.Graph
	be       backend.Backend
	assets   AssetLoader
	open     Opener
	log      LogFunc

	// initRand is only read by Init, before e.sched exists, to seed the
	// scheduler's sample-selection randomness.
	initRand scheduler.Rand
}

// Option customizes Init's construction of an EngineCore.
type Option func(*EngineCore)

// WithLogFunc installs fn as the engine's diagnostic sink.
func WithLogFunc(fn LogFunc) Option {
	return func(e *EngineCore) { e.log = fn }
}

// WithOpener overrides how bank and collection definition files are
// opened, e.g. to read from an embedded archive instead of the local
// filesystem.
func WithOpener(open Opener) Option {
	return func(e *EngineCore) { e.open = open }
}

// WithRand overrides the scheduler's sample-selection randomness,
// letting tests pin which SampleSet entry Play draws.
func WithRand(rng scheduler.Rand) Option {
	return func(e *EngineCore) { e.initRand = rng }
}

// Init builds a running EngineCore from an already-parsed AudioConfig
// and bus definitions (the caller is expected to have resolved
// cfg.BusFile via config.LoadBusDefList itself — the engine core takes
// no position on where blobs live, only on what they mean once parsed).
// It allocates the channel pool, listener pool, and bus graph, and binds
// them to be (the mixer backend) and assets (the asset loader).
func Init(cfg config.AudioConfig, busDefs []bus.Def, be backend.Backend, assets AssetLoader, opts ...Option) (*EngineCore, error) {
	e := &EngineCore{
		registry: bank.NewRegistry(),
		be:       be,
		assets:   assets,
		open:     defaultOpener,
	}
	for _, opt := range opts {
		opt(e)
	}

	graph, err := bus.Build(busDefs)
	if err != nil {
		if errors.Is(err, bus.ErrUnknownBus) || errors.Is(err, bus.ErrNoMaster) || errors.Is(err, bus.ErrDuplicateMaster) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownBus, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}
	e.buses = graph

	listeners := listener.NewSet(cfg.Listeners)
	pool := channel.NewPool(cfg.MixerChannels, cfg.MixerVirtualChannels, be)
	e.sched = scheduler.New(pool, graph, listeners, e.initRand)

	return e, nil
}

// FindBus resolves a bus name to a BusHandle. The returned handle's
// IsValid reports false if name was never declared.
func (e *EngineCore) FindBus(name string) BusHandle {
	return BusHandle{e: e, h: e.buses.Find(name)}
}

// AddListener allocates a listener at the world origin facing +Y with
// up +Z.
func (e *EngineCore) AddListener() (ListenerHandle, error) {
	h, err := e.sched.Listeners().Add()
	if err != nil {
		return ListenerHandle{}, err
	}
	return ListenerHandle{e: e, h: h}, nil
}

// RemoveListener returns h's slot to the listener pool.
func (e *EngineCore) RemoveListener(h ListenerHandle) error {
	if err := e.sched.Listeners().Remove(h.h); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	return nil
}

// SetMasterGain sets the linear gain applied at the bus tree's root.
func (e *EngineCore) SetMasterGain(g float64) { e.sched.SetMasterGain(g) }

// SetMute silences the master bus regardless of gain.
func (e *EngineCore) SetMute(m bool) { e.sched.SetMute(m) }

// Pause suspends or resumes the whole engine: only real backend
// playback of currently-Playing Real channels is suspended;
// lifecycle state is preserved so Resume continues them in place.
func (e *EngineCore) Pause(paused bool) { e.sched.SetPaused(paused) }

// Paused reports whether the engine is currently paused.
func (e *EngineCore) Paused() bool { return e.sched.Paused() }

// AdvanceFrame runs one tick of the finished-channel sweep, bus update,
// per-channel gain/pan recompute, priority re-sort, and virtual/real
// rebalance. dt is the frame's elapsed time in seconds.
func (e *EngineCore) AdvanceFrame(dt float64) { e.sched.AdvanceFrame(dt) }

// Play requests a new voice for c at location, at userGain (applied on
// top of c's own gain). location is ignored for Nonpositional
// collections. It returns ErrRefusedLowPriority if no slot is available
// at or above the request's computed priority, or ErrBackendStartFailed
// if the collection has no samples or the backend refused to start.
func (e *EngineCore) Play(c *collection.Collection, location geom.Vector3D, userGain float64) (ChannelHandle, error) {
	h, err := e.sched.Play(c, location, userGain)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrRefusedLowPriority):
			return ChannelHandle{}, fmt.Errorf("%w: %v", ErrRefusedLowPriority, err)
		case errors.Is(err, scheduler.ErrBackendStartFailed):
			return ChannelHandle{}, fmt.Errorf("%w: %v", ErrBackendStartFailed, err)
		default:
			return ChannelHandle{}, err
		}
	}
	return ChannelHandle{e: e, h: h}, nil
}

// PlayByName looks up name in the loaded-collection registry and plays
// it, combining Play with the SoundBank registry's name resolution.
func (e *EngineCore) PlayByName(name string, location geom.Vector3D, userGain float64) (ChannelHandle, error) {
	c, ok := e.registry.Get(name)
	if !ok {
		return ChannelHandle{}, fmt.Errorf("%w: collection %q is not loaded", ErrInvalidHandle, name)
	}
	return e.Play(c, location, userGain)
}
