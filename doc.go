// SPDX-License-Identifier: EPL-2.0

// Package voicecore implements a priority-aware voice manager for
// game audio: a fixed-capacity pool of channels shared between a
// bounded number of real mixer-backend slots and a larger number of
// virtual (silently tracked) slots, admitted and evicted by
// priority = computed_gain * collection.priority.
//
// # Quick Start
//
// Construct an EngineCore from a parsed configuration blob, a mixer
// backend, and an asset loader, then drive it once per frame:
//
//	cfgFile, _ := os.Open("audio_config.bin")
//	cfg, _ := config.LoadAudioConfig(cfgFile)
//	busFile, _ := os.Open(cfg.BusFile)
//	busDefs, _ := config.LoadBusDefList(busFile)
//
//	be := null.New(cfg.MixerChannels)
//	ld := loader.New(loader.DefaultRegistry())
//	engine, _ := voicecore.Init(cfg, busDefs, be, ld)
//
//	engine.LoadBank("footsteps.bank")
//	listener, _ := engine.AddListener()
//	listener.SetOrientation(geom.Vector3D{}, geom.Vector3D{Y: 1}, geom.Vector3D{Z: 1})
//
//	ch, _ := engine.PlayByName("footstep_grass", geom.Vector3D{X: 2}, 1)
//	for {
//	    engine.AdvanceFrame(1.0 / 60.0)
//	}
//
// # Package Layout
//
// The engine core is a thin façade (EngineCore plus the ChannelHandle /
// BusHandle / ListenerHandle wrapper types) over a set of focused
// subpackages, each owning one entity from the design: gainpan (pure
// attenuation/pan math), listener (the listener pool), bus (the
// gain/duck graph), sample and collection (the SampleSet and
// SoundCollection), bank (ref-counted collection loading), channel and
// scheduler (the channel arena and the admission/eviction/rebalance
// algorithm), backend (the mixer-backend trait plus the oto and null
// sinks), loader (asset decoding), and config (the four binary blob
// schemas plus optional hot-reload).
//
// # Concurrency
//
// EngineCore is single-threaded cooperative: one owner calls Play,
// AdvanceFrame, and the other operations in sequence. It must never be
// invoked concurrently on the same instance. Multiple instances are
// independent.
package voicecore
