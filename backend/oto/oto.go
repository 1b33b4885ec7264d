// SPDX-License-Identifier: EPL-2.0

// Package oto is the hardware-backed backend.Backend implementation. A
// single ebitengine/oto/v3 player pulls audio through one Read callback
// that renders straight from shared state rather than going through an
// intermediate ring buffer, generalized to the fixed-size slot arena
// backend.Backend requires: Read mixes every active slot's contribution
// on demand, guarding each slot's mutable fields with its own mutex
// since control calls (Start/SetGain/...) arrive from the scheduler's
// goroutine concurrently with oto's callback goroutine.
package oto

import (
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/silverlode/voicecore/sample"
)

const outputChannels = 2

type slotState struct {
	mu       sync.Mutex
	active   bool
	playing  bool
	loop     bool
	finished bool
	sample   sample.Sample
	buffered *sample.Buffered
	streamed *sample.Streamed
	cursor   int // frame index into buffered.PCM; not advanced for streamed samples
	gain     float64
	panX     float64
	panY     float64
	fadeMs   int
	fadeDone float64 // milliseconds already elapsed into the current fade-out
	readBuf  []float32
}

// Backend drives a single oto.Player fed by mixing every active slot on
// each Read callback.
type Backend struct {
	ctx    *oto.Context
	player *oto.Player

	sampleRate int
	slots      []slotState

	// mixL and mixR are reused across Read calls to avoid allocating on the
	// audio callback's hot path. oto serializes calls to Read from a
	// single internal goroutine, so no lock guards it.
	mixL, mixR []float32
}

// New opens the default audio device at sampleRate and returns a
// Backend with slotCount real-channel slots, matching the SlotCount the
// caller configured its channel.Pool with.
func New(sampleRate, slotCount int) (*Backend, error) {
	b := &Backend{sampleRate: sampleRate, slots: make([]slotState, slotCount)}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: outputChannels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0, // let oto pick a device-appropriate default
	})
	if err != nil {
		return nil, err
	}
	<-ready

	b.ctx = ctx
	b.player = ctx.NewPlayer(b)
	b.player.Play()
	return b, nil
}

// SlotCount reports the number of real-channel slots this backend owns.
func (b *Backend) SlotCount() int { return len(b.slots) }

// Start begins playing s on slot, replacing whatever it previously held.
func (b *Backend) Start(slot int, s sample.Sample, loop bool) bool {
	sl := &b.slots[slot]
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.streamed != nil && sl.streamed.Src != nil {
		sl.streamed.Src.Close()
	}

	sl.active = true
	sl.playing = true
	sl.finished = false
	sl.loop = loop
	sl.sample = s
	sl.cursor = 0
	sl.fadeMs = 0
	sl.fadeDone = 0
	sl.buffered, _ = s.(*sample.Buffered)
	sl.streamed, _ = s.(*sample.Streamed)
	return true
}

// Halt stops slot immediately and releases any streamed reader it held.
func (b *Backend) Halt(slot int) {
	sl := &b.slots[slot]
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.streamed != nil && sl.streamed.Src != nil {
		sl.streamed.Src.Close()
	}
	*sl = slotState{}
}

// Pause freezes slot's playback cursor without releasing it.
func (b *Backend) Pause(slot int) {
	sl := &b.slots[slot]
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.active {
		sl.playing = false
	}
}

// Resume continues slot's playback cursor from where it was paused.
func (b *Backend) Resume(slot int) {
	sl := &b.slots[slot]
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.active {
		sl.playing = true
	}
}

// SetGain sets slot's linear output gain.
func (b *Backend) SetGain(slot int, gain float64) {
	sl := &b.slots[slot]
	sl.mu.Lock()
	sl.gain = gain
	sl.mu.Unlock()
}

// SetPan sets slot's stereo pan; x is left/right in [-1, 1], y is
// currently unused (no rear channels on a stereo device) but kept for
// interface symmetry with gainpan.Pan.
func (b *Backend) SetPan(slot int, x, y float64) {
	sl := &b.slots[slot]
	sl.mu.Lock()
	sl.panX, sl.panY = x, y
	sl.mu.Unlock()
}

// IsPlaying reports whether slot is occupied, unpaused, and has not yet
// run off the end of a non-looping sample.
func (b *Backend) IsPlaying(slot int) bool {
	sl := &b.slots[slot]
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.active && sl.playing && !sl.finished
}

// FadeOut begins a linear fade-out over ms milliseconds; the mixer marks
// the slot finished once the fade completes.
func (b *Backend) FadeOut(slot int, ms int) {
	sl := &b.slots[slot]
	sl.mu.Lock()
	sl.fadeMs = ms
	sl.fadeDone = 0
	sl.mu.Unlock()
}

// Close stops playback and releases the underlying oto player.
func (b *Backend) Close() {
	if b.player != nil {
		b.player.Close()
	}
}

// equalPowerGains converts a [-1,1] pan into left/right multipliers
// using an equal-power (quarter-cosine) curve, the standard choice for
// panning a mono voice across a stereo field.
func equalPowerGains(pan float64) (left, right float64) {
	if pan < -1 {
		pan = -1
	} else if pan > 1 {
		pan = 1
	}
	angle := (pan + 1) * (math.Pi / 4)
	return math.Cos(angle), math.Sin(angle)
}
