// SPDX-License-Identifier: EPL-2.0

package oto

import (
	"encoding/binary"
	"math"
)

// fadeFloorMs is the remaining fade-out duration at or below which the
// fade is treated as complete and the slot is marked finished.
const fadeFloorMs = 1.0

// Read implements io.Reader for the oto.Player: it mixes every active
// slot's contribution into an interleaved stereo float32 LE buffer.
// oto calls this from a single dedicated goroutine, so mixL/mixR need
// no synchronization of their own; each slot's fields are still guarded
// individually since Start/Halt/... arrive from the scheduler.
func (b *Backend) Read(p []byte) (int, error) {
	frames := len(p) / (4 * outputChannels)
	if cap(b.mixL) < frames {
		b.mixL = make([]float32, frames)
		b.mixR = make([]float32, frames)
	}
	mixL := b.mixL[:frames]
	mixR := b.mixR[:frames]
	for i := range mixL {
		mixL[i], mixR[i] = 0, 0
	}

	msPerFrame := 1000.0 / float64(b.sampleRate)

	for i := range b.slots {
		b.slots[i].render(mixL, mixR, msPerFrame)
	}

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(p[8*i:8*i+4], math.Float32bits(mixL[i]))
		binary.LittleEndian.PutUint32(p[8*i+4:8*i+8], math.Float32bits(mixR[i]))
	}
	return len(p), nil
}

// render adds this slot's next len(mixL) frames into the shared mix
// buffers, applying gain, equal-power pan, and any in-progress fade.
// It advances the slot's cursor and, for a finished non-looping sample,
// marks it finished so IsPlaying starts reporting false.
func (sl *slotState) render(mixL, mixR []float32, msPerFrame float64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.active || !sl.playing || sl.finished {
		return
	}

	left, right := equalPowerGains(sl.panX)

	for i := range mixL {
		v, ok := sl.nextFrame()
		if !ok {
			if sl.loop {
				sl.cursor = 0
				v, ok = sl.nextFrame()
			}
			if !ok {
				sl.finished = true
				return
			}
		}

		gain := sl.gain
		if sl.fadeMs > 0 {
			sl.fadeDone += msPerFrame
			remaining := float64(sl.fadeMs) - sl.fadeDone
			if remaining <= fadeFloorMs {
				sl.finished = true
				return
			}
			gain *= remaining / float64(sl.fadeMs)
		}

		mixL[i] += v * gain * left
		mixR[i] += v * gain * right
	}
}

// nextFrame pulls the next mono-downmixed sample from whichever backing
// storage this slot holds, advancing its cursor by one frame.
func (sl *slotState) nextFrame() (float32, bool) {
	switch {
	case sl.buffered != nil:
		return sl.nextBufferedFrame()
	case sl.streamed != nil:
		return sl.nextStreamedFrame()
	default:
		return 0, false
	}
}

func (sl *slotState) nextBufferedFrame() (float32, bool) {
	buf := sl.buffered
	ch := buf.Channels()
	if ch <= 0 {
		ch = 1
	}
	start := sl.cursor * ch
	if start+ch > len(buf.PCM) {
		return 0, false
	}
	var sum float32
	for c := 0; c < ch; c++ {
		sum += buf.PCM[start+c]
	}
	sl.cursor++
	return sum / float32(ch), true
}

// nextStreamedFrame decodes ahead one buffer's worth of frames at a
// time from the stream's Reader, caching the rest in readBuf until it's
// drained. It never rewinds: a streamed sample that finishes cannot be
// looped in place.
func (sl *slotState) nextStreamedFrame() (float32, bool) {
	ch := sl.streamed.Channels()
	if ch <= 0 {
		ch = 1
	}
	if len(sl.readBuf) < ch {
		const framesPerRead = 256
		dst := make([]float32, framesPerRead*ch)
		n, _ := sl.streamed.Src.ReadSamples(dst)
		if n <= 0 {
			return 0, false
		}
		sl.readBuf = dst[:n]
	}
	var sum float32
	for c := 0; c < ch; c++ {
		sum += sl.readBuf[c]
	}
	sl.readBuf = sl.readBuf[ch:]
	return sum / float32(ch), true
}
