// SPDX-License-Identifier: EPL-2.0

// Package enginetest centralizes the test doubles voicecore's own tests
// and its subpackages' integration tests share: a scriptable sample
// generator, a stub asset loader, and a manually-advanced clock, kept
// out of the public API surface.
package enginetest

import (
	"io"
	"math"
)

// MockReader is a scriptable sample.Reader: it generates audio via a
// caller-supplied waveform function instead of decoding real bytes,
// for tests that exercise the incremental sample.Reader shape streamed
// samples use.
type MockReader struct {
	channels     int
	totalSamples int
	generated    int
	waveform     func(sample int, channel int) float32
	closed       bool
}

// NewMockReader constructs a MockReader that yields totalSamples per
// channel before returning io.EOF.
func NewMockReader(channels, totalSamples int, waveform func(sample, channel int) float32) *MockReader {
	return &MockReader{channels: channels, totalSamples: totalSamples, waveform: waveform}
}

// NewSilentReader yields totalSamples of digital silence.
func NewSilentReader(channels, totalSamples int) *MockReader {
	return NewMockReader(channels, totalSamples, func(int, int) float32 { return 0 })
}

// NewSineReader yields a sine wave at frequency Hz, sampled at
// sampleRate.
func NewSineReader(sampleRate, channels, totalSamples int, frequency float64) *MockReader {
	return NewMockReader(channels, totalSamples, func(sample, _ int) float32 {
		t := float64(sample) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// Reset rewinds the reader so it can be replayed, e.g. across a test's
// separate loop and devirtualize phases.
func (m *MockReader) Reset() { m.generated = 0 }

// Closed reports whether Close has been called, letting tests assert a
// streamed slot's reader is released on Halt.
func (m *MockReader) Closed() bool { return m.closed }

func (m *MockReader) Close() error {
	m.closed = true
	return nil
}

// ReadSamples fills dst with interleaved frames until totalSamples is
// exhausted, then returns io.EOF.
func (m *MockReader) ReadSamples(dst []float32) (int, error) {
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}
	framesRequested := len(dst) / m.channels
	framesAvailable := m.totalSamples - m.generated
	framesToWrite := framesRequested
	if framesToWrite > framesAvailable {
		framesToWrite = framesAvailable
	}
	for frame := 0; frame < framesToWrite; frame++ {
		idx := m.generated + frame
		for ch := 0; ch < m.channels; ch++ {
			dst[frame*m.channels+ch] = m.waveform(idx, ch)
		}
	}
	m.generated += framesToWrite
	written := framesToWrite * m.channels
	if m.generated >= m.totalSamples {
		return written, io.EOF
	}
	return written, nil
}
