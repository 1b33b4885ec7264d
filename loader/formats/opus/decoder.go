// SPDX-License-Identifier: EPL-2.0

// Package opus decodes an incremental Opus packet stream into a
// sample.Streamed, the format reserved for stream:true collections.
// Unlike the buffered formats/* packages it never
// materializes the whole asset: each ReadSamples call pulls exactly one
// framed packet off the wire and decodes it through hraban/opus.v2.
//
// The container is a minimal length-prefixed framing (uint32 little-
// endian byte length, then that many bytes of raw Opus packet data)
// rather than full Ogg demuxing: real Ogg/Opus containers interleave
// page and segment headers that a byte-length-prefixed reader doesn't
// need to reproduce for this engine's purposes, and pulling in a full
// Ogg parser only to hand hraban/opus.v2 the same packet bytes back out
// would add a dependency without adding capability.
package opus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"

	"github.com/silverlode/voicecore/sample"
)

const (
	sampleRate = 48000
	channels   = 2
	frameSize  = 960 // 20ms at 48kHz, the frame size hraban/opus.v2 expects per Decode call.
)

// ErrTruncatedFrame is returned when a length-prefixed packet's payload
// is shorter than its declared length.
var ErrTruncatedFrame = errors.New("opus: truncated frame in stream")

// opusDecoder is the slice of *opus.Decoder that reader uses, kept
// narrow so tests can substitute a stub decoder.
type opusDecoder interface {
	Decode(data []byte, pcm []int16) (int, error)
}

// Decoder decodes a length-prefixed Opus packet stream.
type Decoder struct{}

// Decode wraps r in a sample.Streamed; no packets are read until the
// scheduler starts pulling from the returned Reader.
func (Decoder) Decode(r io.Reader) (sample.Sample, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("opus: constructing decoder: %w", err)
	}
	return &sample.Streamed{
		Rate: sampleRate,
		Ch:   channels,
		Src:  &reader{r: r, dec: dec, pcm: make([]int16, frameSize*channels)},
	}, nil
}

// reader implements sample.Reader over the framed packet stream.
type reader struct {
	r   io.Reader
	dec opusDecoder
	pcm []int16
}

// ReadSamples decodes exactly one framed Opus packet into dst,
// truncating if the caller's buffer is smaller than the decoded frame.
func (rd *reader) ReadSamples(dst []float32) (int, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(rd.r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return 0, io.EOF
		}
		return 0, err
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	packet := make([]byte, length)
	if _, err := io.ReadFull(rd.r, packet); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncatedFrame, err)
	}

	frames, err := rd.dec.Decode(packet, rd.pcm)
	if err != nil {
		return 0, fmt.Errorf("opus: decoding frame: %w", err)
	}

	n := frames * channels
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(rd.pcm[i]) / 32768.0
	}
	return n, nil
}

// Close releases the underlying stream, if closable.
func (rd *reader) Close() error {
	if c, ok := rd.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
