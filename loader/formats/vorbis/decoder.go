// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams into a fully-buffered
// sample.Sample via jfreymuth/oggvorbis.
package vorbis

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/silverlode/voicecore/sample"
)

// oggReader is the slice of *oggvorbis.Reader that Decode uses, kept
// narrow so tests can substitute a stub reader.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

// Decoder decodes Ogg Vorbis streams.
type Decoder struct{}

// Decode fully drains r and returns a buffered sample.
func (Decoder) Decode(r io.Reader) (sample.Sample, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis: opening stream: %w", err)
	}
	return decodeAll(dec)
}

func decodeAll(dec oggReader) (sample.Sample, error) {
	frameBuf := make([]float32, 4096)
	var pcm []float32
	for {
		n, err := dec.Read(frameBuf)
		if n > 0 {
			pcm = append(pcm, frameBuf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("vorbis: decoding: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return &sample.Buffered{Rate: dec.SampleRate(), Ch: dec.Channels(), PCM: pcm}, nil
}
