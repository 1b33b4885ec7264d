// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG audio into a fully-buffered sample.Sample,
// wrapping the go-mp3 decoder.
package mp3

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/silverlode/voicecore/sample"
)

const mp3Channels = 2 // go-mp3 always decodes to interleaved stereo.

// mp3Reader is the slice of *gomp3.Decoder that Decode actually uses,
// kept narrow so tests can substitute a stub reader.
type mp3Reader interface {
	Read(p []byte) (int, error)
	SampleRate() int
}

// Decoder decodes MPEG-1/2 Layer III streams via go-mp3.
type Decoder struct{}

// Decode fully drains r through go-mp3 and returns a buffered sample.
func (Decoder) Decode(r io.Reader) (sample.Sample, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: opening stream: %w", err)
	}
	return decodeAll(dec)
}

func decodeAll(dec mp3Reader) (sample.Sample, error) {
	buf := make([]byte, 8192)
	var pcm []float32
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pairs := n / 2
			for i := 0; i < pairs; i++ {
				v := int16(uint16(buf[2*i]) | uint16(buf[2*i+1])<<8)
				pcm = append(pcm, float32(v)/32768.0)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("mp3: decoding: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return &sample.Buffered{Rate: dec.SampleRate(), Ch: mp3Channels, PCM: pcm}, nil
}
