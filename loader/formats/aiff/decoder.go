// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF streams into a fully-buffered sample.Sample
// via go-audio/aiff.
package aiff

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/silverlode/voicecore/sample"
)

// aiffReader is the slice of *aiff.Decoder that Decode uses, kept
// narrow so tests can substitute a stub reader.
type aiffReader interface {
	IsValidFile() bool
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Decoder decodes 16-bit PCM AIFF files.
type Decoder struct{}

// Decode reads a full AIFF stream and returns a fully-buffered sample.
// go-audio/aiff requires an io.ReadSeeker; a plain io.Reader is spooled
// into memory first.
func (Decoder) Decode(r io.Reader) (sample.Sample, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("aiff: reading data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()
	if dec.BitDepth != 16 {
		return nil, ErrOnlyPCM16bitSupported
	}
	format := dec.Format()
	if format == nil {
		return nil, ErrUnsupportedAiffLayout
	}

	return decodeAll(dec, int(dec.BitDepth), format.SampleRate, format.NumChannels)
}

func decodeAll(dec aiffReader, bitDepth, sampleRate, channels int) (sample.Sample, error) {
	var maxVal float32
	switch bitDepth {
	case 8:
		maxVal = 128.0
	case 16:
		maxVal = 32768.0
	case 24:
		maxVal = 8388608.0
	case 32:
		maxVal = 2147483648.0
	default:
		maxVal = 32768.0
	}

	const chunkSize = 4096
	buf := &goaudio.IntBuffer{Data: make([]int, chunkSize), Format: dec.Format()}
	var pcm []float32
	for {
		n, err := dec.PCMBuffer(buf)
		for i := 0; i < n; i++ {
			pcm = append(pcm, float32(buf.Data[i])/maxVal)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("aiff: decoding: %w", err)
		}
		if n == 0 {
			break
		}
		if n < chunkSize {
			break
		}
	}
	return &sample.Buffered{Rate: sampleRate, Ch: channels, PCM: pcm}, nil
}
