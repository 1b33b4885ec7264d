// SPDX-License-Identifier: EPL-2.0

// Package wav decodes PCM16 RIFF/WAVE assets into a fully-buffered
// sample.Sample. The header is parsed by hand rather than through a
// third-party container library, since WAVE's chunk layout is fixed
// and small enough that a container library would only add an
// indirection.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/silverlode/voicecore/sample"
)

var (
	// ErrNotWavFile is returned when the RIFF/WAVE magic is missing.
	ErrNotWavFile = errors.New("wav: not a RIFF/WAVE file")
	// ErrUnsupportedWavLayout is returned when the fmt chunk isn't where
	// a canonical 44-byte header expects it.
	ErrUnsupportedWavLayout = errors.New("wav: fmt chunk missing or malformed")
	// ErrOnlyPCM16bitSupported is returned for any format other than
	// linear PCM at 16 bits per sample.
	ErrOnlyPCM16bitSupported = errors.New("wav: only 16-bit PCM is supported")
	// ErrUnsupportedWavChunks is returned when the data chunk isn't
	// found immediately after the canonical header.
	ErrUnsupportedWavChunks = errors.New("wav: data chunk not found at expected offset")
)

// Decoder decodes 16-bit PCM WAVE files.
type Decoder struct{}

// Decode reads a full RIFF/WAVE stream and returns a fully-buffered
// sample.Sample. It does not support WAVE's extensible chunk layouts:
// only the canonical 44-byte header immediately followed by "data" is
// recognized.
func (Decoder) Decode(r io.Reader) (sample.Sample, error) {
	header := make([]byte, 44)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("wav: reading header: %w", err)
	}
	if !bytes.Equal(header[0:4], []byte("RIFF")) || !bytes.Equal(header[8:12], []byte("WAVE")) {
		return nil, ErrNotWavFile
	}
	if !bytes.Equal(header[12:16], []byte("fmt ")) {
		return nil, ErrUnsupportedWavLayout
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	channels := int(binary.LittleEndian.Uint16(header[22:24]))
	sampleRate := int(binary.LittleEndian.Uint32(header[24:28]))
	bitsPerSample := int(binary.LittleEndian.Uint16(header[34:36]))
	if audioFormat != 1 || bitsPerSample != 16 {
		return nil, ErrOnlyPCM16bitSupported
	}
	if !bytes.Equal(header[36:40], []byte("data")) {
		return nil, ErrUnsupportedWavChunks
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("wav: reading data chunk: %w", err)
	}
	n := len(raw) / 2
	pcm := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[2*i : 2*i+2]))
		pcm[i] = float32(v) / 32768.0
	}
	return &sample.Buffered{Rate: sampleRate, Ch: channels, PCM: pcm}, nil
}
