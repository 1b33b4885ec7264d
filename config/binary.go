// SPDX-License-Identifier: EPL-2.0

// Package config implements the flat binary-schema parsers for the
// engine's four definition blobs (audio_config, bus_def_list,
// sound_collection_def, sound_bank_def), plus an fsnotify-backed watcher
// for reloading them during iterative tuning. Each blob shares one
// framing: a little-endian uint32 magic, a uint16 version, a uint16
// field count (for bus_def_list, the number of entries, each of which
// starts with its own uint16 field count), then fixed-width fields and
// length-prefixed strings in a fixed order, the same manual encoding/binary walk a RIFF header
// parser uses, generalized from one fixed chunk layout to four.
package config

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const headerSize = 8 // magic uint32 + version uint16 + fieldCount uint16

type reader struct {
	r   io.Reader
	buf [8]byte
}

func newReader(r io.Reader) *reader { return &reader{r: r} }

func (rd *reader) readHeader(wantMagic uint32) (version, fieldCount uint16, err error) {
	if _, err := io.ReadFull(rd.r, rd.buf[:headerSize]); err != nil {
		return 0, 0, fmt.Errorf("%w: reading header: %v", ErrTruncated, err)
	}
	magic := binary.LittleEndian.Uint32(rd.buf[0:4])
	if magic != wantMagic {
		return 0, 0, fmt.Errorf("%w: bad magic %#x, want %#x", ErrMalformed, magic, wantMagic)
	}
	version = binary.LittleEndian.Uint16(rd.buf[4:6])
	fieldCount = binary.LittleEndian.Uint16(rd.buf[6:8])
	return version, fieldCount, nil
}

func (rd *reader) readUint32() (uint32, error) {
	if _, err := io.ReadFull(rd.r, rd.buf[:4]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return binary.LittleEndian.Uint32(rd.buf[:4]), nil
}

func (rd *reader) readUint16() (uint16, error) {
	if _, err := io.ReadFull(rd.r, rd.buf[:2]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return binary.LittleEndian.Uint16(rd.buf[:2]), nil
}

func (rd *reader) readFloat64() (float64, error) {
	if _, err := io.ReadFull(rd.r, rd.buf[:8]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(rd.buf[:8])), nil
}

func (rd *reader) readBool() (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(rd.r, b[:]); err != nil {
		return false, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return b[0] != 0, nil
}

// readString reads a uint16 byte-length prefix followed by that many
// UTF-8 bytes, the length-prefixed string convention every blob uses
// for names and filenames.
func (rd *reader) readString() (string, error) {
	n, err := rd.readUint16()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return string(buf), nil
}

// readStringList reads a uint16 element count followed by that many
// length-prefixed strings.
func (rd *reader) readStringList() ([]string, error) {
	n, err := rd.readUint16()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		s, err := rd.readString()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
