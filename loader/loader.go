// SPDX-License-Identifier: EPL-2.0

// Package loader turns an asset name into a sample.Sample, dispatching
// on file extension to a registered Decoder. Buffered formats (wav,
// aiff, mp3, vorbis) decode the whole asset before returning, while
// streamed formats (opus) return a sample.Streamed whose Reader stays
// open across the sample's life.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/silverlode/voicecore/loader/formats/aiff"
	"github.com/silverlode/voicecore/loader/formats/mp3"
	"github.com/silverlode/voicecore/loader/formats/opus"
	"github.com/silverlode/voicecore/loader/formats/vorbis"
	"github.com/silverlode/voicecore/loader/formats/wav"
	"github.com/silverlode/voicecore/sample"
)

// ErrUnsupportedFormat is returned when no Decoder is registered for an
// asset's file extension.
var ErrUnsupportedFormat = errors.New("loader: unsupported file extension")

// ErrLoaderFailed wraps any I/O or decode failure encountered while
// resolving an asset.
var ErrLoaderFailed = errors.New("loader: asset load failed")

// Decoder turns a raw byte stream into a Sample. Buffered decoders fully
// consume r before returning; streamed decoders keep r open inside the
// returned sample.Streamed and read from it lazily.
type Decoder interface {
	Decode(r io.Reader) (sample.Sample, error)
}

// Registry maps a lower-cased file extension (without the leading dot)
// to the Decoder responsible for it. The zero value is not usable; call
// NewRegistry.
type Registry struct {
	mu     sync.Mutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// Register associates ext (case-insensitive, with or without a leading
// dot) with d, replacing any previous registration.
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[normalizeExt(ext)] = d
}

// Get returns the Decoder registered for ext, if any.
func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.codecs[normalizeExt(ext)]
	return d, ok
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Opener yields a readable stream for a named asset. The default
// implementation wraps os.Open; a caller can substitute an embedded or
// archive-backed filesystem.
type Opener func(name string) (io.ReadCloser, error)

// Loader resolves asset names to decoded samples on demand.
type Loader struct {
	registry *Registry
	open     Opener
}

// New constructs a Loader that reads assets from the local filesystem.
func New(registry *Registry) *Loader {
	return NewWithOpener(registry, func(name string) (io.ReadCloser, error) {
		return os.Open(name)
	})
}

// NewWithOpener constructs a Loader over a caller-supplied Opener,
// letting tests substitute an in-memory asset source.
func NewWithOpener(registry *Registry, open Opener) *Loader {
	return &Loader{registry: registry, open: open}
}

// EnsureLoaded decodes name synchronously. It dispatches on name's file
// extension; buffered formats return with the asset fully in memory,
// while a stream-format asset returns immediately with a sample.Streamed
// that decodes incrementally as the mixer reads it.
func (l *Loader) EnsureLoaded(name string) (sample.Sample, error) {
	ext := filepath.Ext(name)
	dec, ok := l.registry.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := l.open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", ErrLoaderFailed, name, err)
	}

	s, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: decoding %q: %v", ErrLoaderFailed, name, err)
	}
	if !s.Streamed() {
		f.Close()
	}
	return s, nil
}

// DefaultRegistry builds a Registry with every loader/formats/* codec
// registered under its conventional extension. cmd/voicedemo builds
// its asset loader from this.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("opus", opus.Decoder{})
	return reg
}
