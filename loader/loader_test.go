// SPDX-License-Identifier: EPL-2.0

package loader

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/silverlode/voicecore/sample"
)

type mockDecoder struct {
	s   sample.Sample
	err error
}

func (d *mockDecoder) Decode(io.Reader) (sample.Sample, error) { return d.s, d.err }

type nopReadCloser struct{ io.Reader }

func (nopReadCloser) Close() error { return nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	dec := &mockDecoder{}
	reg.Register("WAV", dec)

	got, ok := reg.Get(".wav")
	if !ok || got != dec {
		t.Fatalf("Get(.wav) = %v, %v, want registered decoder", got, ok)
	}
}

func TestRegistry_GetNonExistent(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if _, ok := reg.Get("flac"); ok {
		t.Error("Get() ok = true for unregistered extension")
	}
}

func TestLoader_EnsureLoaded_DecodesBufferedFormat(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	want := &sample.Buffered{Rate: 44100, Ch: 1}
	reg.Register("wav", &mockDecoder{s: want})

	l := NewWithOpener(reg, func(name string) (io.ReadCloser, error) {
		return nopReadCloser{strings.NewReader("data")}, nil
	})

	got, err := l.EnsureLoaded("kick.wav")
	if err != nil {
		t.Fatalf("EnsureLoaded() error = %v", err)
	}
	if got != want {
		t.Error("EnsureLoaded() returned a different sample than the decoder produced")
	}
}

func TestLoader_EnsureLoaded_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	l := New(NewRegistry())
	if _, err := l.EnsureLoaded("kick.flac"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("EnsureLoaded() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoader_EnsureLoaded_OpenFailure(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("wav", &mockDecoder{})
	l := NewWithOpener(reg, func(name string) (io.ReadCloser, error) {
		return nil, errors.New("no such asset")
	})

	if _, err := l.EnsureLoaded("missing.wav"); !errors.Is(err, ErrLoaderFailed) {
		t.Errorf("EnsureLoaded() error = %v, want ErrLoaderFailed", err)
	}
}

func TestLoader_EnsureLoaded_DecodeFailure(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("wav", &mockDecoder{err: errors.New("bad header")})
	l := NewWithOpener(reg, func(name string) (io.ReadCloser, error) {
		return nopReadCloser{strings.NewReader("garbage")}, nil
	})

	if _, err := l.EnsureLoaded("kick.wav"); !errors.Is(err, ErrLoaderFailed) {
		t.Errorf("EnsureLoaded() error = %v, want ErrLoaderFailed", err)
	}
}
