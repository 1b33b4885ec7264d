// SPDX-License-Identifier: EPL-2.0

package config

import (
	"os"

	"github.com/fsnotify/fsnotify"
)

// Reload carries a freshly re-parsed blob and the path it came from.
// Kind identifies which Load* function produced Value, since a single
// Watcher can track paths of different blob types at once.
type Reload struct {
	Path  string
	Kind  BlobKind
	Value any
	Err   error
}

// BlobKind identifies which of the four blob schemas a watched path
// holds.
type BlobKind int

const (
	KindAudioConfig BlobKind = iota
	KindBusDefList
	KindSoundCollectionDef
	KindSoundBankDef
)

// Watcher wraps fsnotify.Watcher to re-parse a watched blob path on
// every Write event, publishing the result on Reloads. One background
// goroutine drains fsnotify's own event and error channels and
// republishes onto a buffered channel the owner drains at its own
// pace, so it never forces the single-threaded core to react
// synchronously to filesystem events rather than from a background
// goroutine. This is purely a development convenience; production
// embedding can ignore it and call the Load* functions directly.
type Watcher struct {
	w       *fsnotify.Watcher
	kinds   map[string]BlobKind
	Reloads chan Reload
	errs    chan error
	done    chan struct{}
}

// NewWatcher starts a Watcher with no paths yet registered.
func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	watcher := &Watcher{
		w:       w,
		kinds:   make(map[string]BlobKind),
		Reloads: make(chan Reload, 32),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go watcher.loop()
	return watcher, nil
}

// Watch registers path for reload notifications, tagged with the blob
// schema kind that determines which Load* function re-parses it.
func (w *Watcher) Watch(path string, kind BlobKind) error {
	if err := w.w.Add(path); err != nil {
		return err
	}
	w.kinds[path] = kind
	return nil
}

// Unwatch stops tracking path.
func (w *Watcher) Unwatch(path string) error {
	delete(w.kinds, path)
	return w.w.Remove(path)
}

// Errors reports fsnotify's own internal errors (not blob parse
// errors, which arrive on Reloads as Reload.Err).
func (w *Watcher) Errors() <-chan error { return w.errs }

// Close stops the watcher's background goroutine and releases the
// underlying OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.w.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
			kind, tracked := w.kinds[ev.Name]
			if !tracked {
				continue
			}
			w.Reloads <- w.reload(ev.Name, kind)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) reload(path string, kind BlobKind) Reload {
	f, err := os.Open(path)
	if err != nil {
		return Reload{Path: path, Kind: kind, Err: err}
	}
	defer f.Close()

	var value any
	switch kind {
	case KindAudioConfig:
		value, err = LoadAudioConfig(f)
	case KindBusDefList:
		value, err = LoadBusDefList(f)
	case KindSoundCollectionDef:
		value, err = LoadSoundCollectionDef(f)
	case KindSoundBankDef:
		value, err = LoadSoundBankDef(f)
	}
	return Reload{Path: path, Kind: kind, Value: value, Err: err}
}
