// SPDX-License-Identifier: EPL-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "audio_config.bin")
	if err := os.WriteFile(path, buildAudioConfig(t, 44100, 2, 1024, 8, 8, 2, "buses.bin"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := w.Watch(path, KindAudioConfig); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	updated := buildAudioConfig(t, 48000, 2, 2048, 16, 16, 4, "buses.bin")
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case reload := <-w.Reloads:
		if reload.Err != nil {
			t.Fatalf("reload error = %v", reload.Err)
		}
		cfg, ok := reload.Value.(AudioConfig)
		if !ok || cfg.OutputFrequency != 48000 {
			t.Errorf("unexpected reload value: %+v", reload.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload notification")
	}
}

func TestWatcher_IgnoresUnwatchedPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.bin")
	unwatched := filepath.Join(dir, "unwatched.bin")
	raw := buildAudioConfig(t, 44100, 2, 1024, 8, 8, 2, "buses.bin")
	_ = os.WriteFile(watched, raw, 0o644)
	_ = os.WriteFile(unwatched, raw, 0o644)

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()
	if err := w.Watch(watched, KindAudioConfig); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	_ = os.WriteFile(unwatched, bytes.Repeat(raw, 1), 0o644)

	select {
	case reload := <-w.Reloads:
		t.Fatalf("unexpected reload for unwatched path: %+v", reload)
	case <-time.After(300 * time.Millisecond):
	}
}
