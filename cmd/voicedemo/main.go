// SPDX-License-Identifier: EPL-2.0

// Command voicedemo drives a voicecore.EngineCore headlessly from the
// command line: parse a configuration blob, load a bus definition and
// zero or more sound banks, play one collection, and step advance_frame
// for a fixed number of frames, printing what the scheduler did. It is
// a small, runnable exercise of the whole stack rather than a game.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/silverlode/voicecore"
	"github.com/silverlode/voicecore/backend"
	"github.com/silverlode/voicecore/backend/null"
	"github.com/silverlode/voicecore/backend/oto"
	"github.com/silverlode/voicecore/bus"
	"github.com/silverlode/voicecore/config"
	"github.com/silverlode/voicecore/geom"
	"github.com/silverlode/voicecore/loader"
)

func main() {
	configPath := flag.String("config", "", "path to an audio_config blob")
	banksFlag := flag.String("banks", "", "comma-separated list of sound-bank blob paths to load")
	playName := flag.String("play", "", "name of a loaded collection to play once")
	frames := flag.Int("frames", 120, "number of advance_frame ticks to run")
	dt := flag.Float64("dt", 1.0/60.0, "seconds per frame")
	useNull := flag.Bool("null", false, "force the headless null backend even if real audio output is available")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: voicedemo -config audio_config.bin [-banks a.bin,b.bin] [-play name] [-null]")
		os.Exit(2)
	}

	cfg, busDefs, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("voicedemo: %v", err)
	}

	be, closeBackend, err := buildBackend(cfg, *useNull)
	if err != nil {
		log.Fatalf("voicedemo: %v", err)
	}
	defer closeBackend()

	assets := loader.New(loader.DefaultRegistry())
	engine, err := voicecore.Init(cfg, busDefs, be, assets, voicecore.WithLogFunc(logToStderr))
	if err != nil {
		log.Fatalf("voicedemo: init: %v", err)
	}

	for _, bank := range splitNonEmpty(*banksFlag) {
		if err := engine.LoadBank(bank); err != nil {
			log.Fatalf("voicedemo: load_bank %q: %v", bank, err)
		}
		fmt.Printf("loaded bank %q\n", bank)
	}

	listener, err := engine.AddListener()
	if err != nil {
		log.Fatalf("voicedemo: add_listener: %v", err)
	}
	if err := listener.SetOrientation(geom.Vector3D{}, geom.Vector3D{Y: 1}, geom.Vector3D{Z: 1}); err != nil {
		log.Fatalf("voicedemo: set_orientation: %v", err)
	}

	if *playName != "" {
		ch, err := engine.PlayByName(*playName, geom.Vector3D{X: 2}, 1)
		if err != nil {
			log.Fatalf("voicedemo: play %q: %v", *playName, err)
		}
		fmt.Printf("playing %q, valid=%v\n", *playName, ch.IsValid())
	}

	frameDur := time.Duration(*dt * float64(time.Second))
	for i := 0; i < *frames; i++ {
		engine.AdvanceFrame(*dt)
		if frameDur > 0 && !*useNull {
			time.Sleep(frameDur)
		}
	}

	fmt.Println("done")
}

func loadConfig(path string) (config.AudioConfig, []bus.Def, error) {
	f, err := os.Open(path)
	if err != nil {
		return config.AudioConfig{}, nil, fmt.Errorf("opening config %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := config.LoadAudioConfig(f)
	if err != nil {
		return config.AudioConfig{}, nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	busFile, err := os.Open(cfg.BusFile)
	if err != nil {
		return config.AudioConfig{}, nil, fmt.Errorf("opening bus file %q: %w", cfg.BusFile, err)
	}
	defer busFile.Close()

	busDefs, err := config.LoadBusDefList(busFile)
	if err != nil {
		return config.AudioConfig{}, nil, fmt.Errorf("parsing bus file %q: %w", cfg.BusFile, err)
	}
	return cfg, busDefs, nil
}

func logToStderr(level voicecore.Level, msg string, fields ...any) {
	fmt.Fprintf(os.Stderr, "[%s] %s %v\n", level, msg, fields)
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildBackend(cfg config.AudioConfig, forceNull bool) (backend.Backend, func(), error) {
	if forceNull {
		return null.New(cfg.MixerChannels), func() {}, nil
	}
	be, err := oto.New(cfg.OutputFrequency, cfg.MixerChannels)
	if err != nil {
		return nil, nil, fmt.Errorf("opening audio output, falling back requires -null: %w", err)
	}
	return be, func() { be.Close() }, nil
}
