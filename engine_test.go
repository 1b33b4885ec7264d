// SPDX-License-Identifier: EPL-2.0

package voicecore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/silverlode/voicecore/backend/null"
	"github.com/silverlode/voicecore/bus"
	"github.com/silverlode/voicecore/config"
	"github.com/silverlode/voicecore/geom"
	"github.com/silverlode/voicecore/internal/enginetest"
)

func testConfig(nReal, nVirtual, listeners int) config.AudioConfig {
	return config.AudioConfig{
		OutputFrequency:      44100,
		OutputChannels:       2,
		OutputBufferSize:     1024,
		MixerChannels:        nReal,
		MixerVirtualChannels: nVirtual,
		Listeners:            listeners,
		BusFile:              "buses.bin",
	}
}

func masterOnlyBus() []bus.Def {
	return []bus.Def{{Name: "master", Gain: 1}}
}

func TestInit_BuildsSchedulerAndBuses(t *testing.T) {
	t.Parallel()

	e, err := Init(testConfig(2, 2, 1), masterOnlyBus(), null.New(2), enginetest.NewMockLoader())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !e.FindBus("master").IsValid() {
		t.Errorf("FindBus(master).IsValid() = false, want true")
	}
	if e.FindBus("nope").IsValid() {
		t.Errorf("FindBus(nope).IsValid() = true, want false")
	}
}

func TestInit_UnknownBusReferenceIsRefused(t *testing.T) {
	t.Parallel()

	defs := []bus.Def{
		{Name: "master", Gain: 1, ChildBuses: []string{"sfx"}},
	}
	_, err := Init(testConfig(1, 0, 1), defs, null.New(1), enginetest.NewMockLoader())
	if !errors.Is(err, ErrUnknownBus) {
		t.Fatalf("Init() error = %v, want ErrUnknownBus", err)
	}
}

// --- in-memory blob fixtures for LoadBank/UnloadBank ---

const (
	magicSoundBankDef       uint32 = 0x53424e4b // must match config's private constant
	magicSoundCollectionDef uint32 = 0x53434f4c
)

func writeHeader(buf *bytes.Buffer, magic uint32, fieldCount uint16) {
	var h [8]byte
	binary.LittleEndian.PutUint32(h[0:4], magic)
	binary.LittleEndian.PutUint16(h[4:6], 1)
	binary.LittleEndian.PutUint16(h[6:8], fieldCount)
	buf.Write(h[:])
}

func writeString(buf *bytes.Buffer, s string) {
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(s)))
	buf.Write(l[:])
	buf.WriteString(s)
}

func writeStringList(buf *bytes.Buffer, ss []string) {
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(ss)))
	buf.Write(n[:])
	for _, s := range ss {
		writeString(buf, s)
	}
}

func writeFloat64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func buildBankDef(filenames []string) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, magicSoundBankDef, 1)
	writeStringList(&buf, filenames)
	return buf.Bytes()
}

type sampleFixture struct {
	filename    string
	probability float64
}

func buildCollectionDef(name, busName string, priority, gain float64, loop bool, samples []sampleFixture) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, magicSoundCollectionDef, 13)
	writeString(&buf, name)
	writeString(&buf, busName)
	writeFloat64(&buf, priority)
	writeFloat64(&buf, gain)
	writeBool(&buf, loop)
	writeBool(&buf, false) // stream
	writeUint16(&buf, 0)   // Positional
	for i := 0; i < 6; i++ {
		writeFloat64(&buf, 0)
	}
	writeUint16(&buf, uint16(len(samples)))
	for _, s := range samples {
		writeString(&buf, s.filename)
		writeFloat64(&buf, 1) // per-sample gain, intentionally unused at runtime
		writeFloat64(&buf, s.probability)
	}
	return buf.Bytes()
}

func memOpener(files map[string][]byte) Opener {
	return func(name string) (io.ReadCloser, error) {
		data, ok := files[name]
		if !ok {
			return nil, errFileNotFound(name)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

type notFoundError string

func (e notFoundError) Error() string { return "no such fixture file: " + string(e) }

func errFileNotFound(name string) error { return notFoundError(name) }

func newTestEngine(t *testing.T, files map[string][]byte, ld AssetLoader) *EngineCore {
	t.Helper()
	e, err := Init(testConfig(2, 2, 1), masterOnlyBus(), null.New(2), ld, WithOpener(memOpener(files)))
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return e
}

func TestLoadBank_ResolvesSamplesAndPlays(t *testing.T) {
	t.Parallel()

	ld := enginetest.NewMockLoader()
	ld.Put("footstep.wav", &fakeSample{})

	files := map[string][]byte{
		"footsteps.bank": buildBankDef([]string{"footstep.def"}),
		"footstep.def": buildCollectionDef("footstep", "master", 1, 1, false, []sampleFixture{
			{filename: "footstep.wav", probability: 1},
		}),
	}
	e := newTestEngine(t, files, ld)

	if err := e.LoadBank("footsteps.bank"); err != nil {
		t.Fatalf("LoadBank() error = %v", err)
	}

	ch, err := e.PlayByName("footstep", geom.Vector3D{}, 1)
	if err != nil {
		t.Fatalf("PlayByName() error = %v", err)
	}
	if !ch.IsValid() {
		t.Errorf("ch.IsValid() = false, want true")
	}
	if !ch.IsPlaying() {
		t.Errorf("ch.IsPlaying() = false, want true")
	}
}

func TestLoadBank_UnknownBusInCollectionIsRefused(t *testing.T) {
	t.Parallel()

	ld := enginetest.NewMockLoader()
	files := map[string][]byte{
		"b.bank": buildBankDef([]string{"c.def"}),
		"c.def":  buildCollectionDef("c", "sfx", 1, 1, false, []sampleFixture{{filename: "x.wav", probability: 1}}),
	}
	e := newTestEngine(t, files, ld)

	if err := e.LoadBank("b.bank"); !errors.Is(err, ErrUnknownBus) {
		t.Fatalf("LoadBank() error = %v, want ErrUnknownBus", err)
	}
}

func TestLoadBank_DropsUnloadableSampleEntries(t *testing.T) {
	t.Parallel()

	ld := enginetest.NewMockLoader()
	ld.FailOn("missing.wav", errors.New("no such asset"))

	files := map[string][]byte{
		"b.bank": buildBankDef([]string{"c.def"}),
		"c.def": buildCollectionDef("c", "master", 1, 1, false, []sampleFixture{
			{filename: "missing.wav", probability: 1},
		}),
	}
	e := newTestEngine(t, files, ld)

	if err := e.LoadBank("b.bank"); err != nil {
		t.Fatalf("LoadBank() error = %v", err)
	}
	if _, err := e.PlayByName("c", geom.Vector3D{}, 1); !errors.Is(err, ErrBackendStartFailed) {
		t.Errorf("PlayByName() error = %v, want ErrBackendStartFailed (empty sample set)", err)
	}
}

func TestUnloadBank_NeverLoadedIsRefused(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, map[string][]byte{
		"b.bank": buildBankDef([]string{"c.def"}),
	}, enginetest.NewMockLoader())

	if err := e.UnloadBank("b.bank"); err == nil {
		t.Errorf("UnloadBank() error = nil, want non-nil for a never-loaded bank")
	}
}

func TestListenerHandle_LocationRoundTrips(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil, enginetest.NewMockLoader())
	l, err := e.AddListener()
	if err != nil {
		t.Fatalf("AddListener() error = %v", err)
	}

	want := geom.Vector3D{X: 3, Y: 0, Z: -2}
	if err := l.SetLocation(want); err != nil {
		t.Fatalf("SetLocation() error = %v", err)
	}
	got, err := l.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	const eps = 1e-9
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps || math.Abs(got.Z-want.Z) > eps {
		t.Errorf("Location() = %+v, want %+v", got, want)
	}
}

func TestListenerHandle_InvalidAfterRemove(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil, enginetest.NewMockLoader())
	l, err := e.AddListener()
	if err != nil {
		t.Fatalf("AddListener() error = %v", err)
	}
	if err := e.RemoveListener(l); err != nil {
		t.Fatalf("RemoveListener() error = %v", err)
	}
	if l.IsValid() {
		t.Errorf("l.IsValid() = true after RemoveListener, want false")
	}
	if err := l.SetLocation(geom.Vector3D{}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("SetLocation() on removed listener error = %v, want ErrInvalidHandle", err)
	}
}

func TestChannelHandle_StopReturnsChannelToFreeList(t *testing.T) {
	t.Parallel()

	ld := enginetest.NewMockLoader()
	ld.Put("s.wav", &fakeSample{})
	files := map[string][]byte{
		"b.bank": buildBankDef([]string{"c.def"}),
		"c.def": buildCollectionDef("c", "master", 1, 1, false, []sampleFixture{
			{filename: "s.wav", probability: 1},
		}),
	}
	e := newTestEngine(t, files, ld)
	if err := e.LoadBank("b.bank"); err != nil {
		t.Fatalf("LoadBank() error = %v", err)
	}
	ch, err := e.PlayByName("c", geom.Vector3D{}, 1)
	if err != nil {
		t.Fatalf("PlayByName() error = %v", err)
	}
	if err := ch.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if ch.IsValid() {
		t.Errorf("ch.IsValid() = true after Stop, want false")
	}
	if got := e.sched.Pool().FreeRealLen(); got != 2 {
		t.Errorf("FreeRealLen() after Stop = %d, want 2", got)
	}
}

func TestAdvanceFrame_AppliesMasterGainToBus(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil, enginetest.NewMockLoader())
	e.SetMasterGain(0.5)
	e.AdvanceFrame(1.0 / 60)

	if got := e.FindBus("master").FinalGain(); got != 0.5 {
		t.Errorf("master FinalGain() = %v, want 0.5", got)
	}
}

// fakeSample is a minimal sample.Sample for tests that don't care about
// actual audio content, only that a Sample was resolved.
type fakeSample struct{}

func (fakeSample) SampleRate() int { return 44100 }
func (fakeSample) Channels() int   { return 2 }
func (fakeSample) Streamed() bool  { return false }
