// SPDX-License-Identifier: EPL-2.0

package config

import "io"

const magicSoundCollectionDef uint32 = 0x53434f4c // "SCOL"

const collectionDefFieldCount = 13

// SampleEntryDef is one entry of a collection's audio_sample_set: a
// filename/gain pair plus its selection probability.
type SampleEntryDef struct {
	Filename    string
	Gain        float64
	Probability float64
}

// AttenuationMode mirrors collection.AttenuationMode without importing
// package collection, so config stays independent of the engine's
// runtime types; the loader that constructs a collection.Collection
// from a CollectionDef maps Positional/Nonpositional across.
type AttenuationMode int

const (
	Positional AttenuationMode = iota
	Nonpositional
)

// CollectionDef is the sound-collection blob.
type CollectionDef struct {
	Name string
	Bus  string

	Priority float64
	Gain     float64
	Loop     bool
	Stream   bool
	Mode     AttenuationMode

	MinAudibleRadius   float64
	RollInRadius       float64
	RollOutRadius      float64
	MaxAudibleRadius   float64
	RollInCurveFactor  float64
	RollOutCurveFactor float64

	Samples []SampleEntryDef
}

// LoadSoundCollectionDef parses a sound-collection blob.
func LoadSoundCollectionDef(r io.Reader) (CollectionDef, error) {
	rd := newReader(r)
	_, fieldCount, err := rd.readHeader(magicSoundCollectionDef)
	if err != nil {
		return CollectionDef{}, err
	}
	if fieldCount < collectionDefFieldCount {
		return CollectionDef{}, malformedf("sound_collection_def: field count %d, want at least %d", fieldCount, collectionDefFieldCount)
	}

	var d CollectionDef
	if d.Name, err = rd.readString(); err != nil {
		return CollectionDef{}, err
	}
	if d.Bus, err = rd.readString(); err != nil {
		return CollectionDef{}, err
	}
	if d.Bus == "" {
		return CollectionDef{}, malformedf("sound_collection_def: %q has an empty bus name", d.Name)
	}
	if d.Priority, err = rd.readFloat64(); err != nil {
		return CollectionDef{}, err
	}
	if d.Gain, err = rd.readFloat64(); err != nil {
		return CollectionDef{}, err
	}
	if d.Loop, err = rd.readBool(); err != nil {
		return CollectionDef{}, err
	}
	if d.Stream, err = rd.readBool(); err != nil {
		return CollectionDef{}, err
	}
	mode, err := rd.readUint16()
	if err != nil {
		return CollectionDef{}, err
	}
	if mode != uint16(Positional) && mode != uint16(Nonpositional) {
		return CollectionDef{}, malformedf("sound_collection_def: %q has unknown mode %d", d.Name, mode)
	}
	d.Mode = AttenuationMode(mode)

	for _, dst := range []*float64{
		&d.MinAudibleRadius, &d.RollInRadius, &d.RollOutRadius,
		&d.MaxAudibleRadius, &d.RollInCurveFactor, &d.RollOutCurveFactor,
	} {
		if *dst, err = rd.readFloat64(); err != nil {
			return CollectionDef{}, err
		}
	}

	entryCount, err := rd.readUint16()
	if err != nil {
		return CollectionDef{}, err
	}
	d.Samples = make([]SampleEntryDef, entryCount)
	for i := range d.Samples {
		filename, err := rd.readString()
		if err != nil {
			return CollectionDef{}, err
		}
		sampleGain, err := rd.readFloat64()
		if err != nil {
			return CollectionDef{}, err
		}
		probability, err := rd.readFloat64()
		if err != nil {
			return CollectionDef{}, err
		}
		d.Samples[i] = SampleEntryDef{Filename: filename, Gain: sampleGain, Probability: probability}
	}

	if len(d.Samples) == 0 {
		return CollectionDef{}, malformedf("sound_collection_def: %q has no audio_sample_set entries", d.Name)
	}
	return d, nil
}
