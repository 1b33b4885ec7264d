// SPDX-License-Identifier: EPL-2.0

package voicecore

import (
	"errors"
	"fmt"

	"github.com/silverlode/voicecore/bank"
	"github.com/silverlode/voicecore/collection"
	"github.com/silverlode/voicecore/config"
	"github.com/silverlode/voicecore/sample"
)

// LoadBank parses the sound-bank blob at filename and ensures every
// collection it names is loaded, retaining a reference to each.
// Loading a bank that is already loaded is a contract violation only
// at Unload time, not here: re-loading simply retains
// every named collection again.
func (e *EngineCore) LoadBank(filename string) error {
	def, err := e.readBankDef(filename)
	if err != nil {
		return err
	}

	b := bank.Bank{Name: filename, Filenames: def.Filenames}
	if err := e.registry.LoadBank(b, e.loadCollection); err != nil {
		if errors.Is(err, ErrUnknownBus) || errors.Is(err, ErrConfigMalformed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrLoaderFailed, err)
	}
	return nil
}

// UnloadBank releases filename's reference to every collection it
// named, destroying those whose reference count reaches zero. It is a
// contract violation to unload a bank that was never loaded; the
// engine logs and reports the error rather than aborting.
func (e *EngineCore) UnloadBank(filename string) error {
	def, err := e.readBankDef(filename)
	if err != nil {
		return err
	}
	b := bank.Bank{Name: filename, Filenames: def.Filenames}
	if err := e.registry.UnloadBank(b); err != nil {
		e.logf(LevelWarn, "unload of a bank that was never loaded", "bank", filename)
		return err
	}
	return nil
}

func (e *EngineCore) readBankDef(filename string) (config.BankDef, error) {
	f, err := e.open(filename)
	if err != nil {
		return config.BankDef{}, fmt.Errorf("%w: opening bank %q: %v", ErrLoaderFailed, filename, err)
	}
	defer f.Close()

	def, err := config.LoadSoundBankDef(f)
	if err != nil {
		return config.BankDef{}, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}
	return def, nil
}

// loadCollection is the bank.Factory that turns a collection-definition
// filename into a live collection.Collection: parse the blob, resolve
// its bus name against the already-built bus graph, and resolve every
// audio_sample_set entry through the asset loader. A sample entry the
// loader fails on is logged and dropped rather than failing the whole
// collection: it remains loaded but play may yield invalid handles
// once its SampleSet runs dry.
//
// audio_sample_set entries also carry a per-sample gain field in the
// wire schema; the runtime SampleSet only tracks selection probability,
// not a per-entry gain multiplier, matching the gain formula, which is
// defined purely in terms of the collection's own
// gain. The field is treated as an authoring-time normalization baked
// into the source audio rather than a second runtime gain stage.
func (e *EngineCore) loadCollection(name string) (*collection.Collection, error) {
	f, err := e.open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection %q: %v", ErrLoaderFailed, name, err)
	}
	defer f.Close()

	def, err := config.LoadSoundCollectionDef(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}

	busHandle := e.buses.Find(def.Bus)
	if !busHandle.IsValid() {
		return nil, fmt.Errorf("%w: collection %q references bus %q", ErrUnknownBus, def.Name, def.Bus)
	}

	c := collection.New(def.Name, busHandle)
	c.Gain = def.Gain
	c.Priority = def.Priority
	c.Loop = def.Loop
	c.Stream = def.Stream
	c.Mode = mapAttenuationMode(def.Mode)
	c.MinAudibleRadius = def.MinAudibleRadius
	c.RollInRadius = def.RollInRadius
	c.RollOutRadius = def.RollOutRadius
	c.MaxAudibleRadius = def.MaxAudibleRadius
	c.RollInCurveFactor = def.RollInCurveFactor
	c.RollOutCurveFactor = def.RollOutCurveFactor

	entries := make([]sample.Entry, 0, len(def.Samples))
	for _, sd := range def.Samples {
		s, err := e.assets.EnsureLoaded(sd.Filename)
		if err != nil {
			e.logf(LevelWarn, "dropping unloadable sample entry", "collection", def.Name, "file", sd.Filename, "error", err)
			continue
		}
		entries = append(entries, sample.Entry{Sample: s, Probability: sd.Probability})
	}
	c.Samples = sample.NewSet(entries)

	return c, nil
}

func mapAttenuationMode(m config.AttenuationMode) collection.AttenuationMode {
	if m == config.Nonpositional {
		return collection.Nonpositional
	}
	return collection.Positional
}
