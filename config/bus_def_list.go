// SPDX-License-Identifier: EPL-2.0

package config

import (
	"io"

	"github.com/silverlode/voicecore/bus"
)

const magicBusDefList uint32 = 0x42445553 // "BDUS"

const busDefFieldCount = 7

// LoadBusDefList parses a bus-definition blob into a list of bus.Def,
// ready for bus.Build. It does not itself
// validate cross-references or the presence of a master bus — bus.Build
// already does both and returns bus.ErrUnknownBus / bus.ErrNoMaster.
func LoadBusDefList(r io.Reader) ([]bus.Def, error) {
	rd := newReader(r)
	_, entryCount, err := rd.readHeader(magicBusDefList)
	if err != nil {
		return nil, err
	}

	defs := make([]bus.Def, entryCount)
	for i := range defs {
		fieldCount, err := rd.readUint16()
		if err != nil {
			return nil, err
		}
		if fieldCount < busDefFieldCount {
			return nil, malformedf("bus_def_list: entry %d field count %d, want at least %d", i, fieldCount, busDefFieldCount)
		}

		name, err := rd.readString()
		if err != nil {
			return nil, err
		}
		gain, err := rd.readFloat64()
		if err != nil {
			return nil, err
		}
		children, err := rd.readStringList()
		if err != nil {
			return nil, err
		}
		duckBuses, err := rd.readStringList()
		if err != nil {
			return nil, err
		}
		duckGain, err := rd.readFloat64()
		if err != nil {
			return nil, err
		}
		duckFadeIn, err := rd.readFloat64()
		if err != nil {
			return nil, err
		}
		duckFadeOut, err := rd.readFloat64()
		if err != nil {
			return nil, err
		}

		if gain < 0 {
			return nil, malformedf("bus_def_list: entry %d (%q) gain = %v, want >= 0", i, name, gain)
		}
		if duckGain < 0 || duckGain > 1 {
			return nil, malformedf("bus_def_list: entry %d (%q) duck_gain = %v, want in [0,1]", i, name, duckGain)
		}

		defs[i] = bus.Def{
			Name:            name,
			Gain:            gain,
			ChildBuses:      children,
			DuckBuses:       duckBuses,
			DuckGain:        duckGain,
			DuckFadeInTime:  duckFadeIn,
			DuckFadeOutTime: duckFadeOut,
		}
	}
	return defs, nil
}
