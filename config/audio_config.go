// SPDX-License-Identifier: EPL-2.0

package config

import "io"

const magicAudioConfig uint32 = 0x41435647 // "ACVG"

// audioConfigFieldCount is the number of fixed fields this loader
// expects; LoadAudioConfig rejects a header declaring fewer.
const audioConfigFieldCount = 7

// AudioConfig is the top-level configuration blob: output device
// parameters plus the channel pool and listener pool sizing.
type AudioConfig struct {
	OutputFrequency      int
	OutputChannels       int
	OutputBufferSize     int
	MixerChannels        int // N_real
	MixerVirtualChannels int // N_virtual
	Listeners            int
	BusFile              string
}

// LoadAudioConfig parses an AudioConfig blob.
func LoadAudioConfig(r io.Reader) (AudioConfig, error) {
	rd := newReader(r)
	_, fieldCount, err := rd.readHeader(magicAudioConfig)
	if err != nil {
		return AudioConfig{}, err
	}
	if fieldCount < audioConfigFieldCount {
		return AudioConfig{}, malformedf("audio_config: field count %d, want at least %d", fieldCount, audioConfigFieldCount)
	}

	var c AudioConfig
	freq, err := rd.readUint32()
	if err != nil {
		return AudioConfig{}, err
	}
	c.OutputFrequency = int(freq)

	channels, err := rd.readUint16()
	if err != nil {
		return AudioConfig{}, err
	}
	c.OutputChannels = int(channels)

	bufSize, err := rd.readUint32()
	if err != nil {
		return AudioConfig{}, err
	}
	c.OutputBufferSize = int(bufSize)

	mixerReal, err := rd.readUint32()
	if err != nil {
		return AudioConfig{}, err
	}
	c.MixerChannels = int(mixerReal)

	mixerVirtual, err := rd.readUint32()
	if err != nil {
		return AudioConfig{}, err
	}
	c.MixerVirtualChannels = int(mixerVirtual)

	listeners, err := rd.readUint32()
	if err != nil {
		return AudioConfig{}, err
	}
	c.Listeners = int(listeners)

	busFile, err := rd.readString()
	if err != nil {
		return AudioConfig{}, err
	}
	c.BusFile = busFile

	if c.OutputChannels != 1 && c.OutputChannels != 2 {
		return AudioConfig{}, malformedf("audio_config: output_channels = %d, want 1 or 2", c.OutputChannels)
	}
	if c.MixerChannels < 1 {
		return AudioConfig{}, malformedf("audio_config: mixer_channels = %d, want >= 1", c.MixerChannels)
	}
	if c.MixerVirtualChannels < 0 {
		return AudioConfig{}, malformedf("audio_config: mixer_virtual_channels = %d, want >= 0", c.MixerVirtualChannels)
	}
	if c.Listeners < 1 {
		return AudioConfig{}, malformedf("audio_config: listeners = %d, want >= 1", c.Listeners)
	}
	return c, nil
}
