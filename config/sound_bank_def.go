// SPDX-License-Identifier: EPL-2.0

package config

import "io"

const magicSoundBankDef uint32 = 0x53424e4b // "SBNK"

// BankDef is the sound-bank blob: a flat list of
// sound-collection-def filenames. The bank's own name is supplied by
// the caller (typically the blob's own filename), since the wire format
// carries only the filename list.
type BankDef struct {
	Filenames []string
}

// LoadSoundBankDef parses a sound-bank blob.
func LoadSoundBankDef(r io.Reader) (BankDef, error) {
	rd := newReader(r)
	_, fieldCount, err := rd.readHeader(magicSoundBankDef)
	if err != nil {
		return BankDef{}, err
	}
	if fieldCount < 1 {
		return BankDef{}, malformedf("sound_bank_def: field count %d, want at least 1", fieldCount)
	}

	filenames, err := rd.readStringList()
	if err != nil {
		return BankDef{}, err
	}
	if len(filenames) == 0 {
		return BankDef{}, malformedf("sound_bank_def: filenames list is empty")
	}
	return BankDef{Filenames: filenames}, nil
}
