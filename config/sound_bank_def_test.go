// SPDX-License-Identifier: EPL-2.0

package config

import (
	"bytes"
	"errors"
	"testing"
)

func TestLoadSoundBankDef_Valid(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeHeader(&buf, magicSoundBankDef, 1, 1)
	writeStringList(&buf, []string{"explosion.def", "footstep.def"})

	d, err := LoadSoundBankDef(&buf)
	if err != nil {
		t.Fatalf("LoadSoundBankDef() error = %v", err)
	}
	if len(d.Filenames) != 2 || d.Filenames[0] != "explosion.def" {
		t.Errorf("unexpected def: %+v", d)
	}
}

func TestLoadSoundBankDef_RejectsEmptyList(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeHeader(&buf, magicSoundBankDef, 1, 1)
	writeStringList(&buf, nil)

	if _, err := LoadSoundBankDef(&buf); !errors.Is(err, ErrMalformed) {
		t.Errorf("LoadSoundBankDef() error = %v, want ErrMalformed", err)
	}
}
