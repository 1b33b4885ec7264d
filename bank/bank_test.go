// SPDX-License-Identifier: EPL-2.0

package bank

import (
	"errors"
	"testing"

	"github.com/silverlode/voicecore/bus"
	"github.com/silverlode/voicecore/collection"
)

// newFactory builds a Factory whose collection's logical name equals
// the filename it was loaded from, for tests that don't care about the
// filename/name distinction.
func newFactory(created *int) Factory {
	return func(filename string) (*collection.Collection, error) {
		*created++
		return collection.New(filename, bus.Handle{}), nil
	}
}

// TestRegistry_SharedCollectionAcrossBanks checks that two banks
// referencing the same collection share one underlying instance.
func TestRegistry_SharedCollectionAcrossBanks(t *testing.T) {
	t.Parallel()

	var created int
	r := NewRegistry()
	factory := newFactory(&created)

	bankA := Bank{Name: "A", Filenames: []string{"C"}}
	bankB := Bank{Name: "B", Filenames: []string{"C"}}

	if err := r.LoadBank(bankA, factory); err != nil {
		t.Fatalf("LoadBank(A) error = %v", err)
	}
	if err := r.LoadBank(bankB, factory); err != nil {
		t.Fatalf("LoadBank(B) error = %v", err)
	}
	if created != 1 {
		t.Fatalf("factory called %d times, want 1 (idempotent load)", created)
	}

	if err := r.UnloadBank(bankA); err != nil {
		t.Fatalf("UnloadBank(A) error = %v", err)
	}
	if _, ok := r.Get("C"); !ok {
		t.Fatal("collection C should remain loaded after unloading only bank A")
	}

	if err := r.UnloadBank(bankB); err != nil {
		t.Fatalf("UnloadBank(B) error = %v", err)
	}
	if _, ok := r.Get("C"); ok {
		t.Fatal("collection C should be gone after unloading both banks")
	}
}

// TestRegistry_GetLooksUpByDeclaredNameNotFilename checks that a
// collection loaded from a filename different from its own declared
// name is found under that declared name, not the filename.
func TestRegistry_GetLooksUpByDeclaredNameNotFilename(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	factory := func(filename string) (*collection.Collection, error) {
		return collection.New("footstep", bus.Handle{}), nil
	}

	b := Bank{Name: "footsteps", Filenames: []string{"footstep.def"}}
	if err := r.LoadBank(b, factory); err != nil {
		t.Fatalf("LoadBank() error = %v", err)
	}

	if _, ok := r.Get("footstep.def"); ok {
		t.Error("Get() found a collection under its filename, want only its declared name")
	}
	c, ok := r.Get("footstep")
	if !ok {
		t.Fatal("Get() did not find the collection under its declared name")
	}
	if c.Name != "footstep" {
		t.Errorf("collection Name = %q, want %q", c.Name, "footstep")
	}
}

// TestRegistry_ReloadingSameFilenameIsIdempotent checks that loading
// the same filename twice retains one collection instance rather than
// invoking factory again, even though the lookup key is the declared
// name rather than the filename.
func TestRegistry_ReloadingSameFilenameIsIdempotent(t *testing.T) {
	t.Parallel()

	var created int
	r := NewRegistry()
	factory := func(filename string) (*collection.Collection, error) {
		created++
		return collection.New("footstep", bus.Handle{}), nil
	}

	if _, err := r.Load("footstep.def", factory); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := r.Load("footstep.def", factory); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if created != 1 {
		t.Fatalf("factory called %d times, want 1", created)
	}
}

func TestRegistry_UnloadNeverLoadedBank(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.UnloadBank(Bank{Name: "ghost"})
	if !errors.Is(err, ErrBankNotLoaded) {
		t.Errorf("UnloadBank() error = %v, want ErrBankNotLoaded", err)
	}
}

func TestRegistry_LoadPropagatesFactoryError(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	wantErr := errors.New("boom")
	_, err := r.Load("x", func(string) (*collection.Collection, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Load() error = %v, want wrapped %v", err, wantErr)
	}
}
