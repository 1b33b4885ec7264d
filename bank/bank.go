// SPDX-License-Identifier: EPL-2.0

// Package bank implements ref-counted SoundCollection loading and
// naming, using a map-plus-mutex registry to track how many loaded
// SoundBanks reference each collection.
package bank

import (
	"errors"
	"fmt"
	"sync"

	"github.com/silverlode/voicecore/collection"
)

// ErrBankNotLoaded is returned by UnloadBank for a bank name that was
// never successfully loaded — a contract violation.
var ErrBankNotLoaded = errors.New("bank: unload of a bank that was never loaded")

// Factory constructs a new Collection from the collection-definition
// file named filename. It is only called when that filename hasn't
// been loaded before. The returned Collection's own Name field (its
// declared logical name inside the definition, not filename) is what
// callers later look it up by.
type Factory func(filename string) (*collection.Collection, error)

// Bank is a named list of collection-definition filenames.
type Bank struct {
	Name      string
	Filenames []string
}

// Registry is the process-wide table of loaded SoundCollections. A
// collection-definition filename and the logical name declared inside
// it are two different keys: two filenames can declare the same name,
// and the same filename is always the same collection no matter how
// many banks reference it. collections is keyed by logical name, each
// carrying its own reference count; loadedFiles maps each filename
// already loaded to the logical name it produced, so a repeat Load of
// the same filename retains the existing collection instead of
// re-running factory.
type Registry struct {
	mu          sync.Mutex
	collections map[string]*collection.Collection
	loadedFiles map[string]string
	loadedBanks map[string]struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		collections: make(map[string]*collection.Collection),
		loadedFiles: make(map[string]string),
		loadedBanks: make(map[string]struct{}),
	}
}

// Load ensures filename is loaded, creating it via factory and setting
// its ref count to 1 if this is the first reference, or incrementing
// an already-loaded collection's ref count otherwise. Loading is
// idempotent per filename: attempting to load an already-loaded
// filename just increments its collection's reference count.
func (r *Registry) Load(filename string, factory Factory) (*collection.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name, ok := r.loadedFiles[filename]; ok {
		c := r.collections[name]
		c.Retain()
		return c, nil
	}

	c, err := factory(filename)
	if err != nil {
		return nil, fmt.Errorf("bank: loading collection %q: %w", filename, err)
	}
	c.Retain()
	r.collections[c.Name] = c
	r.loadedFiles[filename] = c.Name
	return c, nil
}

// unloadFile decrements filename's collection's ref count and destroys
// it once it reaches zero. Unloading a filename that isn't loaded is a
// no-op.
func (r *Registry) unloadFile(filename string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.loadedFiles[filename]
	if !ok {
		return
	}
	c, ok := r.collections[name]
	if !ok {
		return
	}
	if c.Release() {
		delete(r.collections, name)
		delete(r.loadedFiles, filename)
	}
}

// Get returns the currently loaded collection whose declared logical
// name is name, or false if no live reference exists.
func (r *Registry) Get(name string) (*collection.Collection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[name]
	return c, ok
}

// LoadBank loads every collection named by b.Filenames, retaining a
// reference to each, and records b as loaded.
func (r *Registry) LoadBank(b Bank, factory Factory) error {
	for _, filename := range b.Filenames {
		if _, err := r.Load(filename, factory); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.loadedBanks[b.Name] = struct{}{}
	r.mu.Unlock()
	return nil
}

// UnloadBank releases b's reference to every collection it named,
// destroying those whose count reaches zero. It refuses to unload a
// bank name that was never loaded.
func (r *Registry) UnloadBank(b Bank) error {
	r.mu.Lock()
	if _, ok := r.loadedBanks[b.Name]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBankNotLoaded, b.Name)
	}
	delete(r.loadedBanks, b.Name)
	r.mu.Unlock()

	for _, filename := range b.Filenames {
		r.unloadFile(filename)
	}
	return nil
}
