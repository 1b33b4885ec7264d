// SPDX-License-Identifier: EPL-2.0

package enginetest

import (
	"fmt"

	"github.com/silverlode/voicecore/sample"
)

// MockLoader resolves asset names from an in-memory map instead of the
// filesystem, letting bank-loading tests exercise voicecore.EngineCore
// without touching disk.
type MockLoader struct {
	assets map[string]sample.Sample
	fail   map[string]error
}

// NewMockLoader constructs an empty MockLoader.
func NewMockLoader() *MockLoader {
	return &MockLoader{assets: make(map[string]sample.Sample), fail: make(map[string]error)}
}

// Put registers name to resolve to s.
func (l *MockLoader) Put(name string, s sample.Sample) { l.assets[name] = s }

// FailOn makes EnsureLoaded(name) return err instead of a sample,
// simulating a corrupt asset or missing file.
func (l *MockLoader) FailOn(name string, err error) { l.fail[name] = err }

// EnsureLoaded implements the same signature as *loader.Loader.
func (l *MockLoader) EnsureLoaded(name string) (sample.Sample, error) {
	if err, ok := l.fail[name]; ok {
		return nil, err
	}
	s, ok := l.assets[name]
	if !ok {
		return nil, fmt.Errorf("enginetest: no mock asset registered for %q", name)
	}
	return s, nil
}
