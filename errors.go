// SPDX-License-Identifier: EPL-2.0

package voicecore

import "errors"

// The engine reports failures as sentinel error kinds, wrapped with
// fmt.Errorf("%w: ...", ...) at the point of detection rather than
// introducing typed error structs or a third-party errors package.
var (
	// ErrConfigMalformed is returned when a configuration, bus, or
	// collection blob fails schema validation.
	ErrConfigMalformed = errors.New("voicecore: config malformed")

	// ErrUnknownBus is returned when a collection or bus definition
	// references a bus name that was never declared.
	ErrUnknownBus = errors.New("voicecore: unknown bus")

	// ErrLoaderFailed is returned or logged when the asset loader could
	// not produce a sample for a collection's entry.
	ErrLoaderFailed = errors.New("voicecore: asset load failed")

	// ErrBackendStartFailed is returned by Play when the mixer backend
	// refused to start a real slot.
	ErrBackendStartFailed = errors.New("voicecore: backend refused to start")

	// ErrRefusedLowPriority is returned by Play when no slot is
	// available at or above the request's computed priority.
	ErrRefusedLowPriority = errors.New("voicecore: refused, priority too low")

	// ErrInvalidHandle is returned by any handle operation whose
	// generation no longer matches the arena's live entry.
	ErrInvalidHandle = errors.New("voicecore: invalid handle")
)
