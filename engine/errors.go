package engine

import "errors"

// Error taxonomy from the spec's error handling design. ResourceInit is
// returned directly by storage constructors/Init; the rest are used by
// package looper's slot persistence.
var (
	// ErrResourceInit means the storage backend was unavailable at
	// startup. Fatal — the engine cannot function.
	ErrResourceInit = errors.New("engine: storage backend unavailable")

	// ErrSlotMissing means Load was called on an empty slot.
	ErrSlotMissing = errors.New("engine: slot is empty")

	// ErrSlotCorrupt means a slot's header or body read short.
	ErrSlotCorrupt = errors.New("engine: slot is corrupt")
)
