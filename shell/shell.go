// Package shell defines the Effect Shell contract: the narrow
// capability interface a host (real firmware or the reference CLI in
// cmd/pedal) implements to drive a looper.Controller, convert PCM,
// meter clipping, and present parameters — replacing the inheritance
// from a host effect base class the original firmware used.
package shell

import (
	"github.com/loopstream/pedal/engine"
	"github.com/loopstream/pedal/looper"
)

// LEDState mirrors the three primary-trigger LEDs.
type LEDState struct {
	Recording bool
	Overdub   bool
	Running   bool
}

// LEDsForMode derives the LED state from the engine mode, the same
// mapping as the original firmware's SetLeds.
func LEDsForMode(mode engine.Mode) LEDState {
	return LEDState{
		Recording: mode == engine.Recording,
		Overdub:   mode == engine.Overdub,
		Running:   mode != engine.Stopped,
	}
}

// EventType enumerates the user-input surface's primary and secondary
// triggers.
type EventType int

const (
	EventRecord EventType = iota
	EventOverdub
	EventPlayStop
	EventLoad
	EventSave
	EventSetLength
	EventParameter
)

// Event is one user-input occurrence dispatched to HandleInput.
type Event struct {
	Type  EventType
	Param looper.Param // valid when Type == EventParameter
	Value uint16       // raw 10-bit parameter value, or a slot number for Load/Save
}

// Registrar is the parameter-registration surface a Shell calls during
// startup, one call per entry of the seven-slot parameter vector.
type Registrar interface {
	Register(param looper.Param, name string)
}

// Shell is the contract between the Controller and its host.
type Shell interface {
	// RegisterParams registers the parameter table with the host.
	RegisterParams(Registrar)
	// ParameterDisplay formats a parameter's current scaled value for
	// display, e.g. "3.0dB", "12 beats", "Seconds".
	ParameterDisplay(param looper.Param) string
	// HandleInput dispatches one user-input event; returns true if it
	// was handled.
	HandleInput(Event) bool
	// SetLEDs pushes the current LED state to the host's indicators.
	SetLEDs(leds LEDState)
}
