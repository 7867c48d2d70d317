// Package looper implements the Looper Controller: it drives a pair of
// lock-stepped per-channel Recording Engines, sequences the three user
// triggers into mode transitions, and owns loop-length bookkeeping,
// slot persistence and fixed-length pre-allocation.
package looper

import (
	"sync/atomic"

	"github.com/loopstream/pedal/engine"
)

// Controller composes the left and right Recording Engines, operated
// strictly in lock-step: every method that changes mode or loop length
// applies to both before returning.
type Controller struct {
	L, R *engine.Engine

	sampleRate int
	slotDir    string

	loopLengthAccum int64
	parameters      [ParamCount]uint16

	disabled atomic.Bool
}

// New creates a Controller over an already-constructed engine pair.
// slotDir is the directory slot files are read from and written to.
func New(l, r *engine.Engine, sampleRate int, slotDir string) *Controller {
	return &Controller{L: l, R: r, sampleRate: sampleRate, slotDir: slotDir}
}

// Init initializes both engines.
func (c *Controller) Init() error {
	if err := c.L.Init(); err != nil {
		return err
	}
	return c.R.Init()
}

// Mode returns the shared mode of the engine pair.
func (c *Controller) Mode() engine.Mode { return c.L.Mode() }

// Disabled reports whether the audio context is currently suspended
// for a Save/Load/SetLength operation.
func (c *Controller) Disabled() bool { return c.disabled.Load() }

// Process drives both engines for one audio block. Called only from
// the audio context; never blocks, allocates, or touches storage.
func (c *Controller) Process(inL, inR, outL, outR []engine.Sample) {
	if c.disabled.Load() {
		zero(outL)
		zero(outR)
		return
	}
	c.L.Process(inL, outL)
	c.R.Process(inR, outR)
	if c.L.Mode() == engine.Recording {
		c.loopLengthAccum += int64(len(inL))
	}
}

// Pump drains both engines' I/O queues. Called from the main context.
func (c *Controller) Pump() {
	c.L.Pump()
	c.R.Pump()
}

// QueueOverruns sums the overrun counters of both engines.
func (c *Controller) QueueOverruns() uint64 {
	return c.L.QueueOverruns() + c.R.QueueOverruns()
}

// LoopLengthAccum returns samples seen since the current recording
// pass began.
func (c *Controller) LoopLengthAccum() int64 { return c.loopLengthAccum }

func (c *Controller) setMode(m engine.Mode) {
	c.L.SetMode(m)
	c.R.SetMode(m)
}

func (c *Controller) setTotalLengthBoth(n int64) {
	c.L.SetTotalLength(n)
	c.R.SetTotalLength(n)
}

func (c *Controller) preparePlayBoth() {
	c.L.PreparePlay()
	c.R.PreparePlay()
}

// freeze pushes the half-filled trailing block to storage and fixes
// loop_length at whatever loop_length_accum has reached.
func (c *Controller) freeze() {
	c.setTotalLengthBoth(c.loopLengthAccum)
	c.L.FlushEnd()
	c.R.FlushEnd()
}

// Record implements the Record trigger: toggles between freezing the
// in-progress base-loop recording and starting a new one.
func (c *Controller) Record() {
	if c.Mode() == engine.Recording {
		c.freeze()
		c.setMode(engine.Playback)
		c.preparePlayBoth()
		return
	}
	c.loopLengthAccum = 0
	c.setTotalLengthBoth(0)
	c.setMode(engine.Recording)
	c.preparePlayBoth()
}

// PlayStop implements the Play/Stop trigger.
func (c *Controller) PlayStop() {
	switch c.Mode() {
	case engine.Recording:
		c.freeze()
		c.setMode(engine.Stopped)
	case engine.Overdub, engine.Playback:
		c.setMode(engine.Stopped)
	case engine.Stopped:
		c.setMode(engine.Playback)
		c.preparePlayBoth()
	}
}

// Overdub implements the Overdub trigger. A no-op while recording the
// base loop: overdubbing before a loop length exists is disallowed.
func (c *Controller) Overdub() {
	switch c.Mode() {
	case engine.Recording:
		return
	case engine.Playback:
		c.setMode(engine.Overdub)
	case engine.Overdub:
		c.setMode(engine.Playback)
	case engine.Stopped:
		c.setMode(engine.Overdub)
		c.preparePlayBoth()
	}
}

// withAudioDisabled suspends the audio context (Process starts
// returning silence immediately) for the duration of fn, guaranteeing
// re-enable on every exit path including a returned error or panic.
func (c *Controller) withAudioDisabled(fn func() error) error {
	c.disabled.Store(true)
	defer c.disabled.Store(false)
	return fn()
}

// SetLength pre-allocates a silent loop of exactly `samples` samples:
// zero-fills the live file, clears the loop-start cache, and arms both
// engines to play/overdub that silence. Intended use: arm a loop of
// known duration, then overdub into it from nothing.
func (c *Controller) SetLength(samples int64) error {
	return c.withAudioDisabled(func() error {
		if err := c.L.ZeroFill(samples); err != nil {
			return err
		}
		if err := c.R.ZeroFill(samples); err != nil {
			return err
		}
		c.setTotalLengthBoth(samples)
		c.loopLengthAccum = samples
		c.preparePlayBoth()
		return nil
	})
}

// SetLengthFromParams computes the target sample count from the
// current SetLength/SetLengthMode/Bpm parameters and calls SetLength.
func (c *Controller) SetLengthFromParams() error {
	samples := SamplesForSetLength(c.parameters[SetLength], c.parameters[SetLengthMode], c.parameters[Bpm], c.sampleRate)
	return c.SetLength(samples)
}

// SetParameter stores a raw parameter value. Scaling happens on
// demand via the Scale* functions in params.go.
func (c *Controller) SetParameter(param Param, raw uint16) {
	c.parameters[param] = raw
}

// Parameter returns a raw parameter value.
func (c *Controller) Parameter(param Param) uint16 { return c.parameters[param] }

// AllParameters returns a copy of the full parameter vector, in the
// order persisted to the settings file.
func (c *Controller) AllParameters() [ParamCount]uint16 { return c.parameters }

// LoadAllParameters replaces the full parameter vector, e.g. after
// reading it back from the settings file at startup.
func (c *Controller) LoadAllParameters(v [ParamCount]uint16) { c.parameters = v }

func zero(s []engine.Sample) {
	for i := range s {
		s[i] = 0
	}
}
