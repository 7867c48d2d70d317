package looper

// Param identifies one entry of the seven-slot parameter vector, raw
// values in [0, 1023]. Order matches the persisted settings file, so
// it must never be reordered.
type Param int

const (
	InGain Param = iota
	OutGain
	LoadSlot
	SaveSlot
	SetLength
	SetLengthMode
	Bpm

	ParamCount
)

// LengthMode selects the unit SetLength is expressed in.
type LengthMode int

const (
	Seconds LengthMode = iota
	Beats
	Bars
)

const rawMax = 1023

// p normalizes a raw parameter value to [0, 1].
func p(raw uint16) float64 {
	return float64(raw) / rawMax
}

// ScaleInGainDB maps the raw InGain value to dB in [0, 20], 0.5 dB
// increments — applied by the input codec, not the DSP path.
func ScaleInGainDB(raw uint16) float64 {
	return float64(int(p(raw)*40)) / 2.0
}

// ScaleOutGainDB maps the raw OutGain value to dB in [-20, +20],
// applied as linear gain after the engine's output.
func ScaleOutGainDB(raw uint16) float64 {
	return -20 + p(raw)*40
}

// ScaleSlot maps a raw LoadSlot/SaveSlot value to a slot number in [1, 30].
func ScaleSlot(raw uint16) int {
	return 1 + int(p(raw)*29)
}

// ScaleBpm maps the raw Bpm value to an integer in [10, 300].
func ScaleBpm(raw uint16) int {
	return 10 + int(p(raw)*290)
}

// ScaleLengthMode maps the raw SetLengthMode value to a LengthMode.
func ScaleLengthMode(raw uint16) LengthMode {
	switch v := int(p(raw) * 2.999); v {
	case 0:
		return Seconds
	case 1:
		return Beats
	default:
		return Bars
	}
}

// ScaleLengthSeconds maps the raw SetLength value to seconds, per the
// spec's two-region scaling: fine steps (0.1s) across [3.0, 30.0] for
// the lower half of the raw range, coarse steps (1s) across (30, 120]
// for the upper half. The two regions are deliberately continuous at
// the raw-value seam (raw=511/512), rather than reproducing the
// flagged non-monotone duplication of drafts the spec carries forward
// as an open question — see DESIGN.md.
func ScaleLengthSeconds(raw uint16) float64 {
	const mid = 512
	if raw < mid {
		frac := float64(raw) / float64(mid)
		steps := float64(int(frac * 270)) // (30.0-3.0)/0.1 = 270 steps
		return 3.0 + steps*0.1
	}
	frac := float64(raw-mid) / float64(rawMax-mid)
	steps := float64(int(frac * 90)) // 120-30 = 90 steps of 1s
	return 30.0 + steps*1.0
}

// ScaleLengthBeats maps the raw SetLength value to an integer beat
// count in [1, 128].
func ScaleLengthBeats(raw uint16) int {
	return 1 + int(p(raw)*127)
}

// ScaleLengthBars maps the raw SetLength value to an integer bar count
// in [1, 16], assuming 4/4 time.
func ScaleLengthBars(raw uint16) int {
	return 1 + int(p(raw)*15)
}

// SamplesForSetLength converts the SetLength/SetLengthMode/Bpm raw
// parameter triple into a sample count at the given sample rate.
func SamplesForSetLength(lengthRaw, modeRaw, bpmRaw uint16, sampleRate int) int64 {
	switch ScaleLengthMode(modeRaw) {
	case Beats:
		beats := ScaleLengthBeats(lengthRaw)
		bpm := ScaleBpm(bpmRaw)
		seconds := float64(beats) / float64(bpm) * 60.0
		return int64(seconds * float64(sampleRate))
	case Bars:
		bars := ScaleLengthBars(lengthRaw)
		bpm := ScaleBpm(bpmRaw)
		seconds := float64(bars) * 4.0 / float64(bpm) * 60.0
		return int64(seconds * float64(sampleRate))
	default:
		seconds := ScaleLengthSeconds(lengthRaw)
		return int64(seconds * float64(sampleRate))
	}
}
