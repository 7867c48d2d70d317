package audio

import "math"

// clipDecayBlocks is how many Update calls a clip flag stays latched,
// counting the last block that tripped it, matching the original
// firmware's AudioCallback decay of 2000 blocks.
const clipDecayBlocks = 2000

// ClipMeter tracks a decaying clip indicator from peak sample
// magnitude against a fixed threshold — one per monitored signal
// (input or output), grounded on DejaVu.h's AudioCallback.
type ClipMeter struct {
	threshold float32
	decay     int
}

// NewClipMeter creates a meter that latches when any sample's absolute
// value reaches threshold.
func NewClipMeter(threshold float32) *ClipMeter {
	return &ClipMeter{threshold: threshold}
}

// Update feeds one block of samples (from either channel) through the
// meter, updating its decay counter.
func (c *ClipMeter) Update(block []float32) {
	peak := maxAbs(block)
	if peak >= c.threshold {
		c.decay = clipDecayBlocks
	} else if c.decay > 0 {
		c.decay--
	}
}

// Clipping reports whether the meter is currently latched.
func (c *ClipMeter) Clipping() bool { return c.decay > 0 }

func maxAbs(block []float32) float32 {
	var m float32
	for _, s := range block {
		a := float32(math.Abs(float64(s)))
		if a > m {
			m = a
		}
	}
	return m
}
