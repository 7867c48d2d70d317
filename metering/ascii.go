package metering

import "strings"

var barLevels = []rune(" .:-=+*#%@")

// BarGraph collapses a magnitude spectrum into numBars buckets and
// renders each as a single character from barLevels, for a reference
// host with nothing but a terminal to show a tuner on.
func BarGraph(spectrum []float32, numBars int) string {
	if numBars <= 0 || len(spectrum) == 0 {
		return ""
	}
	bucket := len(spectrum) / numBars
	if bucket < 1 {
		bucket = 1
	}

	var b strings.Builder
	for i := 0; i < numBars; i++ {
		start := i * bucket
		end := start + bucket
		if end > len(spectrum) {
			end = len(spectrum)
		}
		if start >= end {
			b.WriteRune(barLevels[0])
			continue
		}
		var sum float32
		for _, v := range spectrum[start:end] {
			sum += v
		}
		avg := sum / float32(end-start)
		level := int(avg * float32(len(barLevels)-1))
		if level < 0 {
			level = 0
		}
		if level >= len(barLevels) {
			level = len(barLevels) - 1
		}
		b.WriteRune(barLevels[level])
	}
	return b.String()
}
