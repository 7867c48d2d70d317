// Package metering analyzes the monitored loop signal for display,
// the way the original firmware's mic-input FFT channel windowed and
// transformed a rolling history buffer, but aimed here at the pedal's
// own output instead of a live microphone texture feed.
package metering

import (
	"math"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// SpectrumAnalyzer accumulates a rolling history of mono samples and,
// on demand, produces a magnitude spectrum sized fftSize/2.
type SpectrumAnalyzer struct {
	mu      sync.Mutex
	history []float32
	pos     int
	fftSize int
	window  []float64
}

// NewSpectrumAnalyzer builds an analyzer over windows of fftSize
// samples. fftSize should be a power of two; historyFactor multiplies
// it to size the rolling buffer (4 matches the original's margin).
func NewSpectrumAnalyzer(fftSize int, historyFactor int) *SpectrumAnalyzer {
	if historyFactor < 1 {
		historyFactor = 1
	}
	return &SpectrumAnalyzer{
		history: make([]float32, fftSize*historyFactor),
		fftSize: fftSize,
		window:  hanningWindow(fftSize),
	}
}

// Feed appends samples to the rolling history buffer. Safe to call
// from the audio callback; Spectrum() may run concurrently from a
// display goroutine.
func (s *SpectrumAnalyzer) Feed(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	for _, v := range samples {
		s.history[s.pos] = v
		s.pos = (s.pos + 1) % n
	}
}

// Spectrum windows the most recent fftSize samples and returns their
// magnitude spectrum, one bin per positive frequency, gain-scaled and
// clamped to [0,1] the same way the original's texture upload clamps
// its FFT magnitude channel.
func (s *SpectrumAnalyzer) Spectrum(gain float64) []float32 {
	recent := s.recentSamples()

	windowed := make([]float64, s.fftSize)
	for i, v := range recent {
		windowed[i] = float64(v) * s.window[i]
	}

	result := fft.FFTReal(windowed)
	bins := s.fftSize / 2
	mags := make([]float32, bins)
	for i := 0; i < bins; i++ {
		mag := math.Sqrt(real(result[i])*real(result[i]) + imag(result[i])*imag(result[i]))
		mag *= gain
		if mag > 1.0 {
			mag = 1.0
		}
		mags[i] = float32(mag)
	}
	return mags
}

func (s *SpectrumAnalyzer) recentSamples() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	out := make([]float32, s.fftSize)
	for i := 0; i < s.fftSize; i++ {
		idx := (s.pos - s.fftSize + i + n) % n
		out[i] = s.history[idx]
	}
	return out
}

func hanningWindow(size int) []float64 {
	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}
