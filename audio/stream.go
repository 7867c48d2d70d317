// Package audio provides the realtime-facing adapters between PortAudio
// and a looper.Controller: a duplex stream that drives Controller.Process
// directly from the callback, and the clip-detection/gain utilities the
// Effect Shell uses around it.
package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// ProcessFunc is the realtime callback a DuplexStream drives: L/R input
// in, L/R output out, both length blockSamples. Implementations must
// never block, allocate, or touch storage — the same realtime-safety
// contract as looper.Controller.Process, which is what this is for.
type ProcessFunc func(inL, inR, outL, outR []float32)

// DuplexStream is a stereo-in/stereo-out PortAudio stream.
type DuplexStream struct {
	sampleRate int
	stream     *portaudio.Stream
	process    ProcessFunc

	inL, inR   []float32
	outL, outR []float32

	streaming bool
}

// NewDuplexStream initializes PortAudio and prepares a duplex stream
// at the given sample rate and block length. process is invoked
// directly from the audio callback.
func NewDuplexStream(sampleRate, blockSamples int, process ProcessFunc) (*DuplexStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: initialize portaudio: %w", err)
	}
	return &DuplexStream{
		sampleRate: sampleRate,
		process:    process,
		inL:        make([]float32, blockSamples),
		inR:        make([]float32, blockSamples),
		outL:       make([]float32, blockSamples),
		outR:       make([]float32, blockSamples),
	}, nil
}

// callback receives/returns interleaved stereo frames; PortAudio owns
// both slices for the duration of the call and reuses them afterward.
func (d *DuplexStream) callback(in, out []float32) {
	deinterleaveStereo(in, d.inL, d.inR)
	d.process(d.inL, d.inR, d.outL, d.outR)
	interleaveStereo(d.outL, d.outR, out)
}

// Start opens and starts the duplex stream on the host's default
// input/output devices.
func (d *DuplexStream) Start() error {
	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return fmt.Errorf("audio: default host api: %w", err)
	}

	params := portaudio.LowLatencyParameters(host.DefaultInputDevice, host.DefaultOutputDevice)
	params.Input.Channels = 2
	params.Output.Channels = 2
	params.SampleRate = float64(d.sampleRate)
	params.FramesPerBuffer = len(d.inL)

	stream, err := portaudio.OpenStream(params, d.callback)
	if err != nil {
		return fmt.Errorf("audio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return fmt.Errorf("audio: start stream: %w", err)
	}
	d.stream = stream
	d.streaming = true
	return nil
}

// Stop closes the stream and terminates PortAudio.
func (d *DuplexStream) Stop() error {
	if !d.streaming {
		return nil
	}
	d.streaming = false
	if err := d.stream.Close(); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("audio: close stream: %w", err)
	}
	return portaudio.Terminate()
}

// SampleRate returns the stream's configured sample rate.
func (d *DuplexStream) SampleRate() int { return d.sampleRate }

func deinterleaveStereo(stereo, l, r []float32) {
	for i := range l {
		l[i] = stereo[i*2]
		r[i] = stereo[i*2+1]
	}
}

func interleaveStereo(l, r, stereo []float32) {
	for i := range l {
		stereo[i*2] = l[i]
		stereo[i*2+1] = r[i]
	}
}
