// Package export renders and imports loop slots as WAV files via
// ffmpeg, the same pipe-to-ffmpeg technique the original renderer used
// to encode offscreen frames to video.
package export

import (
	"fmt"
	"io"
	"math"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Options controls the raw PCM format on the Go side of the pipe;
// ffmpeg handles the WAV container and any needed resampling.
type Options struct {
	SampleRate int
	Channels   int
	FFmpegPath string
}

// ToWAV streams interleaved float32 PCM through ffmpeg into a WAV
// file at outputPath.
func ToWAV(pcm []float32, outputPath string, opts Options) error {
	raw := make([]byte, len(pcm)*4)
	encodeFloat32LE(raw, pcm)

	pipeReader, pipeWriter := io.Pipe()

	cmd := ffmpeg.Input("pipe:",
		ffmpeg.KwArgs{
			"format":         "f32le",
			"ar":             fmt.Sprintf("%d", opts.SampleRate),
			"ac":             fmt.Sprintf("%d", opts.Channels),
			"channel_layout": layoutName(opts.Channels),
		},
	).Output(outputPath,
		ffmpeg.KwArgs{
			"c:a": "pcm_s16le",
		},
	).OverWriteOutput().WithInput(pipeReader).ErrorToStdOut()

	if opts.FFmpegPath != "" {
		cmd = cmd.SetFfmpegPath(opts.FFmpegPath)
	}

	errc := make(chan error, 1)
	go func() { errc <- cmd.Run() }()

	if _, err := pipeWriter.Write(raw); err != nil {
		pipeWriter.Close()
		return fmt.Errorf("export: write pcm to ffmpeg pipe: %w", err)
	}
	pipeWriter.Close()

	if err := <-errc; err != nil {
		return fmt.Errorf("export: ffmpeg encode: %w", err)
	}
	return nil
}

// FromWAV decodes a WAV file (or anything ffmpeg can demux) into
// interleaved float32 PCM at the given sample rate and channel count.
func FromWAV(inputPath string, opts Options) ([]float32, error) {
	pipeReader, pipeWriter := io.Pipe()

	cmd := ffmpeg.Input(inputPath).
		Output("pipe:",
			ffmpeg.KwArgs{
				"format": "f32le",
				"ar":     fmt.Sprintf("%d", opts.SampleRate),
				"ac":     fmt.Sprintf("%d", opts.Channels),
			},
		).WithOutput(pipeWriter).ErrorToStdOut()

	if opts.FFmpegPath != "" {
		cmd = cmd.SetFfmpegPath(opts.FFmpegPath)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- cmd.Run()
		pipeWriter.Close()
	}()

	raw, readErr := io.ReadAll(pipeReader)
	if err := <-errc; err != nil {
		return nil, fmt.Errorf("export: ffmpeg decode: %w", err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("export: read decoded pcm: %w", readErr)
	}

	out := make([]float32, len(raw)/4)
	decodeFloat32LE(out, raw)
	return out, nil
}

func layoutName(channels int) string {
	if channels == 1 {
		return "mono"
	}
	return "stereo"
}

func decodeFloat32LE(dst []float32, buf []byte) {
	for i := 0; i*4+4 <= len(buf) && i < len(dst); i++ {
		bits := uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		dst[i] = math.Float32frombits(bits)
	}
}

func encodeFloat32LE(buf []byte, src []float32) {
	for i, s := range src {
		bits := math.Float32bits(s)
		buf[i*4] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
}
