package looper

import (
	"fmt"

	"github.com/loopstream/pedal/engine"
	"github.com/loopstream/pedal/export"
)

// ExportSlot renders a previously saved slot to a WAV file at path, so
// a loop can be used outside the pedal. Returns engine.ErrSlotMissing
// if the slot was never saved.
func (c *Controller) ExportSlot(slot int, path string) error {
	_, areaL, left, err := readSlotFile(c.slotPath(slot, "L"))
	if err != nil {
		return fmt.Errorf("looper: export slot %d (L): %w", slot, err)
	}
	_, areaR, right, err := readSlotFile(c.slotPath(slot, "R"))
	if err != nil {
		return fmt.Errorf("looper: export slot %d (R): %w", slot, err)
	}
	if areaL != areaR {
		return fmt.Errorf("looper: export slot %d: %w", slot, engine.ErrSlotCorrupt)
	}

	pcm := interleaveStereo(left, right)
	opts := export.Options{SampleRate: c.sampleRate, Channels: 2}
	if err := export.ToWAV(pcm, path, opts); err != nil {
		return fmt.Errorf("looper: export slot %d: %w", slot, err)
	}
	return nil
}

// ImportSlot decodes a WAV (or anything ffmpeg can demux) file at path
// into stereo PCM and writes it into slot the same way Save would,
// ready to be Load-ed.
func (c *Controller) ImportSlot(path string, slot int) error {
	opts := export.Options{SampleRate: c.sampleRate, Channels: 2}
	pcm, err := export.FromWAV(path, opts)
	if err != nil {
		return fmt.Errorf("looper: import %s into slot %d: %w", path, slot, err)
	}

	left, right := deinterleaveStereo(pcm)
	loopLength := int64(len(left))
	area := (loopLength + engine.StorageBlockSamples - 1) / engine.StorageBlockSamples * engine.StorageBlockSamples
	pad := make([]engine.Sample, area-loopLength)
	left = append(left, pad...)
	right = append(right, pad...)

	if err := writeSlotFile(c.slotPath(slot, "L"), loopLength, area, left); err != nil {
		return fmt.Errorf("looper: import %s into slot %d (L): %w", path, slot, err)
	}
	if err := writeSlotFile(c.slotPath(slot, "R"), loopLength, area, right); err != nil {
		return fmt.Errorf("looper: import %s into slot %d (R): %w", path, slot, err)
	}
	return nil
}

func interleaveStereo(l, r []engine.Sample) []engine.Sample {
	out := make([]engine.Sample, 2*len(l))
	for i := range l {
		out[2*i] = l[i]
		out[2*i+1] = r[i]
	}
	return out
}

func deinterleaveStereo(stereo []engine.Sample) (l, r []engine.Sample) {
	n := len(stereo) / 2
	l = make([]engine.Sample, n)
	r = make([]engine.Sample, n)
	for i := 0; i < n; i++ {
		l[i] = stereo[2*i]
		r[i] = stereo[2*i+1]
	}
	return l, r
}
