package looper

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loopstream/pedal/engine"
)

// slotPath returns the per-channel file path for a given slot number.
func (c *Controller) slotPath(slot int, channel string) string {
	return filepath.Join(c.slotDir, fmt.Sprintf("slot%02d.%s", slot, channel))
}

// Save copies the first storage_area samples of the live loop file
// into a per-slot file on each channel, suspending the audio context
// for the duration.
func (c *Controller) Save(slot int) error {
	return c.withAudioDisabled(func() error {
		if err := saveChannel(c.L, c.slotPath(slot, "L")); err != nil {
			return fmt.Errorf("looper: save slot %d (L): %w", slot, err)
		}
		if err := saveChannel(c.R, c.slotPath(slot, "R")); err != nil {
			return fmt.Errorf("looper: save slot %d (R): %w", slot, err)
		}
		return nil
	})
}

func saveChannel(e *engine.Engine, path string) error {
	area := e.StorageArea()
	payload := make([]engine.Sample, area)
	for off := int64(0); off < area; off += engine.StorageBlockSamples {
		n := int64(engine.StorageBlockSamples)
		if off+n > area {
			n = area - off
		}
		if err := e.ReadLiveBlock(off, payload[off:off+n]); err != nil {
			return fmt.Errorf("read live block at %d: %w", off, err)
		}
	}
	return writeSlotFile(path, e.LoopLength(), area, payload)
}

// writeSlotFile writes the slot file header (loop length, storage
// area) followed by the raw payload, the format both Save and Import
// produce.
func writeSlotFile(path string, loopLength, area int64, payload []engine.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create slot file: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, int32(loopLength)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, int32(area)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Load restores a previously saved slot into the live loop, repopulates
// the loop-start cache, fixes lengths and arms both engines to play.
// Returns engine.ErrSlotMissing if the slot was never saved, or
// engine.ErrSlotCorrupt if either channel's file is truncated.
func (c *Controller) Load(slot int) error {
	return c.withAudioDisabled(func() error {
		loopLenL, areaL, err := loadChannel(c.L, c.slotPath(slot, "L"))
		if err != nil {
			return fmt.Errorf("looper: load slot %d (L): %w", slot, err)
		}
		loopLenR, areaR, err := loadChannel(c.R, c.slotPath(slot, "R"))
		if err != nil {
			return fmt.Errorf("looper: load slot %d (R): %w", slot, err)
		}
		if loopLenL != loopLenR || areaL != areaR {
			return fmt.Errorf("looper: load slot %d: %w", slot, engine.ErrSlotCorrupt)
		}

		c.setTotalLengthBoth(loopLenL)
		c.loopLengthAccum = loopLenL
		c.preparePlayBoth()
		return nil
	})
}

func loadChannel(e *engine.Engine, path string) (loopLength, storageArea int64, err error) {
	loopLength, storageArea, payload, err := readSlotFile(path)
	if err != nil {
		return 0, 0, err
	}

	for off := int64(0); off < storageArea; off += engine.StorageBlockSamples {
		n := int64(engine.StorageBlockSamples)
		if off+n > storageArea {
			n = storageArea - off
		}
		if err := e.WriteLiveBlock(off, payload[off:off+n]); err != nil {
			return 0, 0, fmt.Errorf("write live block at %d: %w", off, err)
		}
	}

	if storageArea >= engine.StorageBlockSamples {
		e.SetLoopStartBlock(0, payload[0:engine.StorageBlockSamples])
	}
	if storageArea >= 2*engine.StorageBlockSamples {
		e.SetLoopStartBlock(1, payload[engine.StorageBlockSamples:2*engine.StorageBlockSamples])
	}

	return loopLength, storageArea, nil
}

// readSlotFile reads a slot file's header and payload. Returns
// engine.ErrSlotMissing if the file doesn't exist, or
// engine.ErrSlotCorrupt if the header or payload read short.
func readSlotFile(path string) (loopLength, storageArea int64, payload []engine.Sample, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, 0, nil, engine.ErrSlotMissing
		}
		return 0, 0, nil, fmt.Errorf("open slot file: %w", err)
	}
	defer f.Close()

	var ll, area int32
	if err := binary.Read(f, binary.LittleEndian, &ll); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: header", engine.ErrSlotCorrupt)
	}
	if err := binary.Read(f, binary.LittleEndian, &area); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: header", engine.ErrSlotCorrupt)
	}

	buf := make([]engine.Sample, area)
	if err := binary.Read(f, binary.LittleEndian, buf); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: payload", engine.ErrSlotCorrupt)
	}

	return int64(ll), int64(area), buf, nil
}
