// Package engine implements the per-channel Recording Engine: a
// file-backed circular loop buffer driven from a realtime audio
// callback, with storage I/O handled asynchronously by a cooperative
// pump running outside the callback.
package engine

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Sample is a single audio sample, nominally in [-1.0, +1.0].
type Sample = float32

// StorageBlockSamples is S, the atomic unit of file I/O.
const StorageBlockSamples = 4096

// storageFileCeiling is F, the preallocated ceiling of a live loop file
// in samples (~90s @ 48kHz), matching the 17.28MB preallocation the
// original firmware requests of the SD card.
const storageFileCeiling = 4_320_000

// readPipelineDepth is the triple-buffer depth of the playback read
// pipeline: buf_read, buf_read_next, buf_read_next_next. Two isn't
// enough — the storage op for the block after next must be in flight
// while the current block plays.
const readPipelineDepth = 3

// Mode is the four-valued engine state. The Engine never transitions
// itself; only the Controller calls SetMode.
type Mode int32

const (
	Stopped Mode = iota
	Recording
	Overdub
	Playback
)

func (m Mode) String() string {
	switch m {
	case Stopped:
		return "Stopped"
	case Recording:
		return "Recording"
	case Overdub:
		return "Overdub"
	case Playback:
		return "Playback"
	default:
		return "Unknown"
	}
}

// Engine is one channel's Recording Engine.
type Engine struct {
	storage      Storage
	blockSamples int // B

	mode atomic.Int32

	loopStartBlocks [2][]Sample

	bufWrite []Sample

	readBufs    [readPipelineDepth][]Sample
	readOffsets [readPipelineDepth]int64
	readHead    int

	idxInBlock int
	idxInLoop  int64

	flashIdxRead  int64
	flashIdxWrite int64

	loopLength  int64
	storageArea int64

	latchedRead    bool
	latchedWrite   bool
	latchedOverdub bool

	readQ  *ioQueue
	writeQ *ioQueue
}

// New creates an Engine for one channel. blockSamples is B, the
// realtime audio block length; it must divide StorageBlockSamples.
func New(storage Storage, blockSamples int) *Engine {
	e := &Engine{
		storage:      storage,
		blockSamples: blockSamples,
	}
	e.bufWrite = make([]Sample, StorageBlockSamples)
	e.loopStartBlocks[0] = make([]Sample, StorageBlockSamples)
	e.loopStartBlocks[1] = make([]Sample, StorageBlockSamples)
	for i := range e.readBufs {
		e.readBufs[i] = make([]Sample, StorageBlockSamples)
	}
	e.readQ = newReadQueue(4)
	e.writeQ = newWriteQueue(4, StorageBlockSamples)
	return e
}

// Init preallocates the backing storage, zeroes all RAM buffers,
// empties the I/O queues and sets Mode to Stopped.
func (e *Engine) Init() error {
	if err := e.storage.Preallocate(storageFileCeiling); err != nil {
		return fmt.Errorf("engine: preallocate storage: %w: %w", ErrResourceInit, err)
	}
	zero(e.bufWrite)
	zero(e.loopStartBlocks[0])
	zero(e.loopStartBlocks[1])
	for i := range e.readBufs {
		zero(e.readBufs[i])
		e.readOffsets[i] = 0
	}
	e.readHead = 0
	e.idxInBlock = 0
	e.idxInLoop = 0
	e.flashIdxRead = 0
	e.flashIdxWrite = 0
	e.latchedRead, e.latchedWrite, e.latchedOverdub = false, false, false
	e.readQ.reset()
	e.writeQ.reset()
	e.mode.Store(int32(Stopped))
	return nil
}

// Mode returns the current mode. Safe to call from the audio context.
func (e *Engine) Mode() Mode { return Mode(e.mode.Load()) }

// SetMode sets the requested mode. Called only by the Controller.
func (e *Engine) SetMode(m Mode) { e.mode.Store(int32(m)) }

// SetTotalLength sets loop_length and recomputes storage_area. A
// zero length means "record indefinitely until the caller sets a
// length" (the boundary check against loop_length is then inert).
func (e *Engine) SetTotalLength(n int64) {
	e.loopLength = n
	e.storageArea = roundUpS(n)
}

func roundUpS(n int64) int64 {
	if n <= 0 {
		return 0
	}
	rem := n % StorageBlockSamples
	if rem == 0 {
		return n
	}
	return n + (StorageBlockSamples - rem)
}

// LoopLength returns the currently configured loop length in samples.
func (e *Engine) LoopLength() int64 { return e.loopLength }

// StorageArea returns storage_area, the loop length rounded up to S.
func (e *Engine) StorageArea() int64 { return e.storageArea }

// IdxInLoop returns the current playback/record cursor within the loop.
func (e *Engine) IdxInLoop() int64 { return e.idxInLoop }

// PreparePlay resets the playback pipeline to the loop start, preloading
// the cached loop-start blocks so the first two storage blocks are
// available with zero storage latency.
func (e *Engine) PreparePlay() {
	e.readHead = 0
	copy(e.readBufs[1], e.loopStartBlocks[0])
	copy(e.readBufs[2], e.loopStartBlocks[1])
	zero(e.readBufs[0])
	e.readOffsets[1] = 0
	e.readOffsets[2] = StorageBlockSamples
	e.flashIdxRead = 2 * StorageBlockSamples
	e.flashIdxWrite = 0
	e.idxInBlock = 0
	e.idxInLoop = 0
	e.latchedRead, e.latchedWrite, e.latchedOverdub = false, false, false
	e.advanceRead()
}

// bufRead returns the pipeline stage currently being played.
func (e *Engine) bufRead() []Sample { return e.readBufs[e.readHead] }

// offsetOfBufRead returns the flash offset the current buf_read's
// contents were loaded from.
func (e *Engine) offsetOfBufRead() int64 { return e.readOffsets[e.readHead] }

// Process is realtime-safe: it never blocks, allocates, or touches
// storage. input and output are B-sample blocks.
func (e *Engine) Process(input, output []Sample) {
	mode := e.Mode()
	shouldRead := mode == Playback || mode == Overdub
	shouldWrite := mode == Recording || mode == Overdub
	isOverdub := mode == Overdub

	e.latchedRead = e.latchedRead || shouldRead
	e.latchedWrite = e.latchedWrite || shouldWrite
	e.latchedOverdub = e.latchedOverdub || isOverdub

	if e.idxInBlock >= StorageBlockSamples || (e.loopLength > 0 && e.idxInLoop >= e.loopLength) {
		if e.latchedWrite {
			e.advanceWrite()
		}
		if e.latchedRead {
			e.advanceRead()
		}
		if e.loopLength > 0 && e.idxInLoop >= e.loopLength {
			e.idxInLoop = 0
		}
		e.idxInBlock = 0
	}

	if shouldRead {
		copy(output, e.bufRead()[e.idxInBlock:e.idxInBlock+e.blockSamples])
	}
	if shouldWrite {
		copy(e.bufWrite[e.idxInBlock:e.idxInBlock+e.blockSamples], input)
	} else {
		zero(e.bufWrite[e.idxInBlock : e.idxInBlock+e.blockSamples])
	}

	e.idxInBlock += e.blockSamples
	e.idxInLoop += int64(e.blockSamples)
}

// advanceWrite snapshots buf_write into the next write-op slot and, if
// overdubbing, mixes the just-played block into it and writes back to
// that block's own offset so overdub writes never drift from playback.
func (e *Engine) advanceWrite() {
	target := e.flashIdxWrite
	if e.latchedOverdub {
		mix(e.bufWrite, e.bufRead())
		target = e.offsetOfBufRead()
	}
	e.writeQ.enqueueCopy(target, e.bufWrite)
	zero(e.bufWrite)

	e.flashIdxWrite += StorageBlockSamples
	if e.storageArea > 0 && e.flashIdxWrite >= e.storageArea {
		e.flashIdxWrite = 0
	}
	e.latchedWrite = false
	e.latchedOverdub = false
}

// advanceRead rotates the triple-buffer read pipeline and enqueues a
// read for the block that will become buf_read_next_next.
func (e *Engine) advanceRead() {
	recycleIdx := e.readHead
	recycle := e.readBufs[recycleIdx]
	zero(recycle)

	e.readQ.enqueueRef(e.flashIdxRead, recycle)
	e.readOffsets[recycleIdx] = e.flashIdxRead

	e.flashIdxRead += StorageBlockSamples
	if e.storageArea > 0 && e.flashIdxRead >= e.storageArea {
		e.flashIdxRead = 0
	}
	e.readHead = (e.readHead + 1) % readPipelineDepth
	e.latchedRead = false
}

// FlushEnd pushes a half-filled buf_write to storage so the loop
// boundary is sample-accurate even when loop_length isn't a multiple
// of S. Called by the Controller when Recording stops.
func (e *Engine) FlushEnd() {
	mode := e.Mode()
	if mode != Recording && mode != Overdub {
		return
	}
	e.advanceWrite()
}

// Pump drains the read and write queues in FIFO order, performing the
// actual storage I/O. Write ops are drained before read ops, so an
// overdub's write to block k becomes visible before the next read of
// block k (which is naturally satisfied anyway since the write for
// block k is enqueued exactly when buf_read for block k rotates out).
func (e *Engine) Pump() {
	e.writeQ.drain(func(offset int64, payload []Sample) {
		if offset < 0 || (e.storageArea > 0 && offset >= e.storageArea) {
			log.Printf("engine: discarding out-of-range write at offset %d (storage_area=%d)", offset, e.storageArea)
			return
		}
		if _, err := e.storage.WriteBlock(offset, payload); err != nil {
			log.Printf("engine: write failed at offset %d: %v", offset, err)
			return
		}
		if offset == 0 {
			copy(e.loopStartBlocks[0], payload)
		} else if offset == StorageBlockSamples {
			copy(e.loopStartBlocks[1], payload)
		}
	})
	e.readQ.drain(func(offset int64, dst []Sample) {
		if e.storageArea > 0 && offset >= e.storageArea {
			// Out-of-range read: discarded silently, dst stays zeroed.
			return
		}
		// The loop seam (offset 0 or S) is latency-critical: serve it
		// from the RAM-resident cache instead of round-tripping to
		// storage, same as the two cached loop-start blocks promise.
		switch offset {
		case 0:
			copy(dst, e.loopStartBlocks[0])
		case StorageBlockSamples:
			copy(dst, e.loopStartBlocks[1])
		default:
			if _, err := e.storage.ReadBlock(offset, dst); err != nil {
				log.Printf("engine: read failed at offset %d: %v", offset, err)
			}
		}
	})
}

// QueueOverruns reports how many times the producer found a pending
// slot still unconsumed and overwrote it. Audio-thread errors are
// counters only, never surfaced inline.
func (e *Engine) QueueOverruns() uint64 {
	return e.readQ.overruns.Load() + e.writeQ.overruns.Load()
}

// ZeroFill writes `samples` samples of silence starting at offset 0,
// rounded up to a whole number of storage blocks, and clears the
// loop-start cache. Used by SetLength to arm a silent loop.
func (e *Engine) ZeroFill(samples int64) error {
	area := roundUpS(samples)
	zeroBlock := make([]Sample, StorageBlockSamples)
	for off := int64(0); off < area; off += StorageBlockSamples {
		if _, err := e.storage.WriteBlock(off, zeroBlock); err != nil {
			return fmt.Errorf("engine: zero-fill at offset %d: %w", off, err)
		}
	}
	zero(e.loopStartBlocks[0])
	zero(e.loopStartBlocks[1])
	return nil
}

// ReadLiveBlock and WriteLiveBlock expose raw storage access for the
// Controller's Save/Load slot persistence.
func (e *Engine) ReadLiveBlock(offset int64, dst []Sample) error {
	_, err := e.storage.ReadBlock(offset, dst)
	return err
}

func (e *Engine) WriteLiveBlock(offset int64, src []Sample) error {
	_, err := e.storage.WriteBlock(offset, src)
	return err
}

// SetLoopStartBlock overwrites loop_start_blocks[i] (i in {0,1}), used
// after Load repopulates the live file from a slot.
func (e *Engine) SetLoopStartBlock(i int, data []Sample) {
	copy(e.loopStartBlocks[i], data)
}

// LoopStartBlock returns a copy of loop_start_blocks[i] (i in {0,1}).
func (e *Engine) LoopStartBlock(i int) []Sample {
	out := make([]Sample, len(e.loopStartBlocks[i]))
	copy(out, e.loopStartBlocks[i])
	return out
}

func zero(s []Sample) {
	for i := range s {
		s[i] = 0
	}
}

func mix(dst, src []Sample) {
	for i := range dst {
		dst[i] += src[i]
	}
}
