package engine

import "sync/atomic"

// ioSlot is one entry of a single-producer/single-consumer queue. The
// payload is owned by exactly one side at a time: by the producer
// (audio context) before pending flips true, by the consumer (main
// context, draining in Pump) until it flips pending back to false.
type ioSlot struct {
	pending atomic.Bool
	offset  int64
	payload []Sample
}

// ioQueue is a fixed-capacity ring of pending I/O operations. head is
// written only by the producer, tail only by the consumer; no lock is
// required because the atomic pending flag on each slot provides the
// release/acquire handoff of the payload.
type ioQueue struct {
	slots []ioSlot
	head  atomic.Uint64
	tail  uint64

	// copyOnEnqueue selects write-queue semantics (payload copied into
	// a slot-owned buffer, since the audio thread reuses its source
	// buffer immediately) versus read-queue semantics (the slot simply
	// holds a reference to the destination the pipeline rotation
	// handed it, filled in place by Pump).
	copyOnEnqueue bool

	overruns atomic.Uint64
}

func newWriteQueue(capacity, blockSamples int) *ioQueue {
	q := &ioQueue{slots: make([]ioSlot, capacity), copyOnEnqueue: true}
	for i := range q.slots {
		q.slots[i].payload = make([]Sample, blockSamples)
	}
	return q
}

func newReadQueue(capacity int) *ioQueue {
	return &ioQueue{slots: make([]ioSlot, capacity), copyOnEnqueue: false}
}

func (q *ioQueue) reset() {
	for i := range q.slots {
		q.slots[i].pending.Store(false)
		q.slots[i].offset = 0
	}
	q.head.Store(0)
	q.tail = 0
	q.overruns.Store(0)
}

// enqueueCopy is used by write queues: src is copied into the slot's
// own buffer since the caller reuses src immediately afterward.
func (q *ioQueue) enqueueCopy(offset int64, src []Sample) {
	idx := q.head.Load() % uint64(len(q.slots))
	slot := &q.slots[idx]
	if slot.pending.Load() {
		// Overload: the consumer hasn't drained this slot yet. Warn
		// (via counter — the audio thread never logs inline) and
		// overwrite, preferring forward progress over data integrity.
		q.overruns.Add(1)
	}
	slot.offset = offset
	copy(slot.payload, src)
	slot.pending.Store(true)
	q.head.Add(1)
}

// enqueueRef is used by read queues: dst is referenced directly, since
// the read pipeline's rotation guarantees the engine won't touch it
// again until at least two storage blocks later.
func (q *ioQueue) enqueueRef(offset int64, dst []Sample) {
	idx := q.head.Load() % uint64(len(q.slots))
	slot := &q.slots[idx]
	if slot.pending.Load() {
		q.overruns.Add(1)
	}
	slot.offset = offset
	slot.payload = dst
	slot.pending.Store(true)
	q.head.Add(1)
}

// drain consumes pending ops in FIFO order, invoking fn for each.
func (q *ioQueue) drain(fn func(offset int64, payload []Sample)) {
	head := q.head.Load()
	for q.tail != head {
		idx := q.tail % uint64(len(q.slots))
		slot := &q.slots[idx]
		if slot.pending.Load() {
			fn(slot.offset, slot.payload)
			slot.pending.Store(false)
		}
		q.tail++
	}
}
