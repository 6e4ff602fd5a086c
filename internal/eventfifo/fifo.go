// ABOUTME: Wait-free single-producer single-consumer event queue
// ABOUTME: Carries (frame offset, packed event) pairs between threads

// Package eventfifo provides the bounded wait-free queue that moves
// timestamped events from an asynchronous producer thread to the
// real-time audio thread. Exactly one goroutine may push and exactly one
// may drain; neither side ever blocks or allocates.
package eventfifo

import "sync/atomic"

// DefaultCapacity is the slot count used when New is given a
// non-positive capacity.
const DefaultCapacity = 1024

// FIFO is a bounded single-producer single-consumer queue of
// (frameOffset, event) pairs. Each pair occupies one atomically written
// slot, so a drain never observes a half-written entry.
type FIFO struct {
	slots []atomic.Uint64
	mask  uint32

	// Indices grow without bound and wrap via mask; uint32 arithmetic
	// keeps tail-head correct across overflow.
	head    atomic.Uint32 // consumer position
	tail    atomic.Uint32 // producer position
	dropped atomic.Uint64
}

// New creates a FIFO with at least the requested capacity, rounded up to
// a power of two.
func New(capacity int) *FIFO {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &FIFO{
		slots: make([]atomic.Uint64, size),
		mask:  uint32(size - 1),
	}
}

// Push appends one event at a frame offset within the upcoming block.
// Producer side only. When the queue is full the event is dropped and
// Push returns false; the newest event is the one lost.
func (f *FIFO) Push(frameOffset uint32, event int32) bool {
	tail := f.tail.Load()
	if tail-f.head.Load() >= uint32(len(f.slots)) {
		f.dropped.Add(1)
		return false
	}
	f.slots[tail&f.mask].Store(pack(frameOffset, event))
	f.tail.Store(tail + 1)
	return true
}

// Drain consumes every queued event in arrival order. Consumer side
// only. Returns the number of events handed to fn.
func (f *FIFO) Drain(fn func(frameOffset uint32, event int32)) int {
	head := f.head.Load()
	tail := f.tail.Load()
	n := 0
	for ; head != tail; head++ {
		offset, event := unpack(f.slots[head&f.mask].Load())
		fn(offset, event)
		n++
	}
	f.head.Store(head)
	return n
}

// Len returns the number of queued events. Approximate while the
// producer is active.
func (f *FIFO) Len() int {
	return int(f.tail.Load() - f.head.Load())
}

// Cap returns the slot count.
func (f *FIFO) Cap() int {
	return len(f.slots)
}

// Dropped returns how many events Push has discarded on overflow.
func (f *FIFO) Dropped() uint64 {
	return f.dropped.Load()
}

func pack(frameOffset uint32, event int32) uint64 {
	return uint64(frameOffset)<<32 | uint64(uint32(event))
}

func unpack(v uint64) (frameOffset uint32, event int32) {
	return uint32(v >> 32), int32(uint32(v))
}
