// Package ringbuf implements a fixed-capacity multi-producer
// single-consumer ring buffer, used directly as the executor's run queue
// and the timer registry.
package ringbuf

import "sync/atomic"

// Capacity is the fixed slot count of a RingBuffer, matching the
// original design's 10,000-entry queue.
const Capacity = 10_000

// RingBuffer is a lock-free MPSC ring buffer of fixed Capacity.
// Producers race on the write index via compare-and-swap; there must be
// exactly one consumer advancing the read index.
type RingBuffer[T any] struct {
	buffer   [Capacity]atomic.Pointer[T]
	readIdx  atomic.Uint64
	writeIdx atomic.Uint64
}

// New returns an empty RingBuffer.
func New[T any]() *RingBuffer[T] {
	return &RingBuffer[T]{}
}

// Put enqueues val, retrying only when it loses the write-index race to
// another producer. It reports false immediately when the buffer is full;
// it never waits for the consumer to free a slot.
func (r *RingBuffer[T]) Put(val T) bool {
	for {
		read := r.readIdx.Load()
		write := r.writeIdx.Load()
		if r.isFull(read, write) {
			return false
		}
		if r.writeIdx.CompareAndSwap(write, write+1) {
			r.buffer[write%Capacity].Store(&val)
			return true
		}
	}
}

// Get dequeues the oldest value, or reports ok=false if empty.
func (r *RingBuffer[T]) Get() (val T, ok bool) {
	for {
		write := r.writeIdx.Load()
		read := r.readIdx.Load()
		if read == write {
			return val, false
		}
		if r.readIdx.CompareAndSwap(read, read+1) {
			slot := r.buffer[read%Capacity].Swap(nil)
			if slot == nil {
				return val, false
			}
			return *slot, true
		}
	}
}

// Len reports the number of items currently queued. It is advisory under
// concurrent producers.
func (r *RingBuffer[T]) Len() int {
	write := r.writeIdx.Load()
	read := r.readIdx.Load()
	return int(write - read)
}

func (r *RingBuffer[T]) isFull(read, write uint64) bool {
	return write-read >= Capacity
}
