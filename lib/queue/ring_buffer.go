package queue

import (
	"sync/atomic"

	"github.com/benz9527/xdispatch/lib/bits"
)

var (
	_ RingBuffer[struct{}]      = (*xRingBuffer[struct{}])(nil)
	_ RingBufferEntry[struct{}] = (*rbEntry[struct{}])(nil)
)

type rbEntry[T any] struct {
	cursor atomic.Uint64
	value  T
}

func (e *rbEntry[T]) GetCursor() uint64 { return e.cursor.Load() }
func (e *rbEntry[T]) GetValue() T       { return e.value }
func (e *rbEntry[T]) ValueRef() *T      { return &e.value }

func (e *rbEntry[T]) Store(cursor uint64, value T) {
	e.value = value
	e.cursor.Store(cursor)
}

func (e *rbEntry[T]) Publish(cursor uint64) {
	e.cursor.Store(cursor)
}

// xRingBuffer is an arena of slots allocated once and indexed by
// cursor & (capacity-1). Slots are overwritten, never released.
type xRingBuffer[T any] struct {
	capacity uint64
	capMask  uint64
	entries  []rbEntry[T]
}

// NewXRingBuffer rounds the capacity up to a power of 2.
func NewXRingBuffer[T any](capacity uint64) RingBuffer[T] {
	if !bits.IsPowOf2(capacity) {
		capacity = bits.RoundupPowOf2ByCeil(capacity)
	}
	return &xRingBuffer[T]{
		capacity: capacity,
		capMask:  capacity - 1,
		entries:  make([]rbEntry[T], capacity),
	}
}

func (rb *xRingBuffer[T]) Capacity() uint64 {
	return rb.capacity
}

func (rb *xRingBuffer[T]) LoadEntryByCursor(cursor uint64) RingBufferEntry[T] {
	return &rb.entries[cursor&rb.capMask]
}
