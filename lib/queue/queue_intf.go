package queue

import (
	"context"
	"errors"
)

var ErrQueueClosed = errors.New("[queue] closed")

// RingBufferCursor is a monotonic sequence shared by producers and
// the consumer. It occupies a whole cache line.
type RingBufferCursor interface {
	// Next increases the cursor by one and returns the new value.
	Next() uint64
	Load() uint64
	Store(cursor uint64)
	CompareAndSwap(old, new uint64) bool
}

// RingBufferEntry is a pre-allocated slot of the ring buffer.
// The cursor stamp is the last sequence published into the slot,
// 0 means the slot has never been published.
type RingBufferEntry[T any] interface {
	GetCursor() uint64
	GetValue() T
	// ValueRef exposes the slot for in-place writes. The caller must own
	// the slot, i.e. it claimed the cursor and has not published it yet.
	ValueRef() *T
	Store(cursor uint64, value T)
	// Publish stamps the slot and makes the value visible to the reader.
	Publish(cursor uint64)
}

type RingBuffer[T any] interface {
	Capacity() uint64
	LoadEntryByCursor(cursor uint64) RingBufferEntry[T]
}

// BlockingQueue is an unbounded FIFO. Offer never blocks on capacity,
// Take blocks until an element is available.
type BlockingQueue[E any] interface {
	Offer(e E) error
	Take(ctx context.Context) (E, error)
	Poll() (E, bool)
	Len() int64
	Close() error
	IsClosed() bool
}
