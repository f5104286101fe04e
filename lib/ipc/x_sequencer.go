package ipc

import (
	"github.com/benz9527/xdispatch/lib/queue"
)

var _ Sequencer = (*xSequencer)(nil)

// xSequencer holds the two cursors of a disruptor.
// The write cursor is the last claimed sequence.
// The read cursor is the next sequence to consume.
// writeCursor - (readCursor - 1) never exceeds the capacity.
type xSequencer struct {
	writeCursor queue.RingBufferCursor
	readCursor  queue.RingBufferCursor
	capacity    uint64
}

func NewXSequencer(capacity uint64) Sequencer {
	return &xSequencer{
		capacity:    capacity,
		writeCursor: queue.NewXRingBufferCursor(),
		readCursor:  queue.NewXRingBufferCursor(),
	}
}

func (seq *xSequencer) Capacity() uint64 {
	return seq.capacity
}

func (seq *xSequencer) GetReadCursor() queue.RingBufferCursor {
	return seq.readCursor
}

func (seq *xSequencer) GetWriteCursor() queue.RingBufferCursor {
	return seq.writeCursor
}

// hasCapacity reports whether the sequence after the write cursor
// can be claimed without overwriting an unconsumed slot.
func hasCapacity(seq Sequencer) bool {
	next := seq.GetWriteCursor().Load() + 1
	return next-seq.GetReadCursor().Load() < seq.Capacity()
}

func backlog(seq Sequencer) uint64 {
	return seq.GetWriteCursor().Load() + 1 - seq.GetReadCursor().Load()
}
