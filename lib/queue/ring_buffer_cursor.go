package queue

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// rbCursor pads the sequence on both sides, the write cursor and the
// read cursor are hammered by different cores.
type rbCursor struct {
	_      [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
	cursor uint64
	_      [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
}

func NewXRingBufferCursor() RingBufferCursor {
	return &rbCursor{}
}

func (c *rbCursor) Next() uint64 {
	return atomic.AddUint64(&c.cursor, 1)
}

func (c *rbCursor) Load() uint64 {
	return atomic.LoadUint64(&c.cursor)
}

func (c *rbCursor) Store(cursor uint64) {
	atomic.StoreUint64(&c.cursor, cursor)
}

func (c *rbCursor) CompareAndSwap(old, new uint64) bool {
	return atomic.CompareAndSwapUint64(&c.cursor, old, new)
}
