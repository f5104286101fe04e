package id

import (
	"strconv"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// monotonicNonZeroID is an ID generator.
// Only increase, if it overflows, it will be reset to 1.
// The value occupies a whole cache line to avoid false sharing with
// the neighbours, every request goroutine hits it.
type monotonicNonZeroID struct {
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
	val atomic.Uint64
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
}

func (id *monotonicNonZeroID) next() uint64 {
	var v uint64
	if v = id.val.Add(1); v == 0 {
		v = id.val.Add(1)
	}
	return v
}

func MonotonicNonZeroID() (Generator, error) {
	src := &monotonicNonZeroID{}
	id := new(defaultID)
	id.number = src.next
	id.str = func() string {
		return strconv.FormatUint(src.next(), 10)
	}
	return id, nil
}
