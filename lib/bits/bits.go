package bits

import (
	mbits "math/bits"
)

func IsPowOf2(n uint64) bool {
	return n > 0 && n&(n-1) == 0
}

// CeilPowOf2 returns the minimal exponent x that satisfies 2^x >= n.
func CeilPowOf2(n uint64) uint8 {
	if n <= 1 {
		return 0
	}
	return uint8(mbits.Len64(n - 1))
}

// RoundupPowOf2 spreads the highest set bit to all lower bits.
// Zero and values beyond 1<<63 wrap to zero.
func RoundupPowOf2(n uint64) uint64 {
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

func RoundupPowOf2ByLoop(n uint64) uint64 {
	r := uint64(1)
	for r < n && r != 0 {
		r <<= 1
	}
	return r
}

func RoundupPowOf2ByCeil(n uint64) uint64 {
	return 1 << CeilPowOf2(n)
}
