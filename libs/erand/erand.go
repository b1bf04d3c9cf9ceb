// Package erand provides cryptographically secure random numbers for loss
// injection, where a predictable source would make drops correlate with
// traffic patterns.
package erand

import (
	"crypto/rand"
	"encoding/binary"
	"math"
)

func uint64n() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return binary.BigEndian.Uint64(buf[:])
}

// Intn returns a uniform random number in [0, n). It panics if n <= 0.
func Intn(n int) int {
	if n <= 0 {
		panic("erand: Intn of non-positive bound")
	}
	bound := uint64(n)
	// reject the tail that would bias the modulo
	limit := math.MaxUint64 - math.MaxUint64%bound
	for {
		if v := uint64n(); v < limit {
			return int(v % bound)
		}
	}
}

// Float64 returns a random number in [0, 1).
func Float64() float64 {
	// 53 bits of mantissa
	return float64(uint64n()>>11) / (1 << 53)
}
