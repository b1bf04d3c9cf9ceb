package erand

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntnCoversRange(t *testing.T) {
	seen := make(map[int]int)
	for i := 0; i < 5000; i++ {
		v := Intn(5)
		require.True(t, v >= 0 && v < 5, "got %v", v)
		seen[v]++
	}
	require.Len(t, seen, 5)
	for v, n := range seen {
		require.InDelta(t, 1000, n, 200, "value %v", v)
	}
	require.Zero(t, Intn(1))
}

func TestIntnRejectsBadBound(t *testing.T) {
	require.Panics(t, func() { Intn(0) })
	require.Panics(t, func() { Intn(-3) })
}

func TestFloat64Range(t *testing.T) {
	var sum float64
	for i := 0; i < 10000; i++ {
		v := Float64()
		require.True(t, v >= 0 && v < 1, "got %v", v)
		sum += v
	}
	mean := sum / 10000
	require.InDelta(t, 0.5, mean, 0.05)
}

func BenchmarkFloat64(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Float64()
	}
}

func BenchmarkIntn(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Intn(1000)
	}
}
