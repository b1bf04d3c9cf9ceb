package gbn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func countDrops(lp LossPolicy, n int) (drops int) {
	for i := 0; i < n; i++ {
		if lp.Drop() {
			drops++
		}
	}
	return
}

func TestDropPatternCycles(t *testing.T) {
	lp := DropPattern(false, true, false)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, lp.Drop())
	}
	assert.Equal(t, []bool{false, true, false, false, true, false}, got)
	assert.False(t, DropPattern().Drop())
}

func TestSeededLossRepeatable(t *testing.T) {
	a := NewSeededLoss(0.2, 99)
	b := NewSeededLoss(0.2, 99)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, a.Drop(), b.Drop())
	}
}

func TestLossRates(t *testing.T) {
	const n = 20000
	assert.InDelta(t, 0.2*n, countDrops(NewSeededLoss(0.2, 1), n), 0.02*n)
	assert.InDelta(t, 0.2*n, countDrops(NewRandomLoss(0.2), n), 0.02*n)
	assert.Zero(t, countDrops(NewRandomLoss(0), 1000))
	assert.Equal(t, 1000, countDrops(NewSeededLoss(1, 5), 1000))
}

func TestLossFunc(t *testing.T) {
	calls := 0
	lp := LossFunc(func() bool { calls++; return calls%2 == 0 })
	assert.Equal(t, 5, countDrops(lp, 10))
}
