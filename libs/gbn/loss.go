package gbn

import (
	"math/rand"
	"sync"

	"github.com/geph-official/gbn/libs/erand"
)

// DefaultLossProbability drops roughly one packet in five, enough to keep the
// retransmission path busy in demos.
const DefaultLossProbability = 0.2

// LossPolicy decides whether the next inbound packet is thrown away. It only
// exists to exercise retransmission; production links leave it nil.
type LossPolicy interface {
	Drop() bool
}

// LossFunc adapts a function to LossPolicy.
type LossFunc func() bool

// Drop calls f.
func (f LossFunc) Drop() bool {
	return f()
}

type randomLoss struct {
	p float64
}

// NewRandomLoss drops each packet independently with probability p, using a
// cryptographically secure source.
func NewRandomLoss(p float64) LossPolicy {
	return randomLoss{p}
}

func (rl randomLoss) Drop() bool {
	return erand.Float64() < rl.p
}

type seededLoss struct {
	p   float64
	lk  sync.Mutex
	rng *rand.Rand
}

// NewSeededLoss drops with probability p from a seeded generator, so a run
// with the same seed and packet order drops the same packets.
func NewSeededLoss(p float64, seed int64) LossPolicy {
	return &seededLoss{p: p, rng: rand.New(rand.NewSource(seed))}
}

func (sl *seededLoss) Drop() bool {
	sl.lk.Lock()
	defer sl.lk.Unlock()
	return sl.rng.Float64() < sl.p
}

type dropPattern struct {
	lk      sync.Mutex
	pattern []bool
	idx     int
}

// DropPattern cycles through pattern, dropping wherever it is true.
func DropPattern(pattern ...bool) LossPolicy {
	return &dropPattern{pattern: pattern}
}

func (dp *dropPattern) Drop() bool {
	dp.lk.Lock()
	defer dp.lk.Unlock()
	if len(dp.pattern) == 0 {
		return false
	}
	drop := dp.pattern[dp.idx]
	dp.idx = (dp.idx + 1) % len(dp.pattern)
	return drop
}
