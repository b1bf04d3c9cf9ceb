package gbn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeqLess(t *testing.T) {
	assert.True(t, seqLess(1, 2))
	assert.False(t, seqLess(2, 1))
	assert.False(t, seqLess(5, 5))
	assert.True(t, seqLess(math.MaxUint32, 0))
	assert.False(t, seqLess(0, math.MaxUint32))
	assert.True(t, seqLess(math.MaxUint32-10, 10))
}

func TestSendWindowLimit(t *testing.T) {
	sw := newSendWindow(initialSeqno, 32)
	sent := 0
	for sw.sendable() {
		require.EqualValues(t, initialSeqno+sent, sw.nextSeqno())
		sent++
	}
	assert.Equal(t, 31, sent)
	assert.Equal(t, 31, sw.outstanding())
}

func TestSendWindowInclusiveAck(t *testing.T) {
	sw := newSendWindow(initialSeqno, 32)
	for i := 0; i < 10; i++ {
		sw.nextSeqno()
	}
	// acknowledging base itself retires exactly one
	assert.Equal(t, 1, sw.acknowledge(1))
	assert.EqualValues(t, 2, sw.base)
	// cumulative
	assert.Equal(t, 4, sw.acknowledge(5))
	assert.EqualValues(t, 6, sw.base)
	assert.Equal(t, 5, sw.outstanding())
	// stale
	assert.Equal(t, 0, sw.acknowledge(3))
	assert.Equal(t, 0, sw.acknowledge(5))
	// never sent
	assert.Equal(t, 0, sw.acknowledge(11))
	assert.Equal(t, 5, sw.acknowledge(10))
	assert.Equal(t, 0, sw.outstanding())
	assert.True(t, sw.sendable())
}

func TestSendWindowWraparound(t *testing.T) {
	sw := newSendWindow(math.MaxUint32-2, 32)
	var seqs []uint32
	for sw.sendable() {
		seqs = append(seqs, sw.nextSeqno())
	}
	require.Len(t, seqs, 31)
	assert.EqualValues(t, math.MaxUint32, seqs[2])
	assert.EqualValues(t, 0, seqs[3])
	assert.EqualValues(t, 27, seqs[30])

	// 0xfffffffd ... 1 is five packets
	assert.Equal(t, 5, sw.acknowledge(1))
	assert.EqualValues(t, 2, sw.base)
	assert.Equal(t, 26, sw.outstanding())
	// a pre-wrap number is now behind base
	assert.Equal(t, 0, sw.acknowledge(math.MaxUint32))
	assert.True(t, sw.sendable())
}

func TestRecvSequencer(t *testing.T) {
	rs := recvSequencer{expected: initialSeqno}
	assert.Equal(t, NotYetReady, rs.receive(2))
	assert.EqualValues(t, 1, rs.expected)
	assert.Equal(t, Fresh, rs.receive(1))
	assert.Equal(t, Duplicate, rs.receive(1))
	assert.Equal(t, Fresh, rs.receive(2))
	assert.Equal(t, NotYetReady, rs.receive(100))
	assert.Equal(t, Duplicate, rs.receive(0))
	assert.EqualValues(t, 3, rs.expected)
}

func TestRecvSequencerWraparound(t *testing.T) {
	rs := recvSequencer{expected: math.MaxUint32}
	assert.Equal(t, NotYetReady, rs.receive(0))
	assert.Equal(t, Fresh, rs.receive(math.MaxUint32))
	assert.EqualValues(t, 0, rs.expected)
	assert.Equal(t, Duplicate, rs.receive(math.MaxUint32))
	assert.Equal(t, Fresh, rs.receive(0))
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "fresh", Fresh.String())
	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "not-yet-ready", NotYetReady.String())
}
