package gbn

// initialSeqno is where both directions start numbering.
const initialSeqno = 1

// seqLess reports whether a comes before b, treating sequence numbers as
// points on a 2^32 circle (RFC 1323): a is "old" relative to b when b is
// more than 2^31 ahead of it.
func seqLess(a, b uint32) bool {
	return a-b > 1<<31
}

// sendWindow tracks the sender's sliding window.
type sendWindow struct {
	base uint32 // oldest unacknowledged
	next uint32 // next to assign
	size uint32
}

func newSendWindow(base, size uint32) sendWindow {
	return sendWindow{base: base, next: base, size: size}
}

// sendable reports whether another packet may be put in flight. At most
// size-1 packets are ever outstanding.
func (sw *sendWindow) sendable() bool {
	return seqLess(sw.next, sw.base+sw.size-1)
}

// nextSeqno returns the next sequence number and advances past it.
func (sw *sendWindow) nextSeqno() uint32 {
	sn := sw.next
	sw.next++
	return sn
}

// acknowledge applies a cumulative ACK and returns how many packets it
// retires, counting the acknowledged packet itself.
func (sw *sendWindow) acknowledge(ack uint32) int {
	if seqLess(ack, sw.base) || !seqLess(ack, sw.next) {
		return 0
	}
	count := ack - sw.base + 1
	sw.base += count
	return int(count)
}

// outstanding is the number of sent but unacknowledged packets.
func (sw *sendWindow) outstanding() int {
	return int(sw.next - sw.base)
}

// Verdict classifies an incoming data sequence number.
type Verdict int

const (
	// Fresh is the next expected packet; deliver and acknowledge it.
	Fresh Verdict = iota
	// Duplicate was delivered before; acknowledge it again only.
	Duplicate
	// NotYetReady is ahead of the receiver; drop it silently.
	NotYetReady
)

func (v Verdict) String() string {
	switch v {
	case Fresh:
		return "fresh"
	case Duplicate:
		return "duplicate"
	case NotYetReady:
		return "not-yet-ready"
	}
	return "unknown"
}

// recvSequencer accepts strictly in-order sequence numbers.
type recvSequencer struct {
	expected uint32
}

func (rs *recvSequencer) receive(sn uint32) Verdict {
	switch {
	case sn == rs.expected:
		rs.expected++
		return Fresh
	case seqLess(sn, rs.expected):
		return Duplicate
	default:
		return NotYetReady
	}
}
