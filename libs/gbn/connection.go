package gbn

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrClosed is the death error of a connection closed without a cause.
var ErrClosed = errors.New("gbn: connection closed")

// Stats is a snapshot of a Connection's counters.
type Stats struct {
	DataSent      uint64 // first transmissions
	Retransmitted uint64
	Timeouts      uint64
	AcksSent      uint64
	AcksReceived  uint64
	PacketsAcked  uint64
	Delivered     uint64 // bytes appended to incoming
	Duplicates    uint64
	OutOfOrder    uint64
	Malformed     uint64

	Unsent   int
	Unacked  int
	Incoming int
}

// Connection is one direction of a Go-Back-N link. All of its state is
// guarded by one lock; every exported method is safe for concurrent use.
type Connection struct {
	cfg      Config
	transmit func([]byte) error

	lock sync.Mutex
	cvar *sync.Cond

	sw       sendWindow
	rs       recvSequencer
	unsent   bytes.Buffer
	incoming bytes.Buffer
	unacked  [][]byte // encoded, oldest first
	deadline time.Time
	deathErr error
	stats    Stats

	warnedOversize bool
}

// NewConnection creates a connection that hands every outgoing packet to
// transmit. transmit is called with the connection lock held and must not
// block on the connection itself; an error from it kills the connection.
func NewConnection(cfg Config, transmit func([]byte) error) *Connection {
	cfg = cfg.withDefaults()
	c := &Connection{
		cfg:      cfg,
		transmit: transmit,
		sw:       newSendWindow(initialSeqno, cfg.WindowSize),
		rs:       recvSequencer{expected: initialSeqno},
	}
	c.cvar = sync.NewCond(&c.lock)
	return c
}

// Enqueue appends b to the unsent buffer. It never blocks and never accepts
// part of b.
func (c *Connection) Enqueue(b []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.deathErr != nil {
		return 0, c.deathErr
	}
	c.unsent.Write(b)
	return len(b), nil
}

// ServiceSend packetizes unsent bytes for as long as the window allows.
func (c *Connection) ServiceSend() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.deathErr != nil {
		return c.deathErr
	}
	now := time.Now()
	for c.sw.sendable() && c.unsent.Len() > 0 {
		n := c.unsent.Len()
		if n > c.cfg.MaxBodySize {
			n = c.cfg.MaxBodySize
		}
		pkt := NewDataPacket(c.sw.nextSeqno(), c.unsent.Next(n))
		raw := pkt.Bytes()
		if doLogging {
			log.Debugln("gbn: sending", pkt.Header)
		}
		if err := c.xmit(raw); err != nil {
			return err
		}
		c.stats.DataSent++
		c.unacked = append(c.unacked, raw)
		c.deadline = now.Add(c.cfg.RetransmitTimeout)
	}
	return nil
}

// OnTick resends the whole outstanding window if the retransmission deadline
// has passed by now.
func (c *Connection) OnTick(now time.Time) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.deathErr != nil {
		return c.deathErr
	}
	if c.deadline.IsZero() || now.Before(c.deadline) {
		return nil
	}
	if len(c.unacked) == 0 {
		c.deadline = time.Time{}
		return nil
	}
	c.stats.Timeouts++
	if doLogging {
		log.Debugf("gbn: timeout, resending %v packets from %v", len(c.unacked), c.sw.base)
	}
	for _, raw := range c.unacked[:c.sw.outstanding()] {
		if err := c.xmit(raw); err != nil {
			return err
		}
		c.stats.Retransmitted++
	}
	c.deadline = now.Add(c.cfg.RetransmitTimeout)
	return nil
}

// OnPacket processes one raw packet from the peer. Undecodable input is
// dropped without error, like any other loss.
func (c *Connection) OnPacket(raw []byte) error {
	pkt, err := ParsePacket(raw)
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.deathErr != nil {
		return c.deathErr
	}
	if err != nil {
		c.stats.Malformed++
		logDiscard("gbn: dropping packet: %v", err)
		return nil
	}
	if int64(pkt.Header.BodyLen) > int64(c.cfg.MaxBodySize) {
		c.stats.Malformed++
		// usually the peer runs with a larger MaxBodySize
		if !c.warnedOversize {
			c.warnedOversize = true
			log.Warnf("gbn: %v carries %v bytes, over MaxBodySize %v", pkt.Header, pkt.Header.BodyLen, c.cfg.MaxBodySize)
		} else {
			logDiscard("gbn: dropping oversized %v", pkt.Header)
		}
		return nil
	}
	if pkt.IsAck() {
		c.onAck(pkt.Header.Seqno)
		return nil
	}
	switch verdict := c.rs.receive(pkt.Header.Seqno); verdict {
	case Fresh, Duplicate:
		if err := c.xmit(NewAckPacket(pkt.Header.Seqno).Bytes()); err != nil {
			return err
		}
		c.stats.AcksSent++
		if verdict == Duplicate {
			c.stats.Duplicates++
			return nil
		}
		c.incoming.Write(pkt.Body)
		c.stats.Delivered += uint64(len(pkt.Body))
		c.cvar.Broadcast()
	case NotYetReady:
		c.stats.OutOfOrder++
		logDiscard("gbn: %v ahead of expected %v", pkt.Header.Seqno, c.rs.expected)
	}
	return nil
}

func (c *Connection) onAck(sn uint32) {
	c.stats.AcksReceived++
	count := c.sw.acknowledge(sn)
	if count == 0 {
		return
	}
	c.stats.PacketsAcked += uint64(count)
	// shift down rather than reslice so acked packets can be collected
	rem := copy(c.unacked, c.unacked[count:])
	for i := rem; i < len(c.unacked); i++ {
		c.unacked[i] = nil
	}
	c.unacked = c.unacked[:rem]
	if rem == 0 {
		c.deadline = time.Time{}
	} else {
		c.deadline = time.Now().Add(c.cfg.RetransmitTimeout)
	}
}

// Read blocks until delivered bytes are available and drains up to len(p) of
// them. It returns (0, err) only once the connection is dead and drained,
// with io.EOF for a plain Close.
func (c *Connection) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	for c.incoming.Len() == 0 && c.deathErr == nil {
		c.cvar.Wait()
	}
	if c.incoming.Len() > 0 {
		return c.incoming.Read(p)
	}
	if c.deathErr == ErrClosed {
		return 0, io.EOF
	}
	return 0, c.deathErr
}

// Close kills the connection with err, or ErrClosed if err is nil, and wakes
// blocked readers. Only the first cause is kept.
func (c *Connection) Close(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.die(err)
}

// Err returns the death error, or nil while the connection is alive.
func (c *Connection) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.deathErr
}

// Stats returns a snapshot of the counters and buffer depths.
func (c *Connection) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()
	s := c.stats
	s.Unsent = c.unsent.Len()
	s.Unacked = len(c.unacked)
	s.Incoming = c.incoming.Len()
	return s
}

func (c *Connection) xmit(raw []byte) error {
	if err := c.transmit(raw); err != nil {
		c.die(err)
		return c.deathErr
	}
	return nil
}

func (c *Connection) die(err error) {
	if c.deathErr != nil {
		return
	}
	if err == nil {
		err = ErrClosed
	}
	c.deathErr = err
	c.cvar.Broadcast()
}
