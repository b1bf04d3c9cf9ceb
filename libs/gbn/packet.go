package gbn

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// HeaderSize is the encoded size of a Header.
const HeaderSize = 4 + 2 + 4

const (
	flagAck      uint16 = 1 << 0
	reservedMask        = ^flagAck
)

// ErrMalformed is returned by ParsePacket for frames that cannot be decoded.
var ErrMalformed = errors.New("malformed packet")

// Header is the fixed big-endian header in front of every packet.
type Header struct {
	Seqno   uint32
	Flags   uint16
	BodyLen uint32
}

// IsAck reports whether the ACK flag is set.
func (h Header) IsAck() bool {
	return h.Flags&flagAck != 0
}

func (h Header) String() string {
	kind := "Normal"
	if h.IsAck() {
		kind = "Ack"
	}
	return fmt.Sprintf("Packet[%v] %v %v", h.Seqno, kind, h.BodyLen)
}

// Packet is a header plus its body. Packets are never mutated after
// construction.
type Packet struct {
	Header Header
	Body   []byte
}

// NewDataPacket builds a data packet carrying a copy of body.
func NewDataPacket(seqno uint32, body []byte) Packet {
	b := make([]byte, len(body))
	copy(b, body)
	return Packet{
		Header: Header{Seqno: seqno, BodyLen: uint32(len(b))},
		Body:   b,
	}
}

// NewAckPacket builds an acknowledgment for seqno.
func NewAckPacket(seqno uint32) Packet {
	return Packet{Header: Header{Seqno: seqno, Flags: flagAck}}
}

// IsAck reports whether the packet is an acknowledgment.
func (p Packet) IsAck() bool {
	return p.Header.IsAck()
}

// Bytes encodes the packet into a freshly allocated buffer.
func (p Packet) Bytes() []byte {
	raw := make([]byte, HeaderSize+len(p.Body))
	binary.BigEndian.PutUint32(raw[0:4], p.Header.Seqno)
	binary.BigEndian.PutUint16(raw[4:6], p.Header.Flags)
	binary.BigEndian.PutUint32(raw[6:10], p.Header.BodyLen)
	copy(raw[HeaderSize:], p.Body)
	return raw
}

// ParsePacket decodes raw. The returned body aliases raw; bytes past BodyLen
// are ignored.
func ParsePacket(raw []byte) (Packet, error) {
	if len(raw) < HeaderSize {
		return Packet{}, errors.Wrapf(ErrMalformed, "%v bytes, header needs %v", len(raw), HeaderSize)
	}
	var p Packet
	p.Header.Seqno = binary.BigEndian.Uint32(raw[0:4])
	p.Header.Flags = binary.BigEndian.Uint16(raw[4:6])
	p.Header.BodyLen = binary.BigEndian.Uint32(raw[6:10])
	if p.Header.Flags&reservedMask != 0 {
		return Packet{}, errors.Wrapf(ErrMalformed, "reserved flags %#04x", p.Header.Flags)
	}
	if p.IsAck() && p.Header.BodyLen != 0 {
		return Packet{}, errors.Wrap(ErrMalformed, "ack with body")
	}
	body := raw[HeaderSize:]
	if uint64(len(body)) < uint64(p.Header.BodyLen) {
		return Packet{}, errors.Wrapf(ErrMalformed, "body has %v of %v bytes", len(body), p.Header.BodyLen)
	}
	p.Body = body[:p.Header.BodyLen]
	return p, nil
}
