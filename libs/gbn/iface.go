package gbn

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/tomb.v1"
)

// ErrChannelFull means the router channel could not take another packet.
var ErrChannelFull = errors.New("gbn: router channel full")

// Side names one end of an Interface.
type Side int

const (
	// Left is conventionally the initiating side.
	Left Side = iota
	// Right is the other side.
	Right
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	return 1 - s
}

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

type taggedPacket struct {
	from Side
	raw  []byte
}

// Interface is an in-process bidirectional link: two Connections whose
// packets travel through one shared channel and a routing goroutine.
type Interface struct {
	cfg     Config
	conns   [2]*Connection
	inbound chan taggedPacket
	death   tomb.Tomb
}

// NewInterface builds both Connections and starts the router.
func NewInterface(cfg Config) (*Interface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	ifc := &Interface{
		cfg:     cfg,
		inbound: make(chan taggedPacket, cfg.channelDepth()),
	}
	for _, side := range []Side{Left, Right} {
		ifc.conns[side] = NewConnection(cfg, ifc.sender(side))
	}
	go ifc.routeLoop()
	return ifc, nil
}

// sender tags packets from one side. It runs under that side's lock, often
// on the router goroutine itself, so it must never block.
func (ifc *Interface) sender(from Side) func([]byte) error {
	return func(raw []byte) error {
		select {
		case ifc.inbound <- taggedPacket{from, raw}:
			return nil
		default:
			return errors.WithStack(ErrChannelFull)
		}
	}
}

// Stream returns the application handle for one side.
func (ifc *Interface) Stream(side Side) *Stream {
	return &Stream{side: side, conn: ifc.conns[side]}
}

// Connection exposes the raw Connection of one side.
func (ifc *Interface) Connection(side Side) *Connection {
	return ifc.conns[side]
}

// Close stops the router and closes both sides.
func (ifc *Interface) Close() error {
	ifc.death.Kill(nil)
	ifc.death.Wait()
	return nil
}

// Dead is closed once the router has stopped.
func (ifc *Interface) Dead() <-chan struct{} {
	return ifc.death.Dead()
}

// Err returns why the router stopped, or tomb.ErrStillAlive.
func (ifc *Interface) Err() error {
	return ifc.death.Err()
}

func (ifc *Interface) routeLoop() {
	defer ifc.death.Done()
	defer func() {
		err := ifc.death.Err()
		if err == tomb.ErrStillAlive {
			err = nil
		}
		for _, c := range ifc.conns {
			c.Close(err)
		}
	}()
	ticker := time.NewTicker(ifc.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case tp := <-ifc.inbound:
			if ifc.cfg.Loss != nil && ifc.cfg.Loss.Drop() {
				logDiscard("gbn: simulated loss of packet from %v", tp.from)
				continue
			}
			dest := ifc.conns[tp.from.Opposite()]
			if err := dest.OnPacket(tp.raw); err != nil {
				ifc.fail(err)
				return
			}
			// an ACK may have opened the window
			if err := dest.ServiceSend(); err != nil {
				ifc.fail(err)
				return
			}
		case now := <-ticker.C:
			for _, c := range ifc.conns {
				if err := c.OnTick(now); err != nil {
					ifc.fail(err)
					return
				}
				if err := c.ServiceSend(); err != nil {
					ifc.fail(err)
					return
				}
			}
		case <-ifc.death.Dying():
			return
		}
	}
}

func (ifc *Interface) fail(err error) {
	log.Warnln("gbn: interface router died:", err)
	ifc.death.Kill(err)
}
