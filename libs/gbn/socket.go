package gbn

import (
	"net"
	"time"

	pool "github.com/libp2p/go-buffer-pool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/tomb.v1"
)

// Socket is one Go-Back-N connection carried over a net.PacketConn. The same
// Connection serves both directions of the byte stream: it sends data and
// ACKs to the remote and consumes the remote's data and ACKs.
type Socket struct {
	cfg    Config
	conn   *Connection
	wire   net.PacketConn
	remote net.Addr

	input    chan []byte // pool-managed
	chWakeUp chan struct{}
	death    tomb.Tomb

	ownsWire bool
	onClose  func()
}

// NewSocket binds a new connection to wire, talking to remote. Everything
// read from wire is treated as coming from remote. The socket owns wire and
// closes it on Close.
func NewSocket(wire net.PacketConn, remote net.Addr, cfg Config) (*Socket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sock := newSocket(wire, remote, cfg.withDefaults())
	sock.ownsWire = true
	go sock.readLoop()
	go sock.mainLoop()
	return sock, nil
}

// Dial opens a local packet socket on laddr and connects it to raddr.
func Dial(network, laddr, raddr string, cfg Config) (*Socket, error) {
	remote, err := net.ResolveUDPAddr(network, raddr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve remote")
	}
	wire, err := net.ListenPacket(network, laddr)
	if err != nil {
		return nil, errors.Wrap(err, "listen local")
	}
	sock, err := NewSocket(wire, remote, cfg)
	if err != nil {
		wire.Close()
		return nil, err
	}
	return sock, nil
}

func newSocket(wire net.PacketConn, remote net.Addr, cfg Config) *Socket {
	sock := &Socket{
		cfg:      cfg,
		wire:     wire,
		remote:   remote,
		input:    make(chan []byte, cfg.channelDepth()),
		chWakeUp: make(chan struct{}, 1),
	}
	sock.conn = NewConnection(cfg, func(raw []byte) error {
		_, err := wire.WriteTo(raw, remote)
		return errors.Wrap(err, "write to wire")
	})
	return sock
}

// maxDatagram fits any UDP payload, so a peer with a larger MaxBodySize is
// reported as oversized rather than silently truncated.
const maxDatagram = 65536

// readDatagram reads one datagram and returns it in a pool buffer of its own
// size.
func readDatagram(wire net.PacketConn, scratch []byte) ([]byte, net.Addr, error) {
	n, addr, err := wire.ReadFrom(scratch)
	if err != nil {
		return nil, nil, err
	}
	buf := pool.Get(n)
	copy(buf, scratch[:n])
	return buf, addr, nil
}

// readLoop only runs for sockets that own their wire.
func (sock *Socket) readLoop() {
	scratch := make([]byte, maxDatagram)
	for {
		buf, _, err := readDatagram(sock.wire, scratch)
		if err != nil {
			select {
			case <-sock.death.Dying():
			default:
				sock.death.Kill(errors.Wrap(err, "read from wire"))
			}
			return
		}
		select {
		case sock.input <- buf:
		case <-sock.death.Dying():
			pool.Put(buf)
			return
		}
	}
}

// offer hands a packet over without blocking; a full queue is just loss.
func (sock *Socket) offer(raw []byte) bool {
	select {
	case sock.input <- raw:
		return true
	default:
		return false
	}
}

func (sock *Socket) wakeup() {
	select {
	case sock.chWakeUp <- struct{}{}:
	default:
	}
}

func (sock *Socket) mainLoop() {
	defer sock.death.Done()
	defer func() {
		err := sock.death.Err()
		if err != nil && err != tomb.ErrStillAlive {
			log.Warnf("gbn: socket to %v died: %v", sock.remote, err)
		} else {
			err = nil
		}
		sock.conn.Close(err)
		if sock.ownsWire {
			sock.wire.Close()
		}
		if sock.onClose != nil {
			sock.onClose()
		}
	}()
	ticker := time.NewTicker(sock.cfg.PollInterval)
	defer ticker.Stop()
	for {
		var err error
		select {
		case raw := <-sock.input:
			if sock.cfg.Loss != nil && sock.cfg.Loss.Drop() {
				logDiscard("gbn: simulated loss of packet from %v", sock.remote)
				pool.Put(raw)
				continue
			}
			err = sock.conn.OnPacket(raw)
			pool.Put(raw)
			if err == nil {
				err = sock.conn.ServiceSend()
			}
		case <-sock.chWakeUp:
			err = sock.conn.ServiceSend()
		case now := <-ticker.C:
			err = sock.conn.OnTick(now)
			if err == nil {
				err = sock.conn.ServiceSend()
			}
		case <-sock.death.Dying():
			return
		}
		if err != nil {
			sock.death.Kill(err)
			return
		}
	}
}

// Write queues p for the remote without blocking.
func (sock *Socket) Write(p []byte) (int, error) {
	n, err := sock.conn.Enqueue(p)
	if err == nil {
		sock.wakeup()
	}
	return n, err
}

// Read blocks until the remote's bytes arrive.
func (sock *Socket) Read(p []byte) (int, error) {
	return sock.conn.Read(p)
}

// Close stops the socket. Bytes not yet acknowledged by the remote are lost.
func (sock *Socket) Close() error {
	sock.death.Kill(nil)
	<-sock.death.Dead()
	return nil
}

// Err returns the reason the socket died, or tomb.ErrStillAlive.
func (sock *Socket) Err() error {
	return sock.death.Err()
}

// Dead is closed once the socket has fully stopped.
func (sock *Socket) Dead() <-chan struct{} {
	return sock.death.Dead()
}

// LocalAddr is the wire's local address.
func (sock *Socket) LocalAddr() net.Addr {
	return sock.wire.LocalAddr()
}

// RemoteAddr is the peer's address.
func (sock *Socket) RemoteAddr() net.Addr {
	return sock.remote
}

// Stats returns the counters of the underlying connection.
func (sock *Socket) Stats() Stats {
	return sock.conn.Stats()
}
