package gbn

import (
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru"
	pool "github.com/libp2p/go-buffer-pool"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/tomb.v1"
)

// ErrEvicted kills a socket pushed out of a full Listener peer table.
var ErrEvicted = errors.New("gbn: evicted from listener")

const acceptBacklog = 16

// Listener accepts one Socket per remote address on a shared PacketConn.
type Listener struct {
	cfg      Config
	wire     net.PacketConn
	peers    *lru.Cache   // addr => *Socket
	closed   *cache.Cache // addr => struct{}, peers that must not reconnect yet
	accepted chan *Socket
	death    tomb.Tomb
}

// Listen serves Go-Back-N sockets on wire. The listener owns wire.
func Listen(wire net.PacketConn, cfg Config) (*Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	peers, err := lru.NewWithEvict(cfg.MaxPeers, func(k, v interface{}) {
		sock := v.(*Socket)
		select {
		case <-sock.death.Dying():
		default:
			sock.death.Kill(ErrEvicted)
		}
	})
	if err != nil {
		return nil, err
	}
	l := &Listener{
		cfg:      cfg,
		wire:     wire,
		peers:    peers,
		closed:   cache.New(cfg.PeerLinger, time.Minute),
		accepted: make(chan *Socket, acceptBacklog),
	}
	go l.readLoop()
	return l, nil
}

// ListenAddr opens a packet socket on addr and listens on it.
func ListenAddr(network, addr string, cfg Config) (*Listener, error) {
	wire, err := net.ListenPacket(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}
	l, err := Listen(wire, cfg)
	if err != nil {
		wire.Close()
		return nil, err
	}
	return l, nil
}

func (l *Listener) readLoop() {
	defer l.death.Done()
	defer l.peers.Purge()
	scratch := make([]byte, maxDatagram)
	for {
		buf, addr, err := readDatagram(l.wire, scratch)
		if err != nil {
			select {
			case <-l.death.Dying():
			default:
				l.death.Kill(errors.Wrap(err, "read from wire"))
			}
			return
		}
		sock := l.lookup(addr)
		if sock == nil || !sock.offer(buf) {
			pool.Put(buf)
		}
	}
}

// lookup finds or creates the socket for addr; nil means drop the packet.
func (l *Listener) lookup(addr net.Addr) *Socket {
	key := addr.String()
	if v, ok := l.peers.Get(key); ok {
		return v.(*Socket)
	}
	if _, ok := l.closed.Get(key); ok {
		logDiscard("gbn: ignoring recently closed peer %v", key)
		return nil
	}
	sock := newSocket(l.wire, addr, l.cfg)
	sock.onClose = func() { l.forget(key, sock) }
	select {
	case l.accepted <- sock:
	default:
		logDiscard("gbn: accept backlog full, ignoring %v", key)
		return nil
	}
	if doLogging {
		log.Debugln("gbn: new peer", key)
	}
	l.peers.Add(key, sock)
	go sock.mainLoop()
	return sock
}

func (l *Listener) forget(key string, sock *Socket) {
	l.closed.SetDefault(key, struct{}{})
	if v, ok := l.peers.Peek(key); ok && v.(*Socket) == sock {
		l.peers.Remove(key)
	}
}

// Accept waits for a socket from a new peer.
func (l *Listener) Accept() (*Socket, error) {
	select {
	case sock := <-l.accepted:
		return sock, nil
	case <-l.death.Dying():
		return nil, ErrClosed
	}
}

// Close stops accepting, closes the wire and kills every peer socket.
func (l *Listener) Close() error {
	l.death.Kill(nil)
	err := l.wire.Close()
	l.death.Wait()
	return err
}

// Addr is the wire's local address.
func (l *Listener) Addr() net.Addr {
	return l.wire.LocalAddr()
}

// Peers is the number of live sockets.
func (l *Listener) Peers() int {
	return l.peers.Len()
}
