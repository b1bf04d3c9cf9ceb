package gbn

import (
	"time"

	"github.com/pkg/errors"
)

// Defaults used when a Config field is left zero.
const (
	DefaultWindowSize        = 32
	DefaultMaxBodySize       = 1024
	DefaultRetransmitTimeout = 3 * time.Second
	DefaultPollInterval      = 10 * time.Millisecond
	DefaultMaxPeers          = 1024
	DefaultPeerLinger        = time.Minute
)

// Config holds the tunables of a link.
type Config struct {
	// WindowSize is N; at most N-1 packets are in flight.
	WindowSize uint32
	// MaxBodySize caps the body of a data packet, in bytes.
	MaxBodySize int
	// RetransmitTimeout is how long the oldest window may go unacknowledged
	// before all of it is sent again.
	RetransmitTimeout time.Duration
	// PollInterval bounds how late a retransmission timeout is noticed.
	PollInterval time.Duration
	// Loss, when non-nil, drops inbound packets before they are processed.
	Loss LossPolicy

	// MaxPeers bounds the number of live sockets behind a Listener.
	MaxPeers int
	// PeerLinger is how long a Listener ignores a peer after its socket closed.
	PeerLinger time.Duration
}

// DefaultConfig returns the reference configuration without loss.
func DefaultConfig() Config {
	return Config{
		WindowSize:        DefaultWindowSize,
		MaxBodySize:       DefaultMaxBodySize,
		RetransmitTimeout: DefaultRetransmitTimeout,
		PollInterval:      DefaultPollInterval,
		MaxPeers:          DefaultMaxPeers,
		PeerLinger:        DefaultPeerLinger,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.WindowSize == 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = def.MaxBodySize
	}
	if cfg.RetransmitTimeout == 0 {
		cfg.RetransmitTimeout = def.RetransmitTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxPeers == 0 {
		cfg.MaxPeers = def.MaxPeers
	}
	if cfg.PeerLinger == 0 {
		cfg.PeerLinger = def.PeerLinger
	}
	return cfg
}

// Validate checks the config after defaults have been filled in.
func (cfg Config) Validate() error {
	cfg = cfg.withDefaults()
	if cfg.WindowSize < 2 {
		return errors.Errorf("window size %v leaves no room in flight", cfg.WindowSize)
	}
	// router channels are sized from the window
	if cfg.WindowSize > 1<<16 {
		return errors.Errorf("window size %v too large", cfg.WindowSize)
	}
	if cfg.MaxBodySize < 0 {
		return errors.Errorf("negative max body size %v", cfg.MaxBodySize)
	}
	if cfg.RetransmitTimeout < 0 || cfg.PollInterval < 0 || cfg.PeerLinger < 0 {
		return errors.New("negative duration in config")
	}
	if cfg.MaxPeers < 0 {
		return errors.Errorf("negative max peers %v", cfg.MaxPeers)
	}
	return nil
}

// channelDepth sizes a router's packet channel. Per side at most N-1 data
// packets are outstanding, a tick retransmits at most that many again, and
// every data packet produces at most one ACK.
func (cfg Config) channelDepth() int {
	return 8 * int(cfg.WindowSize)
}
