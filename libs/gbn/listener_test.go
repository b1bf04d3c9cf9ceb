package gbn

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerDemultiplexesPeers(t *testing.T) {
	l, err := ListenAddr("udp", "127.0.0.1:0", losslessConfig())
	require.NoError(t, err)
	defer l.Close()

	clients := make([]*Socket, 3)
	for i := range clients {
		clients[i], err = Dial("udp", "127.0.0.1:0", l.Addr().String(), losslessConfig())
		require.NoError(t, err)
		defer clients[i].Close()
		clients[i].Write([]byte(fmt.Sprintf("hello from %v", i)))
	}

	byAddr := make(map[string]*Socket)
	for range clients {
		sock, err := l.Accept()
		require.NoError(t, err)
		byAddr[sock.RemoteAddr().String()] = sock
	}
	require.Len(t, byAddr, len(clients))
	assert.Equal(t, len(clients), l.Peers())

	for i, c := range clients {
		sock := byAddr[c.LocalAddr().String()]
		require.NotNil(t, sock)
		msg := fmt.Sprintf("hello from %v", i)
		assert.Equal(t, msg, string(readWithin(t, sock, len(msg), 10*time.Second)))

		reply := fmt.Sprintf("hi %v", i)
		sock.Write([]byte(reply))
		assert.Equal(t, reply, string(readWithin(t, c, len(reply), 10*time.Second)))
	}
}

func TestListenerForgetsClosedPeer(t *testing.T) {
	l, err := ListenAddr("udp", "127.0.0.1:0", losslessConfig())
	require.NoError(t, err)
	defer l.Close()

	client, err := Dial("udp", "127.0.0.1:0", l.Addr().String(), losslessConfig())
	require.NoError(t, err)
	defer client.Close()
	client.Write([]byte("x"))

	sock, err := l.Accept()
	require.NoError(t, err)
	readWithin(t, sock, 1, 10*time.Second)
	require.NoError(t, sock.Close())
	require.Eventually(t, func() bool { return l.Peers() == 0 }, 5*time.Second, 10*time.Millisecond)

	// the same peer keeps talking but is not accepted again while lingering
	client.Write([]byte("y"))
	time.Sleep(50 * time.Millisecond)
	select {
	case <-l.accepted:
		t.Fatal("closed peer was accepted again")
	default:
	}
}

func TestListenerEvictsOldestPeer(t *testing.T) {
	cfg := losslessConfig()
	cfg.MaxPeers = 1
	l, err := ListenAddr("udp", "127.0.0.1:0", cfg)
	require.NoError(t, err)
	defer l.Close()

	first, err := Dial("udp", "127.0.0.1:0", l.Addr().String(), cfg)
	require.NoError(t, err)
	defer first.Close()
	first.Write([]byte("1"))
	s1, err := l.Accept()
	require.NoError(t, err)

	second, err := Dial("udp", "127.0.0.1:0", l.Addr().String(), cfg)
	require.NoError(t, err)
	defer second.Close()
	second.Write([]byte("2"))
	s2, err := l.Accept()
	require.NoError(t, err)

	select {
	case <-s1.Dead():
	case <-time.After(5 * time.Second):
		t.Fatal("oldest peer not evicted")
	}
	assert.Equal(t, ErrEvicted, s1.Err())
	assert.Equal(t, "2", string(readWithin(t, s2, 1, 10*time.Second)))
}

func TestListenerClose(t *testing.T) {
	l, err := ListenAddr("udp", "127.0.0.1:0", losslessConfig())
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		_, err := l.Accept()
		done <- err
	}()
	require.NoError(t, l.Close())
	select {
	case err := <-done:
		assert.Equal(t, ErrClosed, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Accept not released by Close")
	}
}
