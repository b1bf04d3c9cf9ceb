package gbn

// Stream is the application's view of one side of an Interface. Writes queue
// bytes for the peer, reads return bytes the peer wrote, in order and once.
type Stream struct {
	side Side
	conn *Connection
}

// Write queues p in full without blocking. It fails only after the link died.
func (s *Stream) Write(p []byte) (int, error) {
	return s.conn.Enqueue(p)
}

// Read blocks until the peer's bytes arrive. It returns 0 bytes only together
// with an error, once the link is gone.
func (s *Stream) Read(p []byte) (int, error) {
	return s.conn.Read(p)
}

// Side reports which end of the link this stream writes from.
func (s *Stream) Side() Side {
	return s.side
}

// Stats returns the counters of the underlying connection.
func (s *Stream) Stats() Stats {
	return s.conn.Stats()
}
