// Package gbn implements a Go-Back-N reliable byte stream over a lossy packet
// conduit.
//
// Each direction of a link is a Connection: a fixed sliding send window,
// cumulative acknowledgments and whole-window retransmission on timeout,
// with a receiver that only ever accepts the next expected sequence number.
// An Interface joins two Connections through an in-process channel, a Socket
// binds one Connection to a net.PacketConn.
package gbn

import (
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var doLogging = false

func init() {
	doLogging = os.Getenv("GBNLOG") != ""
}

// discards are expected on a lossy link; keep them from flooding the log
var spamLimiter = rate.NewLimiter(1, 10)

func logDiscard(format string, args ...interface{}) {
	if doLogging || spamLimiter.Allow() {
		log.Debugf(format, args...)
	}
}
