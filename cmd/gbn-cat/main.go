package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/geph-official/gbn/libs/cwl"
	"github.com/geph-official/gbn/libs/gbn"
	"github.com/google/gops/agent"
	log "github.com/sirupsen/logrus"
	"github.com/vharitonsky/iniflags"
	"golang.org/x/time/rate"
)

var listenAddr string
var connectAddr string
var lossRate float64
var rateLimit int
var rto time.Duration
var statsdAddr string
var statsAddr string
var debugLog bool

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: false,
	})
	log.SetOutput(os.Stderr)
	flag.StringVar(&listenAddr, "listen", "", "listen for one peer on this UDP address")
	flag.StringVar(&connectAddr, "connect", "", "connect to a peer at this UDP address")
	flag.Float64Var(&lossRate, "loss", 0, "probability of dropping each inbound packet, for testing")
	flag.IntVar(&rateLimit, "rateLimit", 0, "cap on stdin consumption in KiB/s, 0 for none")
	flag.DurationVar(&rto, "rto", gbn.DefaultRetransmitTimeout, "retransmission timeout")
	flag.StringVar(&statsdAddr, "statsdAddr", "", "address of StatsD for gathering statistics")
	flag.StringVar(&statsAddr, "statsAddr", "", "HTTP listener for statistics")
	flag.BoolVar(&debugLog, "debug", false, "verbose logging")
	iniflags.Parse()
	if debugLog {
		log.SetLevel(log.DebugLevel)
	}
	if (listenAddr == "") == (connectAddr == "") {
		log.Fatal("must give exactly one of -listen or -connect")
	}
	if err := agent.Listen(agent.Options{}); err != nil {
		log.Warnln("gops agent not started:", err)
	}

	cfg := gbn.DefaultConfig()
	cfg.RetransmitTimeout = rto
	if lossRate > 0 {
		cfg.Loss = gbn.NewRandomLoss(lossRate)
	}
	sock, err := openSocket(cfg)
	if err != nil {
		log.Fatal("cannot open socket:", err)
	}
	defer sock.Close()
	log.Infof("linked %v <=> %v", sock.LocalAddr(), sock.RemoteAddr())

	if statsdAddr != "" {
		go reportStatsd(sock)
	}
	if statsAddr != "" {
		go listenStats(sock)
	}

	go pumpStdin(sock)
	_, err = io.Copy(os.Stdout, countingReader{sock})
	if err != nil {
		log.Fatal("link died:", err)
	}
}

func openSocket(cfg gbn.Config) (*gbn.Socket, error) {
	if connectAddr != "" {
		return gbn.Dial("udp", ":0", connectAddr, cfg)
	}
	l, err := gbn.ListenAddr("udp", listenAddr, cfg)
	if err != nil {
		return nil, err
	}
	log.Infoln("waiting for a peer on", l.Addr())
	return l.Accept()
}

func pumpStdin(sock *gbn.Socket) {
	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit*1024), 32*1024)
	}
	n, err := cwl.CopyWithLimit(context.Background(), sock, os.Stdin, limiter, func(n int) {
		useStats(func(sc *stats) {
			sc.UpBytes += uint64(n)
		})
	})
	if err != nil {
		log.Warnln("stdin copy stopped:", err)
		return
	}
	log.Debugf("stdin done after %v bytes", n)
}

type countingReader struct {
	r io.Reader
}

func (cr countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		useStats(func(sc *stats) {
			sc.DownBytes += uint64(n)
		})
	}
	return n, err
}
