package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/geph-official/gbn/libs/erand"
	"github.com/geph-official/gbn/libs/gbn"
	"github.com/google/gops/agent"
	log "github.com/sirupsen/logrus"
	"github.com/vharitonsky/iniflags"
)

var lossRate float64
var pause time.Duration
var jitter time.Duration
var exitAfter time.Duration
var debugLog bool

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: false,
	})
	flag.Float64Var(&lossRate, "loss", gbn.DefaultLossProbability, "probability of dropping each packet in the link")
	flag.DurationVar(&pause, "pause", time.Second, "pause between the two greetings")
	flag.DurationVar(&jitter, "jitter", 0, "random extra pause, up to this long")
	flag.DurationVar(&exitAfter, "exitAfter", 0, "if nonzero, exit after this long")
	flag.BoolVar(&debugLog, "debug", false, "verbose logging")
	iniflags.Parse()
	if debugLog {
		log.SetLevel(log.DebugLevel)
	}
	if err := agent.Listen(agent.Options{}); err != nil {
		log.Warnln("gops agent not started:", err)
	}

	cfg := gbn.DefaultConfig()
	cfg.Loss = gbn.NewRandomLoss(lossRate)
	ifc, err := gbn.NewInterface(cfg)
	if err != nil {
		log.Fatal("cannot create interface:", err)
	}
	defer ifc.Close()

	go func() {
		left := ifc.Stream(gbn.Left)
		left.Write([]byte("Hello World"))
		time.Sleep(pauseWithJitter())
		left.Write([]byte("Hello again"))
	}()
	go func() {
		right := ifc.Stream(gbn.Right)
		buf := make([]byte, 64)
		for {
			n, err := right.Read(buf)
			if err != nil {
				log.Debugln("reader done:", err)
				return
			}
			fmt.Println(string(buf[:n]))
		}
	}()

	if exitAfter > 0 {
		select {
		case <-ifc.Dead():
		case <-time.After(exitAfter):
			st := ifc.Connection(gbn.Left).Stats()
			log.Debugf("left sent %v packets, %v retransmitted", st.DataSent, st.Retransmitted)
			return
		}
	} else {
		<-ifc.Dead()
	}
	if err := ifc.Err(); err != nil {
		log.Fatal("interface died:", err)
	}
}

func pauseWithJitter() time.Duration {
	if jitter <= 0 {
		return pause
	}
	return pause + time.Duration(erand.Intn(int(jitter/time.Millisecond)+1))*time.Millisecond
}
