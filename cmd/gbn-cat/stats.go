package main

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	statsd "github.com/etsy/statsd/examples/go"
	"github.com/geph-official/gbn/libs/gbn"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type stats struct {
	UpBytes   uint64
	DownBytes uint64
	Link      gbn.Stats

	lock sync.Mutex
}

var statsCollector = &stats{}

func useStats(f func(sc *stats)) {
	statsCollector.lock.Lock()
	defer statsCollector.lock.Unlock()
	f(statsCollector)
}

func listenStats(sock *gbn.Socket) {
	r := mux.NewRouter()
	r.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		handleStats(sock, w)
	}).Methods("GET")
	r.HandleFunc("/close", func(w http.ResponseWriter, r *http.Request) {
		log.Infoln("closing on request from", r.RemoteAddr)
		sock.Close()
		w.WriteHeader(http.StatusNoContent)
	}).Methods("POST")
	log.Infoln("stats on", statsAddr)
	if err := http.ListenAndServe(statsAddr, r); err != nil {
		log.Warnln("stats listener died:", err)
	}
}

func handleStats(sock *gbn.Socket, w http.ResponseWriter) {
	w.Header().Add("Access-Control-Allow-Origin", "*")
	var bts []byte
	useStats(func(sc *stats) {
		sc.Link = sock.Stats()
		var err error
		bts, err = json.Marshal(sc)
		if err != nil {
			panic(err)
		}
	})
	w.Header().Add("content-type", "application/json")
	w.Write(bts)
}

func reportStatsd(sock *gbn.Socket) {
	z, err := net.ResolveUDPAddr("udp", statsdAddr)
	if err != nil {
		log.Warnln("bad statsd address:", err)
		return
	}
	statClient := statsd.New(z.IP.String(), z.Port)
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	prefix := "gbn." + strings.Replace(hostname, ".", "_", -1)

	var last gbn.Stats
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-sock.Dead():
			statClient.Increment(prefix + ".died")
			return
		}
		st := sock.Stats()
		statClient.Timing(prefix+".unacked", int64(st.Unacked))
		statClient.Timing(prefix+".retransmitted", int64(st.Retransmitted-last.Retransmitted))
		statClient.Timing(prefix+".delivered", int64(st.Delivered-last.Delivered))
		if st.Timeouts > last.Timeouts {
			statClient.Increment(prefix + ".timeout")
		}
		last = st
	}
}
