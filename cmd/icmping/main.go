// Copyright 2025 icmping Author. All Rights Reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//      http://www.apache.org/licenses/LICENSE-2.0
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-the-way/icmping"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const appName = "icmping"

var log = icmping.GetLog()

type options struct {
	ttl         uint
	timeout     time.Duration
	interval    time.Duration
	count       int
	trace       bool
	maxHops     uint
	metricsAddr string
	wsAddr      string
	debug       bool
}

func main() {
	os.Exit(run())
}

func run() int {
	var opt options
	flag.UintVar(&opt.ttl, "ttl", 64, "Set TTL")
	flag.DurationVar(&opt.timeout, "timeout", time.Second, "How long to wait for each reply")
	flag.DurationVar(&opt.interval, "interval", time.Second, "Delay between echo requests")
	flag.IntVar(&opt.count, "count", 0, "Stop after count echo requests, 0 runs until interrupted")
	flag.BoolVar(&opt.trace, "trace", false, "Trace the route to the host instead of pinging it")
	flag.UintVar(&opt.maxHops, "max-hops", 30, "Largest TTL probed in trace mode")
	flag.StringVar(&opt.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address, e.g. :9115")
	flag.StringVar(&opt.wsAddr, "ws", "", "Serve a websocket feed of replies on this address, e.g. :8080")
	flag.BoolVar(&opt.debug, "debug", false, "Enable debug logs")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] host\n", appName)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}
	if opt.ttl < 1 || opt.ttl > 255 || opt.maxHops < 1 || opt.maxHops > 255 {
		fmt.Fprintln(os.Stderr, "ttl and max-hops must be between 1 and 255")
		return 2
	}
	if opt.timeout <= 0 {
		fmt.Fprintln(os.Stderr, "timeout must be positive")
		return 2
	}
	if opt.debug {
		icmping.SetLogLevelDebug()
	}

	host := flag.Arg(0)
	dst, err := resolve(host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error looking up hostname IP: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var f *feed
	if opt.wsAddr != "" {
		f = newFeed()
		defer f.close()
		mux := http.NewServeMux()
		mux.Handle("/ws", f)
		serve(ctx, opt.wsAddr, mux)
	}

	if opt.trace {
		return runTrace(ctx, &opt, host, dst, f)
	}
	return runPing(ctx, &opt, host, dst, f)
}

func runPing(ctx context.Context, opt *options, host string, dst netip.Addr, f *feed) int {
	pinger, err := icmping.NewPinger(uint8(opt.ttl), opt.timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up socket for pinging: %v\n", err)
		return 1
	}
	defer pinger.Close()

	s := icmping.NewSession(pinger, dst, opt.count)
	s.Interval(opt.interval)
	s.Timeout(opt.timeout)

	if opt.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := icmping.NewMetrics(reg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error registering metrics: %v\n", err)
			return 1
		}
		s.Metrics(m)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		serve(ctx, opt.metricsAddr, mux)
	}

	s.ReplyHandler(func(r *icmping.Reply) {
		fmt.Println(describeReply(r, dst))
		f.publish(replyEvent(r))
	})

	fmt.Printf("PINGING %s (%s)\n", host, dst)
	err = s.Run(ctx)
	printSummary(os.Stdout, host, s.Stats())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging %s: %v\n", host, err)
		return 1
	}
	return 0
}

func runTrace(ctx context.Context, opt *options, host string, dst netip.Addr, f *feed) int {
	tr := icmping.NewTraceroute(dst, uint8(opt.maxHops))
	tr.Timeout(opt.timeout)

	var hops []*icmping.Hop
	tr.HopHandler(func(hop *icmping.Hop) {
		hops = append(hops, hop)
		fmt.Println(describeHop(hop))
		f.publish(hopEvent(hop))
	})

	fmt.Printf("TRACEROUTE %s (%s), %d hops max\n", host, dst, opt.maxHops)
	err := tr.Run(ctx)
	printHops(os.Stdout, hops)
	if err != nil {
		var setupErr *icmping.SetupError
		if errors.As(err, &setupErr) {
			fmt.Fprintf(os.Stderr, "Error setting up socket for pinging: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error tracing %s: %v\n", host, err)
		}
		return 1
	}
	return 0
}

func resolve(host string) (netip.Addr, error) {
	ip, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return netip.Addr{}, err
	}
	addr, ok := netip.AddrFromSlice(ip.IP)
	if !ok {
		return netip.Addr{}, fmt.Errorf("no ip address found for %s", host)
	}
	return addr.Unmap(), nil
}

func describeReply(r *icmping.Reply, dst netip.Addr) string {
	if r.Result == nil {
		return fmt.Sprintf("Request timeout for icmp_seq=%d", r.Seq)
	}
	switch r.Result.Response.(type) {
	case icmping.EchoReply:
		return fmt.Sprintf("%d bytes from %s: icmp_seq=%d ttl=%d time=%.3f ms",
			r.Result.Len, dst, r.Seq, r.Result.TTL, millis(r.RTT))
	case icmping.TTLExceeded:
		return fmt.Sprintf("From %s icmp_seq=%d: got response, but was a TTL exceeded one", r.Result.From, r.Seq)
	case icmping.FragmentReassemblyTimeExceeded:
		return fmt.Sprintf("From %s icmp_seq=%d: got response, but was a fragment reassembly time exceeded one", r.Result.From, r.Seq)
	case icmping.InvalidChecksum:
		return fmt.Sprintf("From %s icmp_seq=%d: got response, but the checksum was not valid", r.Result.From, r.Seq)
	}
	return fmt.Sprintf("From %s icmp_seq=%d: got response, but was an unknown packet type", r.Result.From, r.Seq)
}

func describeHop(h *icmping.Hop) string {
	if h.Lost() {
		return fmt.Sprintf("%2d  *", h.TTL)
	}
	return fmt.Sprintf("%2d  %-15s  %.3f ms  %s", h.TTL, h.From, millis(h.RTT), icmping.Outcome(h.Response))
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// serve runs an HTTP server on addr until ctx is done.
func serve(ctx context.Context, addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Debugf("%s: listening on %s", appName, addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("%s: %v", appName, err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}
