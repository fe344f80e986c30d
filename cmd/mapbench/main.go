// Copyright (c) 2024 The omnimap authors.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Command mapbench is a load generator and correctness smoke test for
// omnimap.Map. It fills a map with a synthetic workload, exercises a
// simulated single-owner handoff pattern across goroutines, and exposes the
// map's two introspection operations (CurrentLoad, MemoryUsage) over HTTP
// for scraping while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"

	"github.com/aristanetworks/glog"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/rand"

	"github.com/geo-mak/omnimap"
	"github.com/geo-mak/omnimap/keyhash"
	"github.com/geo-mak/omnimap/monitor"
	"github.com/geo-mak/omnimap/sync/semaphore"
)

// config holds the flags for a single mapbench run, following the flag-onto-
// struct convention this corpus uses for its CLI entrypoints.
type config struct {
	addr          string
	keys          int
	seed          uint64
	faultRate     float64
	warmupRetries int
	handoffs      int
	handoffWeight int64
}

func parseFlags() *config {
	cfg := &config{}
	flag.StringVar(&cfg.addr, "addr", ":8080", "address to serve /debug and /metrics on")
	flag.IntVar(&cfg.keys, "keys", 10000, "number of synthetic keys to insert during warm-up")
	flag.Uint64Var(&cfg.seed, "seed", 1, "seed for the synthetic key/value workload")
	flag.Float64Var(&cfg.faultRate, "fault-rate", 0.0,
		"probability in [0,1) that a warm-up insert batch reports a transient failure")
	flag.IntVar(&cfg.warmupRetries, "warmup-max-retries", 10,
		"maximum backoff retries per warm-up batch before giving up")
	flag.IntVar(&cfg.handoffs, "handoffs", 100, "number of simulated ownership hand-offs to run")
	flag.Int64Var(&cfg.handoffWeight, "handoff-weight", 1,
		"semaphore weight a single hand-off holds while it owns the map")
	flag.Parse()
	return cfg
}

var (
	currentLoadGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "omnimap_current_load",
		Help: "Map.CurrentLoad(): (length+deleted)/capacity of the benchmarked map.",
	})
	memoryUsageGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "omnimap_memory_usage_bytes",
		Help: "Map.MemoryUsage(): allocated bytes of the benchmarked map's buffers.",
	})
)

func init() {
	prometheus.MustRegister(currentLoadGauge, memoryUsageGauge)
}

func main() {
	cfg := parseFlags()

	http.Handle("/metrics", promhttp.Handler())
	srv := monitor.NewMonitorServer(cfg.addr)
	go srv.Run()
	glog.Infof("mapbench: serving /debug and /metrics on %s", cfg.addr)

	hasher := keyhash.NewHasher()
	m := omnimap.NewComparable[string, string](hasher.String())

	if err := warmUp(m, cfg); err != nil {
		glog.Fatalf("mapbench: warm-up failed: %s", err)
	}
	glog.Infof("mapbench: warm-up complete, %d entries, load %.3f", m.Len(), m.CurrentLoad())

	reportUsage(m)

	if err := runHandoffs(m, cfg); err != nil {
		glog.Fatalf("mapbench: handoff simulation failed: %s", err)
	}
	glog.Infof("mapbench: handoff simulation complete, %d entries", m.Len())

	reportUsage(m)
	fmt.Printf("final: len=%d cap=%d load=%.3f memory=%d bytes\n",
		m.Len(), m.Cap(), m.CurrentLoad(), m.MemoryUsage())
}

func reportUsage(m *omnimap.Map[string, string]) {
	currentLoadGauge.Set(m.CurrentLoad())
	memoryUsageGauge.Set(float64(m.MemoryUsage()))
}

// errTransient marks a synthetic failure injected by -fault-rate; it is
// always retryable, standing in for the kind of caller-side transient error
// the container itself never generates (allocation failure is fatal, not
// retryable, per the package doc).
var errTransient = errors.New("mapbench: injected transient failure")

// warmUp inserts cfg.keys synthetic entries in fixed-size batches, retrying
// each batch with exponential backoff when the injected fault triggers. This
// demonstrates the caller-side recovery strategy the map coordinator itself
// does not implement.
func warmUp(m *omnimap.Map[string, string], cfg *config) error {
	const batchSize = 200
	src := rand.New(rand.NewSource(cfg.seed))

	for start := 0; start < cfg.keys; start += batchSize {
		end := start + batchSize
		if end > cfg.keys {
			end = cfg.keys
		}
		batch := start

		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 0
		op := func() error {
			if cfg.faultRate > 0 && src.Float64() < cfg.faultRate {
				return errTransient
			}
			for i := batch; i < end; i++ {
				key := fmt.Sprintf("key-%d", i)
				value := fmt.Sprintf("value-%d-%d", i, src.Uint64())
				m.Insert(key, value)
			}
			return nil
		}

		retryable := backoff.WithMaxRetries(bo, uint64(cfg.warmupRetries))
		if err := backoff.Retry(op, retryable); err != nil {
			return fmt.Errorf("batch [%d,%d): %w", start, end, err)
		}
	}
	return nil
}

// runHandoffs simulates cfg.handoffs sequential ownership transfers of the
// single map handle across goroutines. The semaphore bounds how many
// goroutines may be mid-handoff at once; it never allows two goroutines to
// touch the map concurrently; sole ownership moves from one goroutine to
// the next only after the previous one releases.
func runHandoffs(m *omnimap.Map[string, string], cfg *config) error {
	sem := semaphore.NewWeighted(cfg.handoffWeight)
	ctx := context.Background()
	src := rand.New(rand.NewSource(cfg.seed + 1))

	for i := 0; i < cfg.handoffs; i++ {
		if err := sem.Acquire(ctx, cfg.handoffWeight); err != nil {
			return err
		}

		done := make(chan struct{})
		go func(i int) {
			defer close(done)
			defer sem.Release(cfg.handoffWeight)
			key, value, ok := m.PopFront()
			if ok {
				m.Insert(key, value+"-handed-off")
			} else {
				k := fmt.Sprintf("handoff-%d", i)
				m.Insert(k, fmt.Sprintf("v-%d", src.Uint64()))
			}
		}(i)
		<-done
	}
	return nil
}
