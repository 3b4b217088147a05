package main

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"slices"
	"sync"
	"text/tabwriter"
	"time"
)

type phaseStats struct {
	name     string
	ops      int
	failures int
	elapsed  time.Duration
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

func (s phaseStats) throughput() float64 {
	if s.elapsed <= 0 {
		return 0
	}
	return float64(s.ops) / s.elapsed.Seconds()
}

// workerTally is owned by a single worker until the phase ends, so no
// locking is needed while samples are collected.
type workerTally struct {
	samples  []time.Duration
	failures int
}

// runPhase feeds ops job indexes to concurrency workers. Each worker draws
// from its own rand derived from seed so runs are reproducible.
func runPhase(name string, ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	concurrency = max(concurrency, 1)
	jobs := make(chan int, concurrency)
	tallies := make([]workerTally, concurrency)

	var wg sync.WaitGroup
	began := time.Now()
	for w := range tallies {
		wg.Add(1)
		go func(t *workerTally, r *rand.Rand) {
			defer wg.Done()
			for i := range jobs {
				at := time.Now()
				if err := op(r, i); err != nil {
					t.failures++
				}
				t.samples = append(t.samples, time.Since(at))
			}
		}(&tallies[w], rand.New(rand.NewSource(seed+int64(w))))
	}
	for i := 0; i < ops; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	s := phaseStats{name: name, elapsed: time.Since(began)}
	var all []time.Duration
	for _, t := range tallies {
		all = append(all, t.samples...)
		s.failures += t.failures
	}
	slices.Sort(all)
	s.ops = len(all)
	s.p50 = percentile(all, 50)
	s.p95 = percentile(all, 95)
	s.p99 = percentile(all, 99)
	return s
}

// percentile uses the nearest-rank method on ascending samples.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	rank = min(max(rank, 1), len(sorted))
	return sorted[rank-1]
}

func printStats(w io.Writer, phases ...phaseStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "phase\tops\tfailed\telapsed\tops/s\tp50\tp95\tp99\t")
	for _, s := range phases {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.0f\t%s\t%s\t%s\t\n",
			s.name, s.ops, s.failures,
			s.elapsed.Round(time.Millisecond), s.throughput(),
			s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
	}
	return tw.Flush()
}
