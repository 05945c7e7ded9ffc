// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/siemens/pingstream/echo"
	"github.com/siemens/pingstream/ping"
	"github.com/siemens/pingstream/types"

	"github.com/gammazero/workerpool"
)

// Verdict is the reachability state of a swept target.
type Verdict int

// The reachability verdicts of a sweep.
const (
	Pending     Verdict = iota // target submitted, probing not yet started.
	Probing                    // probes in flight.
	Unreachable                // too few replies to reach the threshold.
	Reachable                  // enough replies came back.
	Failed                     // the probing session itself failed.
)

// String returns the clear-text representation of a Verdict value.
func (v Verdict) String() string {
	switch v {
	case Pending:
		return "pending"
	case Probing:
		return "probing"
	case Unreachable:
		return "unreachable"
	case Reachable:
		return "reachable"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Verdict(%d)", v)
}

// Report is a target's sweep outcome, intermediate or final.
type Report struct {
	Target   string        // the swept target, as submitted.
	Verdict  Verdict       // reachability verdict.
	Sent     int           // probes issued.
	Received int           // replies received.
	AvgRTT   time.Duration // mean round-trip time over the received replies.
	Err      error         // failure details when Verdict is Failed.
}

// Sweeper checks the reachability of many targets concurrently by running a
// bounded echo session against each and then streaming the verdicts to a
// report/output channel. Sweepers use a goroutine-limited worker pool.
type Sweeper struct {
	count               int           // probes per target.
	interval            time.Duration // distance between probes.
	thresholdPercentage uint          // percentage of replies for a reachable target.
	source              echo.Source   // echo producer for the sessions.

	workers  *workerpool.WorkerPool
	reports  chan Report
	stopOnce sync.Once
}

// SweeperOption can be passed to New when creating new Sweeper objects.
type SweeperOption func(*Sweeper)

// New returns a new [Sweeper] with a maximum worker pool of the specified
// size, as well as its report stream. The report channel not only sends the
// final verdicts, but also an initial in-flight notice per target as it gets
// submitted.
//
// The new sweeper defaults to 3 probes per target at intervals of 1s, a
// reachability threshold of 50(%), and the in-process native echo driver. It
// can be configured during creation using several options:
//   - [WithCount]
//   - [WithInterval]
//   - [WithThresholdPercentage]
//   - [WithSource]
func New(size int, options ...SweeperOption) (*Sweeper, <-chan Report) {
	reports := make(chan Report, size)
	sweeper := &Sweeper{
		count:               3,
		interval:            time.Second,
		thresholdPercentage: 50,
		source:              echo.NewNative(),
		workers:             workerpool.New(size),
		reports:             reports,
	}
	for _, opt := range options {
		opt(sweeper)
	}
	return sweeper, reports
}

// WithCount sets the number of probes per swept target.
func WithCount(count uint) SweeperOption {
	return func(s *Sweeper) {
		s.count = int(count)
	}
}

// WithInterval sets the interval between consecutive probes of a target.
func WithInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.interval = interval
	}
}

// WithThresholdPercentage takes a percentage between 0 and 100 that
// specifies the share of answered probes required for a Reachable verdict.
func WithThresholdPercentage(threshold uint) SweeperOption {
	if threshold > 100 {
		panic(fmt.Errorf("Sweeper: threshold must be a percentage between 0 <= threshold <= 100, got: %d",
			threshold))
	}
	return func(s *Sweeper) {
		s.thresholdPercentage = threshold
	}
}

// WithSource sets the echo producer feeding the sweep sessions.
func WithSource(source echo.Source) SweeperOption {
	return func(s *Sweeper) {
		s.source = source
	}
}

// Probe submits a target for a reachability check. An in-flight notice is
// sent to the report stream immediately, the verdict follows once a worker
// has run the target's echo session.
//
// If the specified context gets cancelled, pending verdicts won't be echoed
// to the report stream at all. However, spurious verdicts might still appear
// on the stream due to the uncontrollable order of verdict sending and
// context cancellation detection.
func (s *Sweeper) Probe(ctx context.Context, target string) {
	select {
	case s.reports <- Report{Target: target, Verdict: Probing}:
	case <-ctx.Done():
		return
	}
	s.workers.Submit(func() {
		report := s.probe(ctx, target)
		select {
		case s.reports <- report:
		case <-ctx.Done():
		}
	})
}

// ProbeStream reads targets to be swept from a channel until the channel is
// closed or the context is cancelled. It does not return until then, so
// callers typically run ProbeStream in a separate goroutine.
func (s *Sweeper) ProbeStream(ctx context.Context, targets <-chan string) {
	for {
		select {
		case target, ok := <-targets:
			if !ok {
				return
			}
			s.Probe(ctx, target)
		case <-ctx.Done():
			return
		}
	}
}

// probe runs one target's bounded echo session and condenses its events into
// the final report. The session deadline always limits waiting for the last
// probe to get reflected (or not).
func (s *Sweeper) probe(ctx context.Context, target string) Report {
	report := Report{Target: target, Verdict: Unreachable, Sent: s.count}
	pinger, err := ping.New(target,
		ping.WithInterval(s.interval),
		ping.WithSource(s.source))
	if err != nil {
		report.Verdict = Failed
		report.Err = err
		return report
	}
	deadline := s.interval * time.Duration(s.count+2)
	events, err := pinger.Run(ctx, s.count, deadline)
	if err != nil {
		report.Verdict = Failed
		report.Err = err
		return report
	}
	var rttsum time.Duration
	for _, ev := range events {
		switch ev := ev.(type) {
		case types.Reply:
			report.Received++
			rttsum += ev.RTT
		case types.ExitedAbnormally:
			report.Verdict = Failed
			report.Err = fmt.Errorf("echo session exited: %s", ev.Message)
			return report
		}
	}
	if report.Received > 0 {
		report.AvgRTT = rttsum / time.Duration(report.Received)
	}
	if report.Received >= s.count*int(s.thresholdPercentage)/100 && report.Received > 0 {
		report.Verdict = Reachable
	}
	return report
}

// StopWait waits for all queued sweep tasks to get processed and then
// finally closes the report channel.
func (s *Sweeper) StopWait() {
	s.stopOnce.Do(func() {
		s.workers.StopWait()
		close(s.reports)
	})
}
