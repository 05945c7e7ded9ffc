// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package sweep_test

import (
	"context"
	"time"

	"github.com/siemens/pingstream/sweep"
	"github.com/siemens/pingstream/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
)

// cannedSource is an echo producer replaying a fixed event sequence per
// session and then closing its channel, so sweep sessions finish without ever
// touching the network.
type cannedSource struct {
	events []types.EchoEvent
}

func (c *cannedSource) Open(ctx context.Context, opts types.EchoOptions, dnsopts types.DnsPreResolveOptions) (<-chan types.EchoEvent, error) {
	ch := make(chan types.EchoEvent)
	go func() {
		defer close(ch)
		for _, ev := range c.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

var _ = Describe("sweeping targets", func() {

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(2 * time.Second).WithPolling(100 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
	})

	It("renders verdicts in clear text", func() {
		Expect(sweep.Pending.String()).To(Equal("pending"))
		Expect(sweep.Reachable.String()).To(Equal("reachable"))
		Expect(sweep.Verdict(42).String()).To(Equal("Verdict(42)"))
	})

	It("rejects threshold percentages beyond 100", func() {
		Expect(func() { sweep.WithThresholdPercentage(101) }).To(Panic())
	})

	It("declares a target reachable when enough replies come back", func() {
		s, reportch := sweep.New(2,
			sweep.WithCount(2),
			sweep.WithInterval(100*time.Millisecond),
			sweep.WithSource(&cannedSource{events: []types.EchoEvent{
				types.Reply{RTT: 10 * time.Millisecond},
				types.Reply{RTT: 30 * time.Millisecond},
			}}))
		s.Probe(context.Background(), "canned.test")
		s.StopWait()

		var reports []sweep.Report
		for report := range reportch {
			reports = append(reports, report)
		}
		Expect(reports).To(HaveLen(2))
		Expect(reports[0].Verdict).To(Equal(sweep.Probing))
		final := reports[1]
		Expect(final.Target).To(Equal("canned.test"))
		Expect(final.Verdict).To(Equal(sweep.Reachable))
		Expect(final.Sent).To(Equal(2))
		Expect(final.Received).To(Equal(2))
		Expect(final.AvgRTT).To(Equal(20 * time.Millisecond))
	})

	It("declares a target unreachable when all probes time out", func() {
		s, reportch := sweep.New(2,
			sweep.WithCount(2),
			sweep.WithInterval(100*time.Millisecond),
			sweep.WithSource(&cannedSource{events: []types.EchoEvent{
				types.Timeout{Line: "lost"},
				types.Timeout{Line: "lost"},
			}}))
		s.Probe(context.Background(), "blackhole.test")
		s.StopWait()

		var final sweep.Report
		for report := range reportch {
			final = report
		}
		Expect(final.Verdict).To(Equal(sweep.Unreachable))
		Expect(final.Received).To(BeZero())
	})

	It("declares a target failed when its session exits abnormally", func() {
		s, reportch := sweep.New(2,
			sweep.WithCount(2),
			sweep.WithInterval(100*time.Millisecond),
			sweep.WithSource(&cannedSource{events: []types.EchoEvent{
				types.ExitedAbnormally{Code: -1, Message: "oh no"},
			}}))
		s.Probe(context.Background(), "broken.test")
		s.StopWait()

		var final sweep.Report
		for report := range reportch {
			final = report
		}
		Expect(final.Verdict).To(Equal(sweep.Failed))
		Expect(final.Err).To(MatchError(ContainSubstring("oh no")))
	})

	It("declares a misconfigured target failed", func() {
		s, reportch := sweep.New(2, sweep.WithInterval(100*time.Millisecond))
		s.Probe(context.Background(), "")
		s.StopWait()

		var final sweep.Report
		for report := range reportch {
			final = report
		}
		Expect(final.Verdict).To(Equal(sweep.Failed))
		Expect(final.Err).To(MatchError(types.ErrNoTarget))
	})

	It("sweeps a stream of targets and tolerates repeated stops", func() {
		s, reportch := sweep.New(2,
			sweep.WithCount(1),
			sweep.WithInterval(100*time.Millisecond),
			sweep.WithSource(&cannedSource{events: []types.EchoEvent{
				types.Reply{RTT: 10 * time.Millisecond},
			}}))
		targets := make(chan string, 2)
		targets <- "a.test"
		targets <- "b.test"
		close(targets)

		go func() {
			defer GinkgoRecover()
			s.ProbeStream(context.Background(), targets)
			s.StopWait()
			s.StopWait()
		}()

		verdicts := map[string]int{}
		notices := 0
		for report := range reportch {
			if report.Verdict == sweep.Probing {
				notices++
				continue
			}
			Expect(report.Verdict).To(Equal(sweep.Reachable))
			verdicts[report.Target]++
		}
		Expect(notices).To(Equal(2))
		Expect(verdicts).To(Equal(map[string]int{"a.test": 1, "b.test": 1}))
	})

})
