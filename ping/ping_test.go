// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package ping

import (
	"context"
	"time"

	"github.com/siemens/pingstream/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/success"
)

// reply and lost fabricate the two non-terminal event flavors for scripts.
func reply(seq int, rtt time.Duration) types.EchoEvent {
	return types.Reply{RTT: rtt, Line: "pong"}
}

func lost(seq int) types.EchoEvent {
	return types.Timeout{Line: "lost"}
}

var _ = Describe("pinger sessions", func() {

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(2 * time.Second).WithPolling(100 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
	})

	Context("configuration", func() {

		It("applies sensible defaults", func() {
			p := Successful(New("localhost"))
			Expect(p.opts.Interval).To(Equal(time.Second))
			Expect(p.opts.Family).To(Equal(types.FamilyAny))
			Expect(p.dns.Enable).To(BeTrue())
			Expect(p.source).NotTo(BeNil())
		})

		It("rejects invalid configurations synchronously", func() {
			_, err := New("")
			Expect(err).To(MatchError(types.ErrNoTarget))
			_, err = New("localhost", WithInterval(123*time.Millisecond))
			Expect(err).To(MatchError(types.ErrInterval))
		})

	})

	Context("single probes", func() {

		It("returns the first event of a fresh session", func() {
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond),
				WithSource(&scriptSource{script: []scripted{
					{ev: reply(0, time.Millisecond)},
				}})))
			ev := Successful(p.Once(context.Background()))
			Expect(ev.Kind()).To(Equal(types.EchoReply))
		})

		It("synthesizes a timeout when no event arrives within one interval", func() {
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond),
				WithSource(&scriptSource{ /* eternal silence */ })))
			start := time.Now()
			ev := Successful(p.Once(context.Background()))
			Expect(time.Since(start)).To(BeNumerically(">=", 100*time.Millisecond))
			Expect(ev.Kind()).To(Equal(types.EchoTimeout))
			Expect(ev.Raw()).To(Equal("Request timeout for icmp_seq 0"))
		})

		It("reports a vanished producer as disconnected", func() {
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond),
				WithSource(&scriptSource{closeAfterScript: true})))
			_, err := p.Once(context.Background())
			Expect(err).To(MatchError(ErrDisconnected))
		})

	})

	Context("bounded runs", func() {

		It("validates count and timeout before opening a session", func() {
			src := &scriptSource{}
			p := Successful(New("localhost", WithSource(src)))
			_, err := p.Run(context.Background(), 0, 0)
			Expect(err).To(MatchError(types.ErrCount))
			_, err = p.Run(context.Background(), 3, 500*time.Millisecond)
			Expect(err).To(MatchError(types.ErrTimeout))
			Expect(src.Opens()).To(BeZero())
		})

		It("collects exactly count events in probe order", func() {
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond),
				WithSource(&scriptSource{script: []scripted{
					{after: 5 * time.Millisecond, ev: reply(0, time.Millisecond)},
					{after: 5 * time.Millisecond, ev: lost(1)},
					{after: 5 * time.Millisecond, ev: reply(2, time.Millisecond)},
				}})))
			events := Successful(p.Run(context.Background(), 3, 0))
			Expect(events).To(HaveLen(3))
			Expect(events[0].Kind()).To(Equal(types.EchoReply))
			Expect(events[1].Kind()).To(Equal(types.EchoTimeout))
			Expect(events[2].Kind()).To(Equal(types.EchoReply))
		})

		It("ends early on a terminal event, keeping it as the last one", func() {
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond),
				WithSource(&scriptSource{script: []scripted{
					{ev: reply(0, time.Millisecond)},
					{ev: types.ExitedAbnormally{Code: -1, Message: "oh no"}},
				}})))
			events := Successful(p.Run(context.Background(), 5, 0))
			Expect(events).To(HaveLen(2))
			Expect(events[1].Kind()).To(Equal(types.EchoExited))
		})

		It("accepts a producer closing its channel as a normal, short outcome", func() {
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond),
				WithSource(&scriptSource{
					script:           []scripted{{ev: reply(0, time.Millisecond)}},
					closeAfterScript: true,
				})))
			events := Successful(p.Run(context.Background(), 3, 0))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind()).To(Equal(types.EchoReply))
		})

		It("synthesizes one timeout for the last due probe when the deadline passes", func() {
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond),
				WithSource(&scriptSource{script: []scripted{
					{after: 5 * time.Millisecond, ev: reply(0, time.Millisecond)},
					// ...and then probe 1's answer never comes.
				}})))
			events := Successful(p.Run(context.Background(), 2, 200*time.Millisecond))
			Expect(events).To(HaveLen(2))
			Expect(events[0].Kind()).To(Equal(types.EchoReply))
			Expect(events[1].Kind()).To(Equal(types.EchoTimeout))
			Expect(events[1].Raw()).To(Equal("Request timeout for icmp_seq 1"))
		})

		It("synthesizes a timeout even for a completely silent session", func() {
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond),
				WithSource(&scriptSource{ /* eternal silence */ })))
			events := Successful(p.Run(context.Background(), 1, 100*time.Millisecond))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind()).To(Equal(types.EchoTimeout))
			Expect(events[0].Raw()).To(Equal("Request timeout for icmp_seq 0"))
		})

		It("hands back what has arrived when the context is cancelled", func() {
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond),
				WithSource(&scriptSource{script: []scripted{
					{ev: reply(0, time.Millisecond)},
				}})))
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			events, err := p.Run(ctx, 3, 0)
			Expect(err).To(MatchError(context.DeadlineExceeded))
			Expect(events).To(HaveLen(1))
		})

		It("stops the producer when the run is over", func() {
			src := &scriptSource{script: []scripted{{ev: reply(0, time.Millisecond)}}}
			p := Successful(New("localhost",
				WithInterval(100*time.Millisecond), WithSource(src)))
			Expect(Successful(p.Run(context.Background(), 1, 0))).To(HaveLen(1))
			// the leak check in the deferred cleanup sees the script goroutine
			// gone.
		})

	})

})

var _ = Describe("run event reception", func() {

	It("differentiates wait expiry from channel closure", func() {
		ch := make(chan types.EchoEvent)
		_, ok, timedout, err := recvEvent(context.Background(), ch, 10*time.Millisecond)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(timedout).To(BeTrue())

		close(ch)
		_, ok, timedout, err = recvEvent(context.Background(), ch, -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(timedout).To(BeFalse())
	})

	It("surfaces context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ch := make(chan types.EchoEvent)
		_, _, _, err := recvEvent(ctx, ch, -1)
		Expect(err).To(MatchError(context.Canceled))
	})

})
