// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package ping

import (
	"context"
	"errors"
	"time"

	"github.com/siemens/pingstream/echo"
	"github.com/siemens/pingstream/types"
)

// ErrDisconnected reports that the echo producer vanished before delivering
// a single event.
var ErrDisconnected = errors.New("echo producer disconnected")

// Pinger issues echo sessions against a single target. Its configuration is
// validated once at construction; the Once and Run methods each start a
// fresh producer for their session and stop it again on return.
type Pinger struct {
	opts   types.EchoOptions
	dns    types.DnsPreResolveOptions
	source echo.Source
}

// PingerOption can be passed to New when creating new Pinger objects.
type PingerOption func(*Pinger)

// New returns a [Pinger] probing the specified target, which may be an IP
// address literal or a hostname.
//
// The new pinger defaults to probing at intervals of 1s, on whatever address
// family the target resolves to first, with hostname pre-resolution enabled
// and the in-process [echo.Native] driver as its producer. It can be
// configured during creation using several options:
//   - [WithInterval]
//   - [WithFamily]
//   - [OnInterface]
//   - [WithDnsPreResolve]
//   - [WithSource]
//
// Configuration errors are reported here, synchronously, before any probing
// starts. Resolution failures are not: they surface later as a terminal
// ExitedAbnormally event of the session.
func New(target string, options ...PingerOption) (*Pinger, error) {
	p := &Pinger{
		opts: types.EchoOptions{
			Target:   target,
			Interval: time.Second,
		},
		dns:    types.DefaultDnsPreResolve(),
		source: echo.NewNative(),
	}
	for _, opt := range options {
		opt(p)
	}
	if err := p.opts.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// WithInterval sets the nominal spacing between consecutive probes.
func WithInterval(interval time.Duration) PingerOption {
	return func(p *Pinger) {
		p.opts.Interval = interval
	}
}

// WithFamily restricts the session to a single address family.
func WithFamily(family types.Family) PingerOption {
	return func(p *Pinger) {
		p.opts.Family = family
	}
}

// OnInterface names the network interface to probe on. Only external echo
// sources honor it; the native driver has no interface binding.
func OnInterface(name string) PingerOption {
	return func(p *Pinger) {
		p.opts.Interface = name
	}
}

// WithDnsPreResolve overrides the default hostname pre-resolution behavior.
func WithDnsPreResolve(dnsopts types.DnsPreResolveOptions) PingerOption {
	return func(p *Pinger) {
		p.dns = dnsopts
	}
}

// WithSource sets the echo producer feeding this pinger's sessions.
func WithSource(source echo.Source) PingerOption {
	return func(p *Pinger) {
		p.source = source
	}
}

// Once issues a single probe and returns its outcome. The wait for the first
// event is bounded by one interval; if the wait itself times out (as opposed
// to the echo timing out), a Timeout event for probe 0 is synthesized. Only
// a producer that disappears without a single event is an error,
// [ErrDisconnected].
func (p *Pinger) Once(ctx context.Context) (types.EchoEvent, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := p.source.Open(ctx, p.opts, p.dns)
	if err != nil {
		return nil, err
	}
	wecker := time.NewTimer(p.opts.Interval)
	defer wecker.Stop()
	select {
	case ev, ok := <-events:
		if !ok {
			return nil, ErrDisconnected
		}
		return ev, nil
	case <-wecker.C:
		return types.Timeout{Line: "Request timeout for icmp_seq 0"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run performs a bounded run of count probes, returning the events in probe
// order. A zero timeout means no overall deadline; otherwise timeout must
// satisfy the interval quantum rule and be at least the probing interval.
//
// The run ends once count non-terminal events arrived, once a terminal
// ExitedAbnormally event arrived (which is appended, with nothing after it),
// once the producer closed the channel, or once the deadline schedule calls
// the run off — appending at most one synthesized Timeout for the last due
// probe. Fewer than count events is therefore a normal outcome, not an
// error.
func (p *Pinger) Run(ctx context.Context, count int, timeout time.Duration) ([]types.EchoEvent, error) {
	if err := types.ValidateCount(count, "count"); err != nil {
		return nil, err
	}
	if timeout != 0 {
		if err := types.ValidateRunTimeout(timeout, p.opts.Interval); err != nil {
			return nil, err
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := p.source.Open(ctx, p.opts, p.dns)
	if err != nil {
		return nil, err
	}

	sched := newSchedule(time.Now(), p.opts.Interval, count, timeout)
	results := make([]types.EchoEvent, 0, count)
	received := 0
	for received < count {
		wait, synth, stop := sched.next(time.Now(), received)
		if stop {
			if synth != nil {
				results = append(results, synth)
			}
			break
		}
		ev, ok, timedout, err := recvEvent(ctx, events, wait)
		switch {
		case err != nil:
			return results, err
		case timedout:
			// The deadline elapsed while we were blocked; one last schedule
			// check decides whether the due probe still needs a synthetic
			// timeout.
			if _, synth, _ := sched.next(time.Now(), received); synth != nil {
				results = append(results, synth)
			}
			return results, nil
		case !ok:
			// Producer closed the channel without a terminal event; the run
			// ends with what has arrived so far.
			return results, nil
		}
		results = append(results, ev)
		if ev.Kind().Terminal() {
			break
		}
		received++
	}
	return results, nil
}

// recvEvent waits for the next event, blocking at most wait when wait is
// non-negative and indefinitely otherwise. timedout reports a wait bound
// expiry; ok is false when the event channel has been closed.
func recvEvent(ctx context.Context, events <-chan types.EchoEvent, wait time.Duration) (ev types.EchoEvent, ok bool, timedout bool, err error) {
	var timeoutC <-chan time.Time
	if wait >= 0 {
		wecker := time.NewTimer(wait)
		defer wecker.Stop()
		timeoutC = wecker.C
	}
	select {
	case ev, ok = <-events:
		return ev, ok, false, nil
	case <-timeoutC:
		return nil, false, true, nil
	case <-ctx.Done():
		return nil, false, false, ctx.Err()
	}
}
