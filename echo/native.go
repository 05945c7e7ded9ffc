// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package echo

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/siemens/pingstream/resolve"
	"github.com/siemens/pingstream/types"

	"github.com/go-ping/ping"
	"github.com/thediveo/lxkns/ops"
	"github.com/thediveo/lxkns/ops/relations"
	"github.com/thediveo/lxkns/species"
)

// exitNoProcess is the exit code reported in ExitedAbnormally events from the
// native driver, where no OS process is involved that could supply one.
const exitNoProcess = -1

// Native is the in-process echo driver for platforms without a usable
// external ping producer. It resolves the target once at session start, then
// sends one ICMP echo per interval and classifies each attempt into the
// event taxonomy.
type Native struct {
	unprivileged bool               // if true, uses UDP-based pings instead of privileged ICMPs.
	netns        relations.Relation // network namespace to ping from, or nil.
	resolver     *resolve.Resolver  // name resolution for hostname targets.
}

var _ Source = (*Native)(nil)

// NativeOption can be passed to NewNative when creating new [Native] echo
// drivers.
type NativeOption func(*Native)

// NewNative returns a new [Native] echo driver. By default it sends
// privileged ICMP echoes from the caller's network namespace and resolves
// hostname targets through the system resolver.
func NewNative(options ...NativeOption) *Native {
	n := &Native{
		resolver: &resolve.Resolver{},
	}
	for _, opt := range options {
		opt(n)
	}
	return n
}

// AsUnprivileged tells the driver to carry out unprivileged pings using UDP
// instead of ICMP packets.
func AsUnprivileged() NativeOption {
	return func(n *Native) {
		n.unprivileged = true
	}
}

// InNetworkNamespace optionally runs the driver's probes inside the network
// namespace referenced by the specified filesystem path (such as
// "/proc/666/ns/net").
func InNetworkNamespace(netnsref string) NativeOption {
	return func(n *Native) {
		n.netns = ops.NewTypedNamespacePath(netnsref, species.CLONE_NEWNET)
	}
}

// WithResolver sets the resolver used for hostname targets.
func WithResolver(r *resolve.Resolver) NativeOption {
	return func(n *Native) {
		n.resolver = r
	}
}

// Open starts probing the configured target, returning the session's event
// channel. A target that cannot be resolved (or whose resolution exceeds its
// deadline) yields a channel delivering a single ExitedAbnormally event;
// only invalid options are reported as an error.
func (n *Native) Open(ctx context.Context, opts types.EchoOptions, dnsopts types.DnsPreResolveOptions) (<-chan types.EchoEvent, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	target := opts.Target
	_, literal := addrLiteral(target)
	if literal || dnsopts.Enable {
		resolveTimeout := dnsopts.Timeout
		if resolveTimeout == 0 {
			resolveTimeout = opts.Interval
		}
		addr, err := n.resolver.Resolve(ctx, target, opts.Family, resolveTimeout)
		if err != nil {
			ch := make(chan types.EchoEvent, 1)
			ch <- types.ExitedAbnormally{Code: exitNoProcess, Message: err.Error()}
			close(ch)
			return ch, nil
		}
		target = addr.String()
	}
	ch := make(chan types.EchoEvent)
	go n.loop(ctx, target, opts.Interval, ch)
	return ch, nil
}

// addrLiteral reports whether target is an IP address literal.
func addrLiteral(target string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(target)
	return addr, err == nil
}

// loop runs the send/wait cycle until a fatal outcome or until the consumer
// is gone. A slow reply must not push the next send out further and a fast
// reply must not shrink the nominal period, so the loop sleeps for whatever
// remains of the interval since the previous cycle started.
func (n *Native) loop(ctx context.Context, target string, interval time.Duration, ch chan<- types.EchoEvent) {
	defer close(ch)
	lastSend := time.Now()
	for seq := 0; ; seq++ {
		ev, fatal := n.probe(ctx, target, interval, seq)
		select {
		case ch <- ev:
		case <-ctx.Done():
			return
		}
		if fatal {
			return
		}
		remaining := interval - time.Since(lastSend)
		if remaining < 0 {
			remaining = 0
		}
		wecker := time.NewTimer(remaining)
		select {
		case <-wecker.C:
		case <-ctx.Done():
			wecker.Stop()
			return
		}
		lastSend = time.Now()
	}
}

// probe issues a single echo with a per-request timeout of one interval and
// classifies the outcome. fatal is true for unrecoverable OS-level failures
// (permissions, sockets); those end the session, probe timeouts do not.
func (n *Native) probe(ctx context.Context, target string, interval time.Duration, seq int) (ev types.EchoEvent, fatal bool) {
	echo := func() interface{} {
		// A quick and non-blocking check to see if the consumer has already
		// left before we start our work...
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pinger, err := ping.NewPinger(target)
		if err != nil {
			return err
		}
		pinger.SetPrivileged(!n.unprivileged)
		pinger.Count = 1
		pinger.Interval = interval
		pinger.Timeout = interval
		// While the echo is in flight we need to monitor the context in case
		// the consumer abandons the session. The done channel here works "the
		// other way round" in the sense that it terminates the concurrent
		// context monitoring.
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				pinger.Stop()
			case <-done:
			}
		}()
		if err := pinger.Run(); err != nil {
			return err
		}
		stats := pinger.Statistics()
		if stats.PacketsRecv < 1 {
			ev = types.Timeout{
				Line: fmt.Sprintf("Request timeout for icmp_seq %d", seq),
			}
			return nil
		}
		rtt := stats.Rtts[0]
		ev = types.Reply{
			RTT: rtt,
			Line: fmt.Sprintf("Reply from %s: icmp_seq=%d time=%dms",
				stats.IPAddr, seq, rtt.Milliseconds()),
		}
		return nil
	}
	// Run the echo in the requested network namespace, if necessary. ops.Execute
	// differentiates between a namespace switching error and the function
	// result from inside the switched namespaces; both classes are fatal here.
	var err error
	if n.netns != nil {
		var echoerr interface{}
		echoerr, err = ops.Execute(echo, n.netns)
		if err == nil && echoerr != nil {
			if fnerr, ok := echoerr.(error); ok {
				err = fnerr
			}
		}
	} else {
		if res := echo(); res != nil {
			err = res.(error)
		}
	}
	if err != nil {
		return types.ExitedAbnormally{Code: exitNoProcess, Message: err.Error()}, true
	}
	return ev, false
}
