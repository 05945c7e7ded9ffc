// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/siemens/pingstream/types"

	"github.com/miekg/dns"
)

// The resolution failure reasons. Callers of an echo session never see these
// as errors; the echo driver converts them into a single terminal
// ExitedAbnormally event.
var (
	ErrFamilyMismatch = errors.New("address family mismatch")
	ErrNoAddress      = errors.New("no matching address")
	ErrResolveTimeout = errors.New("hostname resolution timeout")
)

// resolvConf is where the system resolver configuration lives.
const resolvConf = "/etc/resolv.conf"

var (
	sysOnce   sync.Once
	sysServer string
	sysErr    error
)

// systemNameserver returns the first nameserver from the system resolver
// configuration, determined once per process lifetime.
func systemNameserver() (string, error) {
	sysOnce.Do(func() {
		cfg, err := dns.ClientConfigFromFile(resolvConf)
		if err != nil {
			sysErr = err
			return
		}
		if len(cfg.Servers) == 0 {
			sysErr = fmt.Errorf("no nameservers configured in %s", resolvConf)
			return
		}
		sysServer = net.JoinHostPort(cfg.Servers[0], cfg.Port)
	})
	return sysServer, sysErr
}

// Resolver turns a hostname or address literal into a single concrete
// address, bounded by a timeout and filtered by address family. The zero
// value is a usable Resolver talking UDP to the first system nameserver.
type Resolver struct {
	Client *dns.Client // DNS client to use; nil for a plain UDP client.
	Server string      // "host:port" resolver address; empty for the system one.
}

// Resolve returns the first address of the requested family for the
// specified target. Address literals are returned immediately without
// consulting DNS, after checking them against the requested family. For
// hostnames the lookup runs on its own goroutine and is raced against the
// timeout, so a wedged resolver cannot stall the caller beyond its deadline.
// The lookup itself is not aborted mid-flight; its late result is simply
// dropped.
func (r *Resolver) Resolve(ctx context.Context, target string, family types.Family, timeout time.Duration) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(target); err == nil {
		if !family.Matches(addr) {
			return netip.Addr{}, fmt.Errorf("%w: %s is not an %s address",
				ErrFamilyMismatch, target, family)
		}
		return addr, nil
	}

	type outcome struct {
		addr netip.Addr
		err  error
	}
	resultch := make(chan outcome, 1) // buffered: a late lookup must not leak its goroutine
	go func() {
		addr, err := r.lookup(ctx, target, family)
		resultch <- outcome{addr: addr, err: err}
	}()

	wecker := time.NewTimer(timeout)
	defer wecker.Stop()
	select {
	case result := <-resultch:
		return result.addr, result.err
	case <-wecker.C:
		return netip.Addr{}, fmt.Errorf("%w: %s", ErrResolveTimeout, target)
	case <-ctx.Done():
		return netip.Addr{}, ctx.Err()
	}
}

// lookup queries A and/or AAAA records for the specified name, depending on
// the requested family, and returns the first answer matching that family.
func (r *Resolver) lookup(ctx context.Context, name string, family types.Family) (netip.Addr, error) {
	server := r.Server
	if server == "" {
		var err error
		server, err = systemNameserver()
		if err != nil {
			return netip.Addr{}, fmt.Errorf("%w: %q: %v", ErrNoAddress, name, err)
		}
	}
	clnt := r.Client
	if clnt == nil {
		clnt = &dns.Client{}
	}

	var qtypes []uint16
	switch family {
	case types.FamilyV4:
		qtypes = []uint16{dns.TypeA}
	case types.FamilyV6:
		qtypes = []uint16{dns.TypeAAAA}
	default:
		qtypes = []uint16{dns.TypeA, dns.TypeAAAA}
	}
	for _, qtype := range qtypes {
		msg := dns.Msg{
			MsgHdr: dns.MsgHdr{Id: dns.Id()},
		}
		msg.SetQuestion(dns.Fqdn(name), qtype)
		reply, _, err := clnt.ExchangeContext(ctx, &msg, server)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("%w: resolving %q: %v", ErrNoAddress, name, err)
		}
		for _, rr := range reply.Answer {
			var ip net.IP
			switch addrRR := rr.(type) {
			case *dns.A:
				ip = addrRR.A
			case *dns.AAAA:
				ip = addrRR.AAAA
			default:
				continue
			}
			addr, ok := netip.AddrFromSlice(ip)
			if !ok {
				continue
			}
			addr = addr.Unmap()
			if family.Matches(addr) {
				return addr, nil
			}
		}
	}
	return netip.Addr{}, fmt.Errorf("%w: query for %q yields no answers", ErrNoAddress, name)
}
