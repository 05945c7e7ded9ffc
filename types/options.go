// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import (
	"errors"
	"fmt"
	"math"
	"net/netip"
	"time"
)

// IntervalQuantum is the granularity of probing intervals and overall run
// deadlines. External echo sources format the interval as a decimal number
// with a single fractional digit of seconds, so durations must be multiples
// of this quantum to stay representable on both the native and the external
// path.
const IntervalQuantum = 100 * time.Millisecond

// Family selects the IP address family a session probes.
type Family int

// The address family preferences of an echo session.
const (
	FamilyAny Family = iota // first address of whatever family resolves.
	FamilyV4                // IPv4 addresses only.
	FamilyV6                // IPv6 addresses only.
)

// String returns the clear-text representation of a Family value.
func (f Family) String() string {
	switch f {
	case FamilyAny:
		return "any"
	case FamilyV4:
		return "v4"
	case FamilyV6:
		return "v6"
	}
	return fmt.Sprintf("Family(%d)", f)
}

// Matches reports whether the specified address belongs to this address
// family. IPv4-mapped IPv6 addresses count as IPv4.
func (f Family) Matches(addr netip.Addr) bool {
	switch f {
	case FamilyV4:
		return addr.Is4() || addr.Is4In6()
	case FamilyV6:
		return addr.Is6() && !addr.Is4In6()
	}
	return true
}

// EchoOptions configures a single echo session: which target to probe, how
// often, and on which address family. The Interface name is honored only by
// external echo sources; the native driver has no interface binding.
type EchoOptions struct {
	Target    string        // IP address literal or hostname
	Interval  time.Duration // nominal spacing between probes
	Interface string        // optional network interface name
	Family    Family        // address family preference
}

// Validate rejects echo options before any probing starts.
func (o EchoOptions) Validate() error {
	if o.Target == "" {
		return ErrNoTarget
	}
	return ValidateInterval(o.Interval, "interval")
}

// DnsPreResolveOptions controls resolving a hostname target up-front, before
// handing it to the echo producer.
type DnsPreResolveOptions struct {
	Enable  bool          // resolve hostname targets before probing
	Timeout time.Duration // resolution deadline; zero means the session interval
}

// DefaultDnsPreResolve returns the default pre-resolution behavior: enabled,
// with the resolution deadline tracking the session interval.
func DefaultDnsPreResolve() DnsPreResolveOptions {
	return DnsPreResolveOptions{Enable: true}
}

// The configuration errors reported before a session starts.
var (
	ErrNoTarget = errors.New("target must not be empty")
	ErrInterval = errors.New("invalid interval")
	ErrCount    = errors.New("invalid count")
	ErrTimeout  = errors.New("invalid timeout")
	ErrMaxCount = errors.New("invalid maximum event count")
)

// ValidateInterval checks that a duration is at least one [IntervalQuantum]
// and an exact multiple of it. name identifies the offending parameter in the
// error message.
func ValidateInterval(d time.Duration, name string) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInterval, name, d)
	}
	if d < IntervalQuantum {
		return fmt.Errorf("%w: %s must be at least %v, got %v",
			ErrInterval, name, IntervalQuantum, d)
	}
	if d%IntervalQuantum != 0 {
		return fmt.Errorf("%w: %s must be a multiple of %v, got %v",
			ErrInterval, name, IntervalQuantum, d)
	}
	return nil
}

// ValidateCount checks that a probe count is a positive integer.
func ValidateCount(count int, name string) error {
	if count <= 0 {
		return fmt.Errorf("%w: %s must be a positive integer, got %d",
			ErrCount, name, count)
	}
	return nil
}

// ValidateRunTimeout checks an overall bounded-run deadline: it must satisfy
// the interval quantum rule and must not undercut the probing interval.
func ValidateRunTimeout(timeout, interval time.Duration) error {
	if err := ValidateInterval(timeout, "timeout"); err != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if timeout < interval {
		return fmt.Errorf("%w: timeout (%v) must be at least the interval (%v)",
			ErrTimeout, timeout, interval)
	}
	return nil
}

// ValidateMaxCount checks that a stream's maximum event count is positive and
// representable as a 32 bit signed count.
func ValidateMaxCount(max int) error {
	if max <= 0 {
		return fmt.Errorf("%w: must be a positive integer, got %d", ErrMaxCount, max)
	}
	if max > math.MaxInt32 {
		return fmt.Errorf("%w: %d exceeds the 32 bit count range", ErrMaxCount, max)
	}
	return nil
}
