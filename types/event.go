// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import (
	"fmt"
	"time"
)

// Kind identifies the outcome variant of an [EchoEvent].
type Kind int

// The outcome variants of a single echo probe.
const (
	EchoReply   Kind = iota // a reply arrived within the probe's window.
	EchoTimeout             // no reply arrived within the probe's window.
	EchoUnknown             // a response that could not be classified.
	EchoExited              // the producing driver or process terminated.
)

// String returns the clear-text representation of a Kind value.
func (k Kind) String() string {
	switch k {
	case EchoReply:
		return "reply"
	case EchoTimeout:
		return "timeout"
	case EchoUnknown:
		return "unknown"
	case EchoExited:
		return "exited"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Terminal returns true for event kinds that end their session; no further
// events follow a terminal event.
func (k Kind) Terminal() bool {
	return k == EchoExited
}

// EchoEvent is the outcome of a single echo probe-and-wait cycle. Events are
// immutable values; exactly one event is emitted per probe, in probe order.
type EchoEvent interface {
	Kind() Kind  // outcome variant
	Raw() string // raw or synthesized diagnostic line
}

// Reply reports a successfully reflected echo together with its round-trip
// time.
type Reply struct {
	RTT  time.Duration // round-trip time, never negative
	Line string        // raw response line
}

var _ EchoEvent = Reply{}

// Kind returns EchoReply.
func (Reply) Kind() Kind { return EchoReply }

// Raw returns the raw response line.
func (r Reply) Raw() string { return r.Line }

func (r Reply) String() string {
	return fmt.Sprintf("Reply(rtt=%v, line=%q)", r.RTT, r.Line)
}

// Timeout reports an echo that went unanswered within its allotted window.
// The Line is a synthesized diagnostic, not wire data.
type Timeout struct {
	Line string
}

var _ EchoEvent = Timeout{}

// Kind returns EchoTimeout.
func (Timeout) Kind() Kind { return EchoTimeout }

// Raw returns the synthesized diagnostic line.
func (t Timeout) Raw() string { return t.Line }

func (t Timeout) String() string {
	return fmt.Sprintf("Timeout(line=%q)", t.Line)
}

// Unknown reports a response line that parses neither as a reply nor as a
// timeout. Only external echo sources can produce Unknown events; the native
// driver classifies everything it sees.
type Unknown struct {
	Line string
}

var _ EchoEvent = Unknown{}

// Kind returns EchoUnknown.
func (Unknown) Kind() Kind { return EchoUnknown }

// Raw returns the unclassifiable response line.
func (u Unknown) Raw() string { return u.Line }

func (u Unknown) String() string {
	return fmt.Sprintf("Unknown(line=%q)", u.Line)
}

// ExitedAbnormally reports that the probing driver or process terminated. It
// is terminal for its session: no further events follow.
type ExitedAbnormally struct {
	Code    int    // process exit code, or -1 where no process is involved
	Message string // diagnostic message
}

var _ EchoEvent = ExitedAbnormally{}

// Kind returns EchoExited.
func (ExitedAbnormally) Kind() Kind { return EchoExited }

// Raw returns the diagnostic message.
func (e ExitedAbnormally) Raw() string { return e.Message }

func (e ExitedAbnormally) String() string {
	return fmt.Sprintf("ExitedAbnormally(code=%d, message=%q)", e.Code, e.Message)
}
