// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package ping

import (
	"context"
	"errors"
	"sync"

	"github.com/siemens/pingstream/types"
)

// ErrExhausted reports an exhausted stream: its session has ended and no
// further events will ever be produced. Iterator-style consumers keep
// getting ErrExhausted on every subsequent call.
var ErrExhausted = errors.New("stream exhausted")

// Stream is one target's live probing session, consumable in three access
// modes over the same underlying event channel: non-blocking [Stream.TryRecv],
// blocking [Stream.Recv], and iterator-style [Stream.Next].
//
// A Stream is operated by exactly one logical consumer at a time; the
// receiving side is nevertheless guarded by a mutex so that accidental
// concurrent access serializes instead of racing, and a blocking receive
// never deadlocks the producer.
type Stream struct {
	pinger   *Pinger
	maxCount int  // truncate the session after this many events; 0 means unbounded.
	deferred bool // open the producer on first receive instead of at construction.

	mu        sync.Mutex // guards everything below, including channel receives.
	events    <-chan types.EchoEvent
	cancel    context.CancelFunc
	opened    bool
	exhausted bool
	received  int
}

// StreamOption can be passed to [Pinger.Stream] when creating new Stream
// objects.
type StreamOption func(*Stream)

// Stream returns a new [Stream] session for this pinger's target. By default
// the echo producer is started eagerly, before Stream returns, and the
// session is unbounded.
func (p *Pinger) Stream(options ...StreamOption) (*Stream, error) {
	s := &Stream{
		pinger: p,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.maxCount != 0 {
		if err := types.ValidateMaxCount(s.maxCount); err != nil {
			return nil, err
		}
	}
	if !s.deferred {
		if err := s.open(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithMaxCount truncates the stream after max events: once that many events
// have been received the session transitions to exhausted and its producer
// is stopped, regardless of consumption mode.
func WithMaxCount(max int) StreamOption {
	return func(s *Stream) {
		s.maxCount = max
	}
}

// Deferred delays starting the echo producer until the first receive, so
// that constructing the Stream object itself issues no probes yet.
func Deferred() StreamOption {
	return func(s *Stream) {
		s.deferred = true
	}
}

// open starts the producer. Callers must hold s.mu (or own s exclusively, as
// during construction).
func (s *Stream) open() error {
	ctx, cancel := context.WithCancel(context.Background())
	events, err := s.pinger.source.Open(ctx, s.pinger.opts, s.pinger.dns)
	if err != nil {
		cancel()
		return err
	}
	s.events = events
	s.cancel = cancel
	s.opened = true
	return nil
}

// ensure readies the stream for a receive: it enforces the maximum event
// count and lazily opens deferred sessions. It returns ErrExhausted on an
// exhausted stream, or the producer's error if a deferred open fails (which
// also exhausts the stream — a broken environment is not retried).
// Callers must hold s.mu.
func (s *Stream) ensure() error {
	if s.exhausted {
		return ErrExhausted
	}
	if s.maxCount > 0 && s.received >= s.maxCount {
		s.teardown()
		return ErrExhausted
	}
	if !s.opened {
		if err := s.open(); err != nil {
			s.exhausted = true
			return err
		}
	}
	return nil
}

// account tallies a delivered event and exhausts the session on a terminal
// event or on reaching the maximum count. Callers must hold s.mu.
func (s *Stream) account(ev types.EchoEvent) {
	s.received++
	if ev.Kind().Terminal() || (s.maxCount > 0 && s.received >= s.maxCount) {
		s.teardown()
	}
}

// teardown releases the channel and stops the producer; the next producer
// send attempt observes the cancellation. Callers must hold s.mu.
func (s *Stream) teardown() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.events = nil
	s.exhausted = true
}

// TryRecv polls for the next event without blocking. ok is false when no
// event is pending yet, as well as on an exhausted stream — polling an
// exhausted stream is not an error and keeps reporting "no event".
func (s *Stream) TryRecv() (ev types.EchoEvent, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return nil, false
	}
	select {
	case ev, ok := <-s.events:
		if !ok {
			s.teardown()
			return nil, false
		}
		s.account(ev)
		return ev, true
	default:
		return nil, false
	}
}

// Recv blocks until the next event arrives, the stream ends, or the context
// is done. ok is false on stream end and on context cancellation; as with
// TryRecv, an exhausted stream keeps reporting "no event" instead of
// erroring.
func (s *Stream) Recv(ctx context.Context) (ev types.EchoEvent, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return nil, false
	}
	select {
	case ev, ok := <-s.events:
		if !ok {
			s.teardown()
			return nil, false
		}
		s.account(ev)
		return ev, true
	case <-ctx.Done():
		return nil, false
	}
}

// Next blocks until the next event arrives and returns it, or signals the
// end of the sequence with [ErrExhausted] — on the call that discovers the
// end as well as on every call thereafter. Unlike Recv it never reports "no
// event yet". A cancelled context surfaces as the context's error.
func (s *Stream) Next(ctx context.Context) (types.EchoEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return nil, err
	}
	select {
	case ev, ok := <-s.events:
		if !ok {
			s.teardown()
			return nil, ErrExhausted
		}
		s.account(ev)
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Active reports whether the stream can still produce events. Deferred
// streams count as active before their first receive.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exhausted {
		return false
	}
	if s.maxCount > 0 && s.received >= s.maxCount {
		return false
	}
	return s.events != nil || !s.opened
}

// Received returns the number of events delivered so far; it never exceeds
// the configured maximum count.
func (s *Stream) Received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

// Close abandons the session. The producer stops within one send attempt;
// subsequent receives report the stream as exhausted. Closing an already
// exhausted or closed stream is a no-op.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
}
