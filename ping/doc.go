/*
Package ping bridges echo event producers and their consumers. It offers the
same underlying channel-and-lifecycle discipline in three consumption
shapes:

  - a single fetch, [Pinger.Once], waiting at most one interval for the
    first probe's outcome;
  - a bounded run, [Pinger.Run], collecting N probe outcomes under an
    optional overall deadline with a grace period for in-flight replies;
  - an unbounded [Stream] with non-blocking, blocking, and iterator-style
    access, optional truncation at a maximum event count, and an
    idle → active → exhausted lifecycle.

	         +---+
	target-->| P +-->EchoEvent | []EchoEvent | Stream
	         +---+

Everything a session delivers — replies, probe timeouts, and the terminal
"producer exited" outcome — arrives as data, never as an error. Errors are
reserved for invalid configuration (rejected synchronously at construction)
and for the lifecycle signals [ErrDisconnected] and [ErrExhausted].

Dropping a Stream (or letting Once/Run return) cancels the session context,
which is the sole cancellation mechanism: the producer notices on its next
send attempt and terminates. There is no explicit cancel signal to producers
beyond that.
*/
package ping
