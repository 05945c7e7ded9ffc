/*
Package echo produces echo event sequences. The [Source] interface is the
producer contract all session bridges consume; [Native] is its in-process
implementation, sending ICMP echoes itself on the session cadence.

	         +---+
	target-->| N +-->ch EchoEvent
	         +---+

The driver's state machine per session is Sending → Waiting, looping until a
fatal outcome. Per-probe timeouts are routine and keep the loop going; any
other OS-level failure (missing raw socket privileges, socket errors) is
unrecoverable and ends the sequence with a single ExitedAbnormally event.
Sessions never retry themselves.

A producer holds no reference to its consumer other than the event channel:
when the consumer cancels the session context, the producer observes that on
its next send attempt (or while sleeping out the cadence) and terminates. No
orphaned probing loops remain behind abandoned sessions.

# Acknowledgements

Under its hood, [Native] leverages [go-ping/ping] for the actual ICMP
round-trips and optionally switches network namespaces via [thediveo/lxkns].

[go-ping/ping]: https://github.com/go-ping/ping
[thediveo/lxkns]: https://github.com/thediveo/lxkns
*/
package echo
