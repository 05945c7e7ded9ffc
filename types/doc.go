/*
Package types defines pingstream's information model. Which is rather simple
and mainly revolves around the [EchoEvent] taxonomy — [Reply], [Timeout],
[Unknown], and [ExitedAbnormally] — as well as the option types configuring
echo sessions.

# Event Taxonomy

Every echo probe produces exactly one [EchoEvent]. A [Reply] carries the
round-trip time, a [Timeout] stands for an unanswered probe, an [Unknown]
wraps a response line the producer could not classify, and an
[ExitedAbnormally] reports that the producer itself is gone. The last kind is
terminal: consumers never see further events after it, whatever the reason
for the termination was — hostname resolution failure, missing raw socket
privileges, or an external ping process keeling over. Collapsing all producer
failures into one event kind gives consumers a single failure channel,
regardless of whether the failure happened synchronously (inline resolution)
or asynchronously (inside the producer).

# Design Rationale

[EchoEvent] is an interface over small immutable value types rather than one
struct with a tag field. Events travel through channels between producer and
consumer goroutines; value semantics plus getter-only access avoid a locking
mess and tons of subtle bugs, at the price of a type switch at the consuming
end. This mirrors how address quality values are passed around elsewhere in
our tooling.
*/
package types
