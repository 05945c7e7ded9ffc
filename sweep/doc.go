/*
Package sweep checks the reachability of many targets concurrently.
[Sweeper] objects run goroutine-limited bounded echo sessions and stream
per-target [Report] verdicts as they are decided, to a channel returned when
creating a new Sweeper object.

	            +---+
	ch string-->| S +-->ch Report
	            +---+

A Sweeper initially emits any newly submitted target before its probes go
out (with the verdict set to “probing”), as well as later the final verdict.
The rationale is that especially interactive clients can more easily manage
their display so that all enqueued sweeps are early visible.

# Acknowledgements

Under its hood, [Sweeper] leverages [gammazero/workerpool] as the limiting
goroutine pool.

[gammazero/workerpool]: https://github.com/gammazero/workerpool
*/
package sweep
