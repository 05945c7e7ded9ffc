/*
Package resolve implements bounded-time name resolution for echo sessions.

A [Resolver] answers with a single concrete address: literals pass through
after an address-family check, hostnames are looked up via A/AAAA queries
raced against a caller-supplied deadline. The race matters because a session
performs resolution inline before its first probe; a hung resolver would
otherwise stall session construction indefinitely.

Resolution failures — unresolvable names, family mismatches, and deadline
expiries — are ordinary errors at this layer. The echo driver converts them
into a single terminal event so that consumers of a session always receive a
value, never an exception, whether resolution happened inline or inside an
external producer.
*/
package resolve
