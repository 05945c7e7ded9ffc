// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package echo

import (
	"context"

	"github.com/siemens/pingstream/types"
)

// Source produces the ordered event sequence of one echo session. Two
// producer shapes exist: the in-process [Native] driver, and external
// sources wrapping an OS ping facility; session bridges do not care which
// one feeds them.
//
// The returned channel carries exactly one event per probe, in probe order,
// honoring the configured interval as the nominal spacing. The sequence ends
// either with a terminal ExitedAbnormally event or by closing the channel.
// Producers must watch the passed context on every send, so that a consumer
// abandoning its session stops the producer within one send attempt.
//
// Resolution failures are not errors: they surface as a single terminal
// ExitedAbnormally event on the returned channel. The error return is
// reserved for invalid options and unusable environments.
type Source interface {
	Open(ctx context.Context, opts types.EchoOptions, dnsopts types.DnsPreResolveOptions) (<-chan types.EchoEvent, error)
}
