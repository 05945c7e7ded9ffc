// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package ping

import (
	"context"
	"sync"
	"time"

	"github.com/siemens/pingstream/echo"
	"github.com/siemens/pingstream/types"
)

// scripted is a single beat of a scripted echo producer: wait for "after",
// then deliver "ev".
type scripted struct {
	after time.Duration
	ev    types.EchoEvent
}

// scriptSource is an echo producer playing back a fixed script, for driving
// session bridges without any real network I/O. After the script has played,
// the producer either closes its channel (closeAfterScript) or goes silent
// until the session context is done, like a driver whose probes all get
// lost.
type scriptSource struct {
	script           []scripted
	openErr          error // reported by Open instead of producing.
	closeAfterScript bool

	mu    sync.Mutex
	opens int
}

var _ echo.Source = (*scriptSource)(nil)

func (f *scriptSource) Open(ctx context.Context, opts types.EchoOptions, dnsopts types.DnsPreResolveOptions) (<-chan types.EchoEvent, error) {
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	ch := make(chan types.EchoEvent)
	go func() {
		defer close(ch)
		for _, beat := range f.script {
			if beat.after > 0 {
				wecker := time.NewTimer(beat.after)
				select {
				case <-wecker.C:
				case <-ctx.Done():
					wecker.Stop()
					return
				}
			}
			select {
			case ch <- beat.ev:
			case <-ctx.Done():
				return
			}
		}
		if f.closeAfterScript {
			return
		}
		<-ctx.Done()
	}()
	return ch, nil
}

// Opens returns how often this producer has been opened so far.
func (f *scriptSource) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}
