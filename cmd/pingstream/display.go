// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/siemens/pingstream/types"

	"github.com/muesli/termenv"
)

var (
	replyStyle   = termenv.Style{}.Foreground(termenv.ANSIGreen)
	timeoutStyle = termenv.Style{}.Foreground(termenv.ANSIYellow)
	exitedStyle  = termenv.Style{}.Foreground(termenv.ANSIRed)
	unknownStyle = termenv.Style{}.Faint()
)

var targetStyle = termenv.Style{}.Bold()

// eventLine renders a single echo event as a colored one-liner.
func eventLine(ev types.EchoEvent) string {
	switch ev := ev.(type) {
	case types.Reply:
		return replyStyle.Styled(" ✔ " + ev.Line)
	case types.Timeout:
		return timeoutStyle.Styled(" … " + ev.Line)
	case types.ExitedAbnormally:
		return exitedStyle.Styled(fmt.Sprintf(" × echo producer exited (%d): %s", ev.Code, ev.Message))
	default:
		return unknownStyle.Styled(" ? " + ev.Raw())
	}
}

// historyDepth is how many of the most recent event lines the live display
// keeps on screen.
const historyDepth = 10

// renderer renders the live terminal display for a streaming session, based
// on the echo events passed to its Observe method.
type renderer struct {
	target  string
	spinner *spinner

	mu       sync.Mutex
	lines    []string
	sent     int
	received int
	rttsum   time.Duration
	done     bool
}

// newRenderer returns a renderer for the specified target's event stream.
func newRenderer(target string) *renderer {
	sp := newSpinner()
	sp.Start(*spinnerInterval)
	return &renderer{
		target:  target,
		spinner: sp,
	}
}

// Stop the renderer's background spinner ticker.
func (r *renderer) Stop() {
	r.spinner.Stop()
}

// Observe folds another echo event into the display state.
func (r *renderer) Observe(ev types.EchoEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent++
	if reply, ok := ev.(types.Reply); ok {
		r.received++
		r.rttsum += reply.RTT
	}
	if ev.Kind().Terminal() {
		r.done = true
	}
	r.lines = append(r.lines, eventLine(ev))
	if len(r.lines) > historyDepth {
		r.lines = r.lines[len(r.lines)-historyDepth:]
	}
}

// Done marks the session as over, so the status line stops spinning.
func (r *renderer) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
}

// Render writes the current display to the specified writer: the recent
// event lines, followed by a status line with counts, loss and mean RTT.
func (r *renderer) Render(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(w, "probing %s\n", targetStyle.Styled(r.target))
	for _, line := range r.lines {
		fmt.Fprintln(w, line)
	}
	marker := "done."
	if !r.done {
		marker = r.spinner.Spinner()
	}
	loss := 0.0
	if r.sent > 0 {
		loss = float64(r.sent-r.received) * 100.0 / float64(r.sent)
	}
	var avg time.Duration
	if r.received > 0 {
		avg = r.rttsum / time.Duration(r.received)
	}
	fmt.Fprintf(w, "%s %d probes, %d replies, %.0f%% loss, avg rtt %v\n",
		marker, r.sent, r.received, loss, avg)
}
