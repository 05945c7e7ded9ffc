// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package ping

import (
	"fmt"
	"time"

	"github.com/siemens/pingstream/types"
)

// schedule decides, for a bounded run, how long the next wait for an event
// may block and when a still-unanswered probe must be declared lost instead
// of being awaited further.
type schedule struct {
	start    time.Time
	interval time.Duration
	count    int
	deadline time.Duration // overall run deadline; zero means none.
}

func newSchedule(start time.Time, interval time.Duration, count int, deadline time.Duration) *schedule {
	return &schedule{
		start:    start,
		interval: interval,
		count:    count,
		deadline: deadline,
	}
}

// next computes the bound for the next wait, given the current instant and
// how many real events have arrived so far. A negative wait means wait
// indefinitely. When stop is true the run must end now, appending the
// returned synthetic timeout event first, if any.
//
// Past the overall deadline a probe is granted one full interval beyond its
// nominal send time before it counts as lost: lastDueSeq is the highest
// sequence number whose send-and-wait window has fully elapsed, and the wait
// extends until start+(lastDueSeq+1)*interval rather than cutting off at the
// raw deadline instant. At most one timeout event is synthesized per run,
// labeled with lastDueSeq, and only if that probe has no real result yet.
func (s *schedule) next(now time.Time, received int) (wait time.Duration, synth types.EchoEvent, stop bool) {
	if s.deadline == 0 {
		return -1, nil, false
	}
	elapsed := now.Sub(s.start)
	if elapsed < s.deadline {
		return s.deadline - elapsed, nil, false
	}
	lastDueSeq := 0
	if ms := elapsed.Milliseconds(); ms > 0 {
		// the -1 keeps an elapsed time sitting exactly on a probe boundary
		// from counting the next, not-yet-sent probe as due.
		lastDueSeq = int((ms - 1) / s.interval.Milliseconds())
	}
	if lastDueSeq > s.count-1 {
		lastDueSeq = s.count - 1
	}
	graceDeadline := s.start.Add(time.Duration(lastDueSeq+1) * s.interval)
	if now.Before(graceDeadline) {
		return graceDeadline.Sub(now), nil, false
	}
	if received <= lastDueSeq {
		synth = types.Timeout{
			Line: fmt.Sprintf("Request timeout for icmp_seq %d", lastDueSeq),
		}
	}
	return 0, synth, true
}
