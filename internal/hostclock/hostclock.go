// Package hostclock implements clock.Source over the host's wall clock, for
// the hosted demo binary where there is no kvmclock or TSC to read.
package hostclock

import "time"

// Source reports time.Now() as a monotonic nanosecond count. Go's
// monotonic reading (time.Now() carries one internally) is what makes this
// safe to use for deadline math even across a host NTP step.
type Source struct {
	start time.Time
}

// New returns a Source anchored at the current instant.
func New() Source {
	return Source{start: time.Now()}
}

// NowNanos implements clock.Source.
func (s Source) NowNanos() uint64 {
	return uint64(time.Since(s.start).Nanoseconds())
}
