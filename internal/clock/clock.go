// Package clock exposes the monotonic time source the executor's timer
// futures are built on, decoupled from any specific timestamp-counter or
// platform clock implementation.
package clock

// Source produces a monotonically nondecreasing nanosecond count. Boot code
// wires a concrete implementation (kvmclock, TSC-derived, or the hosted
// wall-clock backend) in; the executor and timers depend only on this
// interface.
type Source interface {
	NowNanos() uint64
}

// Fixed is a Source with an explicit value, useful for tests that need
// deterministic timer expiry.
type Fixed uint64

// NowNanos implements Source.
func (f Fixed) NowNanos() uint64 { return uint64(f) }
