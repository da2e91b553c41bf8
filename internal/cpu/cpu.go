// Package cpu isolates the one piece of genuinely architecture-specific
// state the rest of the kernel depends on: whether maskable interrupts are
// currently enabled on this core.
package cpu

import "sync/atomic"

var interruptsEnabled atomic.Bool

func init() {
	interruptsEnabled.Store(true)
}

// InterruptGate disables interrupt delivery on the calling core and returns
// a restore function that puts the prior state back. Callers that already
// hold a gate and re-enter must still call the returned restore once per
// Disable call; nesting composes because restore only writes the state this
// call observed on entry, not an unconditional enable.
type InterruptGate struct{}

// Disable turns off interrupt delivery and returns a function that restores
// whatever state was in effect before the call.
func (InterruptGate) Disable() (restore func()) {
	prev := interruptsEnabled.Swap(false)
	return func() {
		interruptsEnabled.Store(prev)
	}
}

// Enabled reports whether interrupts are currently enabled on this core.
func Enabled() bool {
	return interruptsEnabled.Load()
}
