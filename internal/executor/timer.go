package executor

import (
	"sync/atomic"

	"github.com/urchin-kernel/urchin/internal/clock"
	"github.com/urchin-kernel/urchin/internal/ringbuf"
	"github.com/urchin-kernel/urchin/internal/spinlock"
)

var registeredTimers = ringbuf.New[*timerState]()

type timerState struct {
	completed atomic.Bool
	expireAt  uint64
	waker     spinlock.Guarded[func()]
}

// TimerFuture completes once a CheckExpired sweep observes the clock at or
// past the deadline computed at construction time.
type TimerFuture struct {
	state *timerState
}

// NewTimerFuture builds a TimerFuture that expires durationNanos from now,
// as measured by src, and registers it for the next CheckExpired sweep.
func NewTimerFuture(src clock.Source, durationNanos uint64) TimerFuture {
	state := &timerState{expireAt: src.NowNanos() + durationNanos}
	registeredTimers.Put(state)
	return TimerFuture{state: state}
}

// Poll implements Future.
func (f TimerFuture) Poll(wake func()) bool {
	if f.state.completed.Load() {
		return true
	}
	f.state.waker.With(func(w *func()) {
		*w = wake
	})
	return false
}

// CheckExpired rotates the registered-timer queue once: any timer whose
// deadline has been reached is marked completed, its waker is taken and
// cleared, and then that waker is called; everything else is pushed back
// for the next sweep. Intended
// to be called from the timer IRQ handler.
func CheckExpired(src clock.Source) {
	now := src.NowNanos()

	for n := registeredTimers.Len(); n > 0; n-- {
		state, ok := registeredTimers.Get()
		if !ok {
			return
		}

		if now >= state.expireAt {
			state.completed.Store(true)
			var wake func()
			state.waker.With(func(w *func()) {
				wake = *w
				*w = nil
			})
			if wake != nil {
				wake()
			}
		} else {
			registeredTimers.Put(state)
		}
	}
}
