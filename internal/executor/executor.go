// Package executor implements a small cooperative task scheduler: tasks are
// polled once per run-queue turn, and a task that isn't finished relies on
// its own wake callback to get requeued rather than being polled again
// immediately.
package executor

import (
	"github.com/urchin-kernel/urchin/internal/ringbuf"
	"github.com/urchin-kernel/urchin/internal/spinlock"
)

// Future is a single step of cooperative work. Poll does whatever work it
// can make progress on right now and returns done == true once there is
// nothing left to do. If it returns false, it must arrange to call wake
// later — the executor will not poll it again until then.
type Future interface {
	Poll(wake func()) (done bool)
}

// FutureFunc adapts a plain function into a Future for one-shot steps that
// always complete on their first poll.
type FutureFunc func()

// Poll implements Future.
func (f FutureFunc) Poll(func()) bool {
	f()
	return true
}

type task struct {
	lock   spinlock.Spinlock
	future Future
	queue  *ringbuf.RingBuffer[*task]
}

func (t *task) wake() {
	if !t.queue.Put(t) {
		panic("executor: too many tasks queued")
	}
}

// Executor is a bounded-queue cooperative scheduler. The zero value is not
// usable; use New.
type Executor struct {
	tasks *ringbuf.RingBuffer[*task]
}

// New builds an empty Executor.
func New() *Executor {
	return &Executor{tasks: ringbuf.New[*task]()}
}

// Spawn schedules future for its first poll. A full run queue is fatal,
// matching the reference executor's "too many tasks queued" panic: the
// core has no scheduler-level backpressure to apply instead.
func (e *Executor) Spawn(future Future) {
	t := &task{future: future, queue: e.tasks}
	t.wake()
}

// Run drains the run queue until it is empty, polling each task once per
// turn. A task that calls wake synchronously from within its own Poll is
// requeued immediately and gets polled again before this Run call returns.
func (e *Executor) Run() {
	for {
		t, ok := e.tasks.Get()
		if !ok {
			return
		}

		t.lock.Lock()
		future := t.future
		t.lock.Unlock()
		if future == nil {
			continue
		}

		if done := future.Poll(t.wake); done {
			t.lock.Lock()
			t.future = nil
			t.lock.Unlock()
		}
	}
}
