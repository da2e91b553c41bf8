package executor

import (
	"testing"

	"github.com/urchin-kernel/urchin/internal/clock"
)

func TestTimerFutureCompletesAfterDeadline(t *testing.T) {
	var now clock.Fixed = 1000
	future := NewTimerFuture(now, 500)

	woken := false
	wake := func() { woken = true }
	if done := future.Poll(wake); done {
		t.Fatal("timer should not be done before its deadline passes")
	}

	CheckExpired(clock.Fixed(1400)) // still before 1000+500
	// Each pending Poll installs its own waker; re-poll with the same one.
	if done := future.Poll(wake); done {
		t.Fatal("timer fired early")
	}

	CheckExpired(clock.Fixed(1600)) // now past the deadline
	if !woken {
		t.Fatal("expected the waker to be called on expiry")
	}
	if done := future.Poll(func() {}); !done {
		t.Fatal("expected the timer to report done after expiry")
	}
}

func TestTimerFutureOrderingAcrossMultipleTimers(t *testing.T) {
	var now clock.Fixed = 0
	short := NewTimerFuture(now, 100)
	long := NewTimerFuture(now, 1000)

	var shortWoken, longWoken bool
	short.Poll(func() { shortWoken = true })
	long.Poll(func() { longWoken = true })

	CheckExpired(clock.Fixed(200))
	if !shortWoken {
		t.Fatal("short timer should have expired")
	}
	if longWoken {
		t.Fatal("long timer should not have expired yet")
	}

	CheckExpired(clock.Fixed(2000))
	if !longWoken {
		t.Fatal("long timer should have expired on the second sweep")
	}
}

func TestExecutorDrivenByTimer(t *testing.T) {
	e := New()
	var now clock.Fixed = 0
	future := NewTimerFuture(now, 10)

	completed := false
	e.Spawn(futureAdapter{future: future, onDone: func() { completed = true }})
	e.Run()
	if completed {
		t.Fatal("should still be pending before the deadline")
	}

	CheckExpired(clock.Fixed(20))
	e.Run()
	if !completed {
		t.Fatal("expected the spawned task to complete once the timer expires and wakes it")
	}
}

type futureAdapter struct {
	future TimerFuture
	onDone func()
}

func (f futureAdapter) Poll(wake func()) bool {
	if f.future.Poll(wake) {
		f.onDone()
		return true
	}
	return false
}

type mutClock struct {
	now uint64
}

func (c *mutClock) NowNanos() uint64 { return c.now }

type firing struct {
	label string
	at    uint64
}

// tickerFuture re-arms itself with a fresh timer every time the previous
// one expires, recording each expiry. It never completes.
type tickerFuture struct {
	src    *mutClock
	period uint64
	label  string
	fired  *[]firing

	timer *TimerFuture
}

func (f *tickerFuture) Poll(wake func()) bool {
	for {
		if f.timer == nil {
			t := NewTimerFuture(f.src, f.period)
			f.timer = &t
		}
		if !f.timer.Poll(wake) {
			return false
		}
		*f.fired = append(*f.fired, firing{label: f.label, at: f.src.now})
		f.timer = nil
	}
}

// TestTimerLoopsFireAtMultiplesOfPeriod drives two looping timer tasks (5s
// and 8s periods) under a stepped clock and checks each fires at exact
// multiples of its own period.
func TestTimerLoopsFireAtMultiplesOfPeriod(t *testing.T) {
	clk := &mutClock{}
	e := New()
	var fired []firing

	e.Spawn(&tickerFuture{src: clk, period: 5, label: "T1", fired: &fired})
	e.Spawn(&tickerFuture{src: clk, period: 8, label: "T2", fired: &fired})
	e.Run()

	for now := uint64(1); now <= 40; now++ {
		clk.now = now
		CheckExpired(clk)
		e.Run()
	}

	var t1, t2 []uint64
	for _, f := range fired {
		switch f.label {
		case "T1":
			t1 = append(t1, f.at)
		case "T2":
			t2 = append(t2, f.at)
		}
	}

	wantT1 := []uint64{5, 10, 15, 20, 25, 30, 35, 40}
	wantT2 := []uint64{8, 16, 24, 32, 40}
	if len(t1) != len(wantT1) {
		t.Fatalf("T1 fired at %v, want %v", t1, wantT1)
	}
	for i := range wantT1 {
		if t1[i] != wantT1[i] {
			t.Fatalf("T1 fired at %v, want %v", t1, wantT1)
		}
	}
	if len(t2) != len(wantT2) {
		t.Fatalf("T2 fired at %v, want %v", t2, wantT2)
	}
	for i := range wantT2 {
		if t2[i] != wantT2[i] {
			t.Fatalf("T2 fired at %v, want %v", t2, wantT2)
		}
	}
}

// TestTimersExpiringSameTickWakeInRegistrationOrder checks the sweep's
// stability guarantee: two timers with the same deadline, registered in
// order, are woken in that order within a single sweep.
func TestTimersExpiringSameTickWakeInRegistrationOrder(t *testing.T) {
	clk := &mutClock{}
	first := NewTimerFuture(clk, 50)
	second := NewTimerFuture(clk, 50)

	var order []string
	first.Poll(func() { order = append(order, "first") })
	second.Poll(func() { order = append(order, "second") })

	clk.now = 50
	CheckExpired(clk)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("wake order = %v, want [first second]", order)
	}
}
