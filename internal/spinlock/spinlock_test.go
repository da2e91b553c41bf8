package spinlock

import (
	"sync"
	"testing"
)

func TestSpinlockMutualExclusion(t *testing.T) {
	var lock Spinlock
	counter := 0

	var wg sync.WaitGroup
	const goroutines = 64
	const increments = 1000

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				lock.Lock()
				counter++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*increments {
		t.Fatalf("counter = %d, want %d", counter, goroutines*increments)
	}
}

func TestSpinlockTryLock(t *testing.T) {
	var lock Spinlock

	if !lock.TryLock() {
		t.Fatal("expected first TryLock to succeed")
	}
	if lock.TryLock() {
		t.Fatal("expected second TryLock to fail while held")
	}
	lock.Unlock()
	if !lock.TryLock() {
		t.Fatal("expected TryLock to succeed after Unlock")
	}
	lock.Unlock()
}

func TestGuardedWith(t *testing.T) {
	g := NewGuarded(0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.With(func(v *int) { *v++ })
		}()
	}
	wg.Wait()

	var final int
	g.With(func(v *int) { final = *v })
	if final != 100 {
		t.Fatalf("final = %d, want 100", final)
	}
}
