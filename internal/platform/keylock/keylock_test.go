package keylock

import (
	"sync"
	"testing"
	"time"
)

func TestLock_MutualExclusionSameKey(t *testing.T) {
	r := NewRegistry()
	const goroutines = 50

	var counter, max int
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := r.Lock("user:42")
			defer unlock()
			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if max != 1 {
		t.Errorf("critical section concurrency = %d, want 1", max)
	}
}

func TestLock_DifferentKeysDoNotContend(t *testing.T) {
	r := NewRegistry()

	unlockA := r.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := r.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestLock_EntriesRemovedAfterLastRelease(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := r.Lock("shared")
			unlock()
		}()
	}
	wg.Wait()

	if n := r.Len(); n != 0 {
		t.Errorf("registry holds %d entries after all releases, want 0", n)
	}
}

func TestLock_WaiterSurvivesHolderRelease(t *testing.T) {
	// The holder releasing must not delete the entry out from under a
	// goroutine already waiting on it.
	r := NewRegistry()
	unlock := r.Lock("k")

	acquired := make(chan struct{})
	go func() {
		u := r.Lock("k")
		close(acquired)
		u()
	}()

	// Give the second goroutine time to start waiting.
	time.Sleep(10 * time.Millisecond)
	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}
