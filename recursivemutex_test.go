package overlayfs

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRecursiveMutexReentrant(t *testing.T) {
	var m RecursiveMutex

	done := make(chan struct{})
	go func() {
		defer close(done)
		const depth = 5
		for i := 0; i < depth; i++ {
			m.Acquire()
		}
		for i := 0; i < depth; i++ {
			m.Release()
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reentrant acquisition blocked on itself")
	}

	// Fully released: another goroutine can take it immediately.
	acquired := make(chan struct{})
	go func() {
		m.Acquire()
		defer m.Release()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("mutex not free after balanced acquire/release")
	}
}

func TestRecursiveMutexMutualExclusion(t *testing.T) {
	var m RecursiveMutex
	var inside int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Acquire()
				// Nested acquisition inside the critical section, as the
				// resolver does during traversal checks.
				m.Acquire()
				if n := atomic.AddInt32(&inside, 1); n != 1 {
					t.Errorf("%d goroutines inside critical section", n)
				}
				atomic.AddInt32(&inside, -1)
				m.Release()
				m.Release()
			}
		}()
	}
	wg.Wait()
}

func TestRecursiveMutexBlocksUntilFullRelease(t *testing.T) {
	var m RecursiveMutex

	m.Acquire()
	m.Acquire()

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		m.Acquire()
		acquired.Store(true)
		m.Release()
		close(done)
	}()

	// One release is not enough: the holder still has one acquisition.
	m.Release()
	time.Sleep(50 * time.Millisecond)
	if acquired.Load() {
		t.Fatal("waiter acquired before the holder fully released")
	}

	m.Release()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not unblocked by final release")
	}
	if !acquired.Load() {
		t.Fatal("waiter never acquired")
	}
}

// TestRecursiveMutexOwnerHandoff verifies a goroutine that wins the lock
// after blocking becomes the genuine owner, so its own nested acquisitions
// do not block.
func TestRecursiveMutexOwnerHandoff(t *testing.T) {
	var m RecursiveMutex

	m.Acquire()

	done := make(chan struct{})
	go func() {
		m.Acquire() // blocks until the first holder releases
		// Reentry after contended acquisition must not self-deadlock.
		m.Acquire()
		m.Release()
		m.Release()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	m.Release()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("contended winner blocked on its own reentry")
	}
}

func TestGoroutineIDStable(t *testing.T) {
	if goroutineID() != goroutineID() {
		t.Error("goroutine id changed between calls on the same goroutine")
	}

	other := make(chan int64)
	go func() { other <- goroutineID() }()
	if id := <-other; id == goroutineID() {
		t.Error("distinct goroutines reported the same id")
	}
}
