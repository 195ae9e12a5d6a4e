package overlayfs

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// RecursiveMutex is a reentrant mutual-exclusion lock: the goroutine that
// holds it may acquire it again without blocking, while other goroutines
// block until the holder's acquisitions are fully released.
//
// It is composed of a reentrancy counter, an owner identity that is
// meaningful only while the counter is positive, and one underlying
// non-reentrant mutex held by at most one goroutine at any instant. The
// counter is zero exactly when the underlying mutex is free.
//
// The zero value is an unlocked mutex. A RecursiveMutex must not be copied
// after first use.
type RecursiveMutex struct {
	count int32
	owner atomic.Int64 // goroutine id, 0 while free
	mu    sync.Mutex
}

// Acquire locks the mutex. If the calling goroutine already holds it, the
// call returns immediately without blocking; otherwise it blocks until the
// holder has released every acquisition and the counter is back to zero.
//
// Ownership is rewritten on every transition into genuine ownership of the
// underlying mutex, whether uncontended or won after blocking, so a later
// reentrant acquisition by the new holder never blocks on itself.
func (m *RecursiveMutex) Acquire() {
	g := goroutineID()
	if m.owner.Load() == g {
		// Reentrant acquisition; only the holder reaches this branch, so
		// the counter is already positive.
		atomic.AddInt32(&m.count, 1)
		return
	}
	m.mu.Lock()
	m.owner.Store(g)
	atomic.AddInt32(&m.count, 1)
}

// Release unlocks one acquisition of the mutex, clearing the owner and
// releasing the underlying mutex when the last one is undone. Calling
// Release without a matching Acquire is a caller error and leaves the mutex
// in an undefined state; it is not detected.
func (m *RecursiveMutex) Release() {
	if atomic.AddInt32(&m.count, -1) == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID returns the runtime id of the calling goroutine, parsed from
// the goroutine's stack header.
func goroutineID() int64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	// The header has the form "goroutine 123 [running]:".
	s := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	id, _ := strconv.ParseInt(string(s), 10, 64)
	return id
}
