// Package syncx provides the synchronization primitives component: a
// non-reentrant spinlock, a counting semaphore, a binary-semaphore-backed
// lock, and a Mesa-style condition variable, all built on sequentially
// consistent atomics.
package syncx

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// Deadlock is raised when a context tries to reacquire a lock it already
// holds. Non-reentrant locking is a hard invariant across this package.
type Deadlock struct {
	Resource   string
	FirstSite  string
	SecondSite string
}

func (d *Deadlock) Error() string {
	return fmt.Sprintf("deadlock on %s: held since %s, reacquired at %s", d.Resource, d.FirstSite, d.SecondSite)
}

func callsite(skip int) string {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "?"
	}
	fn := runtime.FuncForPC(pc)
	name := "?"
	if fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s (%s:%d)", name, file, line)
}

// Spinlock is busy-wait mutual exclusion meant for short critical sections,
// including interrupt context. It never calls into the scheduler.
type Spinlock struct {
	name   string
	held   uint32
	holder uint64 // goroutine-local identity substitute; see Acquire
	site   string
}

// NewSpinlock names the lock for diagnostics; the name shows up in
// Deadlock errors and nowhere else.
func NewSpinlock(name string) *Spinlock {
	return &Spinlock{name: name}
}

// ctxID identifies "the current context" the way get_cpu()/current thread
// would on real hardware. Go has no such notion, so callers hand in their
// own stable identity (a task id, a simulated CPU id); id 0 is reserved
// for "unidentified" and skips self-reacquire detection.
type ctxID = uint64

// Acquire busy-waits until the lock is free, then takes it. id identifies
// the calling context for deadlock detection; pass 0 if the caller has no
// stable identity to offer (detection is then skipped).
func (s *Spinlock) Acquire(id ctxID) {
	for {
		if atomic.CompareAndSwapUint32(&s.held, 0, 1) {
			atomic.StoreUint64(&s.holder, id)
			s.site = callsite(1)
			return
		}
		if id != 0 && atomic.LoadUint32(&s.held) == 1 && atomic.LoadUint64(&s.holder) == id {
			panic(&Deadlock{Resource: s.name, FirstSite: s.site, SecondSite: callsite(1)})
		}
		runtime.Gosched()
	}
}

// TryAcquire attempts the non-blocking variant.
func (s *Spinlock) TryAcquire(id ctxID) bool {
	if atomic.CompareAndSwapUint32(&s.held, 0, 1) {
		atomic.StoreUint64(&s.holder, id)
		s.site = callsite(1)
		return true
	}
	return false
}

// Release gives up the lock. Panics if the lock was not held — releasing
// an unheld spinlock is an invariant violation, not a recoverable error.
func (s *Spinlock) Release() {
	if !atomic.CompareAndSwapUint32(&s.held, 1, 0) {
		panic(fmt.Sprintf("spinlock %q: release without acquire", s.name))
	}
	atomic.StoreUint64(&s.holder, 0)
}

// HeldByCurrentContext reports whether id currently holds the lock.
func (s *Spinlock) HeldByCurrentContext(id ctxID) bool {
	return atomic.LoadUint32(&s.held) == 1 && atomic.LoadUint64(&s.holder) == id
}
