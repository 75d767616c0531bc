package syncx

import "fmt"

// Lock is a binary semaphore that additionally tracks holder identity so
// AssertHeld/Deadlock diagnostics can name both call sites, as in the
// source's struct lock (holder + semaphore + debuginfo).
type Lock struct {
	sem    *Semaphore
	holder ctxID
	site   string
}

// NewLock returns a free (unlocked) lock.
func NewLock(name string) *Lock {
	return &Lock{sem: NewSemaphore(name, 1)}
}

// Acquire blocks the calling context (id) until the lock is free.
// Reacquiring by the same id that already holds it is a Deadlock.
func (l *Lock) Acquire(id ctxID) {
	if id != 0 && l.holder == id {
		panic(&Deadlock{Resource: "lock", FirstSite: l.site, SecondSite: callsite(1)})
	}
	l.sem.Down()
	l.holder = id
	l.site = callsite(1)
}

// Release gives up the lock. Panics if the caller is not the holder.
func (l *Lock) Release(id ctxID) {
	if id != 0 && l.holder != id {
		panic(fmt.Sprintf("lock release by non-holder (held by %d, released by %d)", l.holder, id))
	}
	l.holder = 0
	l.sem.Up()
}

// HeldByCurrentContext reports whether id holds the lock.
func (l *Lock) HeldByCurrentContext(id ctxID) bool {
	return l.holder == id
}

// AssertHeld panics if id does not hold the lock. Used the way the
// source's lock_held_by_current_thread assertions are used at entry to
// routines with a held-lock precondition.
func (l *Lock) AssertHeld(id ctxID) {
	if l.holder != id {
		panic("lock not held by calling context")
	}
}
