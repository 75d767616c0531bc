package syncx

// CondVar is a Mesa-style condition variable: Wait atomically releases the
// caller's held lock and blocks, reacquiring the lock before returning.
// Signal wakes one waiter, Broadcast wakes all. Create one with
// NewCondVar: the zero value has no internal spinlock and panics on use.
type CondVar struct {
	lock    *Spinlock
	waiters []chan struct{}
}

// NewCondVar returns a ready-to-use condition variable.
func NewCondVar(name string) *CondVar {
	return &CondVar{lock: NewSpinlock(name + ".cv")}
}

// Wait releases held (owned by id) and blocks the caller until woken, then
// reacquires held before returning. Mesa semantics: the waker does not
// hand off the lock, so callers must re-check their predicate in a loop.
func (c *CondVar) Wait(held *Lock, id ctxID) {
	ch := make(chan struct{})
	c.lock.Acquire(0)
	c.waiters = append(c.waiters, ch)
	c.lock.Release()

	held.Release(id)
	<-ch
	held.Acquire(id)
}

// Signal wakes one waiter, if any, in FIFO order.
func (c *CondVar) Signal() {
	c.lock.Acquire(0)
	if len(c.waiters) == 0 {
		c.lock.Release()
		return
	}
	ch := c.waiters[0]
	c.waiters = c.waiters[1:]
	c.lock.Release()
	close(ch)
}

// Broadcast wakes every current waiter.
func (c *CondVar) Broadcast() {
	c.lock.Acquire(0)
	ws := c.waiters
	c.waiters = nil
	c.lock.Release()
	for _, ch := range ws {
		close(ch)
	}
}
