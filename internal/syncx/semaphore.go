package syncx

// Semaphore is a counting semaphore with a FIFO waiter list, itself
// protected by an internal spinlock. Mirrors struct semaphore from the
// source: a value plus a waiter list guarded by a lock, not a condvar.
type Semaphore struct {
	lock    *Spinlock
	value   int
	waiters []chan struct{}
}

// NewSemaphore creates a semaphore with the given initial value.
func NewSemaphore(name string, value int) *Semaphore {
	return &Semaphore{lock: NewSpinlock(name), value: value}
}

// Down blocks until value > 0, then decrements it.
func (s *Semaphore) Down() {
	s.lock.Acquire(0)
	if s.value > 0 {
		s.value--
		s.lock.Release()
		return
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.lock.Release()
	<-ch
}

// TryDown is the non-blocking variant: it decrements and returns true only
// if value was already > 0.
func (s *Semaphore) TryDown() bool {
	s.lock.Acquire(0)
	defer s.lock.Release()
	if s.value > 0 {
		s.value--
		return true
	}
	return false
}

// Up wakes at most one waiter (FIFO), or increments value if none wait.
func (s *Semaphore) Up() {
	s.lock.Acquire(0)
	if len(s.waiters) > 0 {
		ch := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.lock.Release()
		close(ch)
		return
	}
	s.value++
	s.lock.Release()
}

// Value returns a snapshot of the semaphore's count. Diagnostic only.
func (s *Semaphore) Value() int {
	s.lock.Acquire(0)
	defer s.lock.Release()
	return s.value
}
