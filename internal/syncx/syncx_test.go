package syncx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpinlockDeadlockOnSelfReacquire(t *testing.T) {
	sl := NewSpinlock("test")
	sl.Acquire(1)
	defer sl.Release()

	require.Panics(t, func() {
		sl.Acquire(1)
	})
}

func TestSpinlockReleaseWithoutAcquirePanics(t *testing.T) {
	sl := NewSpinlock("test")
	require.Panics(t, func() {
		sl.Release()
	})
}

func TestSemaphoreFIFOWakeup(t *testing.T) {
	sem := NewSemaphore("test", 0)
	order := make(chan int, 2)

	go func() {
		sem.Down()
		order <- 1
	}()
	time.Sleep(5 * time.Millisecond) // ensure first waiter enqueues before second
	go func() {
		sem.Down()
		order <- 2
	}()
	time.Sleep(5 * time.Millisecond)

	sem.Up()
	require.Equal(t, 1, <-order)
	sem.Up()
	require.Equal(t, 2, <-order)
}

func TestLockTracksHolderAndRejectsDoubleRelease(t *testing.T) {
	l := NewLock("test")
	l.Acquire(1)
	require.True(t, l.HeldByCurrentContext(1))
	l.Release(1)

	require.Panics(t, func() {
		l.Release(1)
	})
}

func TestCondVarSignalWakesOneWaiter(t *testing.T) {
	l := NewLock("test")
	cv := NewCondVar("test")
	ready := false

	done := make(chan struct{})
	go func() {
		l.Acquire(2)
		for !ready {
			cv.Wait(l, 2)
		}
		l.Release(2)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	l.Acquire(1)
	ready = true
	cv.Signal()
	l.Release(1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestAtomic32FetchAdd(t *testing.T) {
	a := NewAtomic32(5)
	old := a.FetchAdd(3)
	require.EqualValues(t, 5, old)
	require.EqualValues(t, 8, a.Load())
}
