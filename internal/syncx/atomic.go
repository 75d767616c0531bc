package syncx

import "sync/atomic"

// Atomic32 wraps a sequentially consistent 32-bit integer with the
// exchange/fetch-add/compare-and-swap/load/store vocabulary §4.1 names,
// instead of spelling out sync/atomic calls at every use site.
type Atomic32 struct {
	v int32
}

func NewAtomic32(initial int32) *Atomic32 { return &Atomic32{v: initial} }

func (a *Atomic32) Load() int32 { return atomic.LoadInt32(&a.v) }

func (a *Atomic32) Store(val int32) { atomic.StoreInt32(&a.v, val) }

func (a *Atomic32) Exchange(val int32) int32 { return atomic.SwapInt32(&a.v, val) }

func (a *Atomic32) FetchAdd(delta int32) int32 {
	return atomic.AddInt32(&a.v, delta) - delta
}

func (a *Atomic32) CompareAndSwap(old, new int32) bool {
	return atomic.CompareAndSwapInt32(&a.v, old, new)
}

// Atomic64 is the 64-bit counterpart, used for the scheduler's wall clock.
type Atomic64 struct {
	v int64
}

func NewAtomic64(initial int64) *Atomic64 { return &Atomic64{v: initial} }

func (a *Atomic64) Load() int64 { return atomic.LoadInt64(&a.v) }

func (a *Atomic64) Store(val int64) { atomic.StoreInt64(&a.v, val) }

func (a *Atomic64) Exchange(val int64) int64 { return atomic.SwapInt64(&a.v, val) }

func (a *Atomic64) FetchAdd(delta int64) int64 {
	return atomic.AddInt64(&a.v, delta) - delta
}

func (a *Atomic64) CompareAndSwap(old, new int64) bool {
	return atomic.CompareAndSwapInt64(&a.v, old, new)
}
