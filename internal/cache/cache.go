// Package cache implements the fixed-size, LRU-evicted, reader/writer
// locked block cache from spec §4.4.1, backed by internal/blockdev.
package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thomasltran/cfs-kernel-core/internal/blockdev"
	"github.com/thomasltran/cfs-kernel-core/internal/syncx"
)

// EmptySector is the sentinel identifying an unused slot and the
// reserved "uninitialised" sector id from §7's error taxonomy. Accessing
// it as a real sector is a Stale-sector invariant violation.
const EmptySector uint32 = 0xFFFFFFFF

// NumSlots is the cache's fixed slot count.
const NumSlots = 64

// Slot is one fixed cache buffer plus its metadata. Exactly one of
// {lent out, sitting in the eviction list} holds at any time it carries a
// real sector id (the cache-uniqueness invariant).
type slot struct {
	index int
	mu    *syncx.Lock
	rCV   *syncx.CondVar
	wCV   *syncx.CondVar

	sector    uint32
	valid     bool
	dirty     bool
	readers   int
	exclusive bool
	data      [blockdev.SectorSize]byte
}

// Handle is a lease on a cache slot, returned by Get and consumed by
// Release/ReadData/ZeroData/MarkDirty.
type Handle struct {
	s         *slot
	exclusive bool
}

type pendingInstall struct{ done chan struct{} }

// Cache is the fixed 64-slot array plus its global lock, eviction list,
// and pending-install table. The pending-install table is this
// implementation's resolution of §4.4.1's documented Open Question:
// concurrent misses on the same sector share one install instead of
// racing to install duplicates.
type Cache struct {
	dev        blockdev.Device
	log        *logrus.Logger
	flushEvery time.Duration

	global  *syncx.Spinlock
	slots   [NumSlots]*slot
	evict   []int // slot indices, LRU order (oldest at front)
	pending map[uint32]*pendingInstall
}

// New builds a cache of NumSlots slots over dev, all initially empty and
// eviction-eligible.
func New(dev blockdev.Device, log *logrus.Logger, flushEvery time.Duration) *Cache {
	c := &Cache{
		dev:        dev,
		log:        log,
		flushEvery: flushEvery,
		global:     syncx.NewSpinlock("cache"),
		pending:    make(map[uint32]*pendingInstall),
	}
	for i := range c.slots {
		c.slots[i] = &slot{
			index:  i,
			mu:     syncx.NewLock("cache-slot"),
			sector: EmptySector,
		}
		c.slots[i].rCV = syncx.NewCondVar("cache-slot-r")
		c.slots[i].wCV = syncx.NewCondVar("cache-slot-w")
		c.evict = append(c.evict, i)
	}
	return c
}

func (c *Cache) removeFromEvict(idx int) {
	for i, v := range c.evict {
		if v == idx {
			c.evict = append(c.evict[:i], c.evict[i+1:]...)
			return
		}
	}
}

// findOrInstall implements the two-phase algorithm: a linear phase-1 hit
// search under the global lock, and a phase-2 eviction-list scan that
// writes back a dirty victim before reassigning its identity. If no slot
// is evictable, it sleeps briefly and retries, per §4.4.1.
func (c *Cache) findOrInstall(sector uint32) *slot {
	const ctx = 0 // lock identity for the calling goroutine; see syncx docs

	for {
		c.global.Acquire(ctx)

		for _, s := range c.slots {
			if s.sector == sector {
				c.removeFromEvict(s.index)
				c.global.Release()
				return s
			}
		}

		if p, ok := c.pending[sector]; ok {
			c.global.Release()
			<-p.done
			continue
		}

		var victim *slot
		for _, idx := range c.evict {
			s := c.slots[idx]
			if !s.exclusive && s.readers == 0 {
				victim = s
				break
			}
		}
		if victim == nil {
			c.global.Release()
			time.Sleep(10 * (time.Second / 100)) // "sleep briefly (10 ticks)"
			continue
		}

		c.removeFromEvict(victim.index)
		pend := &pendingInstall{done: make(chan struct{})}
		c.pending[sector] = pend
		c.global.Release()

		if victim.dirty {
			if err := c.dev.WriteSector(victim.sector, victim.data[:]); err != nil && c.log != nil {
				c.log.WithError(err).WithField("sector", victim.sector).Warn("cache: eviction writeback failed")
			}
		}

		victim.mu.Acquire(ctx)
		victim.sector = sector
		victim.valid = false
		victim.dirty = false
		victim.mu.Release(ctx)

		c.global.Acquire(ctx)
		delete(c.pending, sector)
		c.global.Release()
		close(pend.done)

		return victim
	}
}

// Get returns a handle to the slot caching sector, per §4.4.1's access
// contract: exclusive waits for no readers and no other writer; shared
// waits only for no writer.
func (c *Cache) Get(sector uint32, exclusive bool) *Handle {
	if sector == EmptySector {
		panic("cache: access to reserved sentinel sector")
	}
	const ctx = 0
	s := c.findOrInstall(sector)

	s.mu.Acquire(ctx)
	if exclusive {
		for s.exclusive || s.readers > 0 {
			s.wCV.Wait(s.mu, ctx)
		}
		s.exclusive = true
	} else {
		for s.exclusive {
			s.rCV.Wait(s.mu, ctx)
		}
		s.readers++
	}
	s.mu.Release(ctx)

	return &Handle{s: s, exclusive: exclusive}
}

// Release reverses Get, returning the slot to the eviction list once it
// is unlent, and waking waiters.
func (c *Cache) Release(h *Handle) {
	const ctx = 0
	s := h.s

	s.mu.Acquire(ctx)
	if h.exclusive {
		s.exclusive = false
	} else {
		s.readers--
	}
	unlent := !s.exclusive && s.readers == 0
	s.mu.Release(ctx)

	if unlent {
		c.global.Acquire(ctx)
		c.evict = append(c.evict, s.index)
		c.global.Release()
	}
	s.wCV.Broadcast()
	s.rCV.Broadcast()
}

// ReadData ensures the slot's buffer holds the sector's real contents
// (issuing a device read on first touch) and returns it.
func (c *Cache) ReadData(h *Handle) []byte {
	const ctx = 0
	s := h.s
	s.mu.Acquire(ctx)
	defer s.mu.Release(ctx)
	if !s.valid {
		if err := c.dev.ReadSector(s.sector, s.data[:]); err != nil {
			panic(err)
		}
		s.valid = true
	}
	return s.data[:]
}

// ZeroData returns a zero-filled buffer on first touch, without issuing a
// device read — for writes that are about to overwrite the whole sector.
func (c *Cache) ZeroData(h *Handle) []byte {
	const ctx = 0
	s := h.s
	s.mu.Acquire(ctx)
	defer s.mu.Release(ctx)
	if !s.valid {
		for i := range s.data {
			s.data[i] = 0
		}
		s.valid = true
	}
	return s.data[:]
}

// MarkDirty flags the slot for writeback, by the flush daemon or the next
// eviction.
func (c *Cache) MarkDirty(h *Handle) {
	const ctx = 0
	s := h.s
	s.mu.Acquire(ctx)
	s.dirty = true
	s.mu.Release(ctx)
}

// RunFlushDaemon wakes every c.flushEvery and writes back every dirty
// slot, clearing the dirty flag under the per-slot lock. It never evicts
// — only cleans — and stops when ctx is cancelled.
func (c *Cache) RunFlushDaemon(ctx context.Context) {
	const lockCtx = 0
	ticker := time.NewTicker(c.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range c.slots {
				s.mu.Acquire(lockCtx)
				if s.dirty {
					if err := c.dev.WriteSector(s.sector, s.data[:]); err != nil && c.log != nil {
						c.log.WithError(err).WithField("sector", s.sector).Warn("cache: flush daemon writeback failed")
					} else {
						s.dirty = false
					}
				}
				s.mu.Release(lockCtx)
			}
		}
	}
}
