package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thomasltran/cfs-kernel-core/internal/blockdev"
)

func TestMarkDirtyReleaseGetReadRoundTrip(t *testing.T) {
	dev := blockdev.NewMemDevice(128)
	c := New(dev, nil, time.Hour)

	h := c.Get(5, true)
	buf := c.ReadData(h)
	copy(buf, []byte("hello"))
	c.MarkDirty(h)
	c.Release(h)

	h2 := c.Get(5, false)
	got := c.ReadData(h2)
	require.Equal(t, byte('h'), got[0])
	c.Release(h2)
}

func TestCacheUniquenessUnderConcurrentMiss(t *testing.T) {
	dev := blockdev.NewMemDevice(128)
	c := New(dev, nil, time.Hour)

	const n = 16
	var wg sync.WaitGroup
	handles := make([]*Handle, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = c.Get(7, false)
		}(i)
	}
	wg.Wait()

	seen := map[*slot]bool{}
	for _, h := range handles {
		seen[h.s] = true
	}
	require.Len(t, seen, 1, "all concurrent misses on sector 7 must resolve to one slot")

	for _, h := range handles {
		c.Release(h)
	}
}

func Test64ConcurrentHoldersDistinctSectors(t *testing.T) {
	dev := blockdev.NewMemDevice(NumSlots)
	c := New(dev, nil, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < NumSlots; i++ {
		wg.Add(1)
		go func(sector uint32) {
			defer wg.Done()
			h := c.Get(sector, true)
			c.MarkDirty(h)
			c.Release(h)
		}(uint32(i))
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("64 concurrent distinct-sector holders deadlocked")
	}
}

func TestEvictionUnderPressure(t *testing.T) {
	dev := blockdev.NewMemDevice(2000)
	c := New(dev, nil, time.Hour)

	for i := uint32(0); i < 1024; i++ {
		h := c.Get(i, true)
		buf := c.ReadData(h)
		buf[0] = byte(i)
		c.MarkDirty(h)
		c.Release(h)
	}

	for i := uint32(0); i < 1024; i++ {
		h := c.Get(i, false)
		got := c.ReadData(h)
		require.Equal(t, byte(i), got[0])
		c.Release(h)
	}
}
