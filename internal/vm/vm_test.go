package vm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thomasltran/cfs-kernel-core/internal/blockdev"
	"github.com/thomasltran/cfs-kernel-core/internal/cache"
	"github.com/thomasltran/cfs-kernel-core/internal/fsinode"
)

func newTestTable(t *testing.T) *fsinode.Table {
	t.Helper()
	dev := blockdev.NewMemDevice(4096)
	c := cache.New(dev, nil, time.Hour)
	free := fsinode.NewFreeSectorMap(1, 4095)
	return fsinode.NewTable(c, free)
}

func TestLoadPageFromFile(t *testing.T) {
	tbl := newTestTable(t)
	ino, err := tbl.Create(false)
	require.NoError(t, err)
	_, err = ino.WriteAt(0, []byte("payload"))
	require.NoError(t, err)

	spt := NewTable()
	page := spt.Create(0x1000, ino, 0, 7, PageSize-7, false, StatusCode, PagedOut)

	ft := NewFrameTable(4)
	swap := NewSwapTable(blockdev.NewMemDevice(1024), 0)

	require.NoError(t, LoadPage(ft, swap, page))
	require.Equal(t, PagedIn, page.Location)
	require.Equal(t, []byte("payload"), page.frame.Data()[:7])
}

func TestZeroFillStackPage(t *testing.T) {
	spt := NewTable()
	page := spt.Create(0x7fff0000, nil, 0, 0, PageSize, true, StatusStack, PagedOut)

	ft := NewFrameTable(2)
	swap := NewSwapTable(blockdev.NewMemDevice(1024), 0)

	require.NoError(t, LoadPage(ft, swap, page))
	for _, b := range page.frame.Data() {
		require.Equal(t, byte(0), b)
	}
}

func TestEvictionSwapsOutWritablePage(t *testing.T) {
	spt := NewTable()
	pageA := spt.Create(0x2000, nil, 0, 0, PageSize, true, StatusDataBSS, PagedOut)
	pageB := spt.Create(0x3000, nil, 0, 0, PageSize, true, StatusDataBSS, PagedOut)

	ft := NewFrameTable(1) // force eviction on the second load
	swap := NewSwapTable(blockdev.NewMemDevice(1024), 0)

	require.NoError(t, LoadPage(ft, swap, pageA))
	copy(pageA.frame.Data(), []byte("dirty-data"))

	require.NoError(t, LoadPage(ft, swap, pageB))
	require.Equal(t, InSwap, pageA.Location)
	require.GreaterOrEqual(t, pageA.SwapIndex, 0)

	require.NoError(t, LoadPage(ft, swap, pageA))
	require.Equal(t, "dirty-data", string(pageA.frame.Data()[:10]))
}

func TestMappedFileTableRoundTrip(t *testing.T) {
	tbl := newTestTable(t)
	ino, err := tbl.Create(false)
	require.NoError(t, err)

	mft := NewMappedFileTable()
	id := mft.Mmap(ino, 0x400000, 4096)

	m := mft.Lookup(id)
	require.NotNil(t, m)
	require.Equal(t, int64(4096), m.Length)

	require.Equal(t, 0, mft.Munmap(id))
	require.Nil(t, mft.Lookup(id))
	require.Equal(t, -1, mft.Munmap(id))
}
