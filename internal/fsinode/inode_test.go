package fsinode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thomasltran/cfs-kernel-core/internal/blockdev"
	"github.com/thomasltran/cfs-kernel-core/internal/cache"
)

func newTestTable(t *testing.T, nsectors uint32) *Table {
	t.Helper()
	dev := blockdev.NewMemDevice(nsectors)
	c := cache.New(dev, nil, time.Hour)
	free := NewFreeSectorMap(1, nsectors-1)
	return NewTable(c, free)
}

func TestRoundTrip(t *testing.T) {
	tbl := newTestTable(t, 4096)
	ino, err := tbl.Create(false)
	require.NoError(t, err)

	payload := []byte("hello, sparse filesystem")
	n, err := ino.WriteAt(100, payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	n, err = ino.ReadAt(100, buf)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestSparseZeroRead(t *testing.T) {
	tbl := newTestTable(t, 4096)
	ino, err := tbl.Create(false)
	require.NoError(t, err)

	_, err = ino.WriteAt(10*1024*1024, []byte("X"))
	require.NoError(t, err)
	require.Equal(t, int64(10*1024*1024+1), ino.Length())

	zeros := make([]byte, 4096)
	n, err := ino.ReadAt(0, zeros)
	require.NoError(t, err)
	require.Equal(t, len(zeros), n)
	for _, b := range zeros {
		require.Equal(t, byte(0), b)
	}

	one := make([]byte, 1)
	n, err = ino.ReadAt(10*1024*1024, one)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, byte('X'), one[0])
}

func TestReadAtEOFReturnsZeroBytes(t *testing.T) {
	tbl := newTestTable(t, 4096)
	ino, err := tbl.Create(false)
	require.NoError(t, err)
	_, err = ino.WriteAt(0, []byte("abc"))
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := ino.ReadAt(3, buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestWriteExtendsLengthToMax(t *testing.T) {
	tbl := newTestTable(t, 4096)
	ino, err := tbl.Create(false)
	require.NoError(t, err)
	_, err = ino.WriteAt(0, make([]byte, 1000))
	require.NoError(t, err)
	require.EqualValues(t, 1000, ino.Length())

	_, err = ino.WriteAt(5000, []byte("x"))
	require.NoError(t, err)
	require.EqualValues(t, 5001, ino.Length())
}

func TestDenyWriteRefusesWrite(t *testing.T) {
	tbl := newTestTable(t, 4096)
	ino, err := tbl.Create(false)
	require.NoError(t, err)
	ino.DenyWrite()

	n, err := ino.WriteAt(0, []byte("nope"))
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, ErrWriteDenied)
}

func TestOpenDedupesSameSector(t *testing.T) {
	tbl := newTestTable(t, 4096)
	ino, err := tbl.Create(false)
	require.NoError(t, err)

	again, err := tbl.Open(ino.Sector)
	require.NoError(t, err)
	require.Same(t, ino, again)
}

func TestRemoveFreesOnLastClose(t *testing.T) {
	tbl := newTestTable(t, 4096)
	ino, err := tbl.Create(false)
	require.NoError(t, err)
	_, err = ino.WriteAt(0, []byte("data"))
	require.NoError(t, err)

	again, err := tbl.Open(ino.Sector)
	require.NoError(t, err)

	ino.Remove()
	require.NoError(t, tbl.Close(ino))   // one remaining opener, not freed yet
	require.NoError(t, tbl.Close(again)) // last closer frees it

	_, stillOpen := tbl.open[ino.Sector]
	require.False(t, stillOpen)
}
