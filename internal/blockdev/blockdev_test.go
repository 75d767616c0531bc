package blockdev

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDeviceReadOfUnwrittenSectorIsZero(t *testing.T) {
	d := NewMemDevice(16)
	buf := make([]byte, SectorSize)
	require.NoError(t, d.ReadSector(3, buf))
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestMemDeviceWriteReadRoundTrip(t *testing.T) {
	d := NewMemDevice(16)
	want := make([]byte, SectorSize)
	for i := range want {
		want[i] = byte(i)
	}
	require.NoError(t, d.WriteSector(5, want))

	got := make([]byte, SectorSize)
	require.NoError(t, d.ReadSector(5, got))
	require.Equal(t, want, got)
}

func TestMemDeviceRejectsShortBuffer(t *testing.T) {
	d := NewMemDevice(4)
	require.ErrorIs(t, d.ReadSector(0, make([]byte, 10)), ErrShortSector)
	require.ErrorIs(t, d.WriteSector(0, make([]byte, 10)), ErrShortSector)
}

func TestFileDeviceExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := OpenFileDevice(path, 32)
	require.NoError(t, err)
	defer d.Close()

	_, err = OpenFileDevice(path, 32)
	require.Error(t, err)
}

func TestFileDeviceWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk2.img")
	d, err := OpenFileDevice(path, 32)
	require.NoError(t, err)
	defer d.Close()

	want := make([]byte, SectorSize)
	copy(want, []byte("hello sector"))
	require.NoError(t, d.WriteSector(2, want))

	got := make([]byte, SectorSize)
	require.NoError(t, d.ReadSector(2, got))
	require.Equal(t, want, got)
	require.EqualValues(t, 32, d.NumSectors())
}
