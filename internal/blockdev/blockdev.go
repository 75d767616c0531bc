// Package blockdev implements the sector-addressed block device that
// §6 names as an external collaborator: blocking ReadSector/WriteSector
// over 512-byte sectors. It is the concrete thing the cache and inode
// layers actually call, even though its own internals are out of scope.
package blockdev

import (
	"errors"
	"os"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
)

// SectorSize is the device's fixed sector size, matching the inode
// header's one-sector-per-inode layout in §4.4.2.
const SectorSize = 512

// ErrShortSector is returned when a caller-provided buffer doesn't match
// SectorSize.
var ErrShortSector = errors.New("blockdev: buffer must be exactly one sector")

// Device is the contract the cache and inode layers depend on.
type Device interface {
	ReadSector(sector uint32, buf []byte) error
	WriteSector(sector uint32, buf []byte) error
	NumSectors() uint32
}

// MemDevice is an in-memory device for tests that don't want real disk
// I/O; it still goes through the same Device contract.
type MemDevice struct {
	mu      sync.Mutex
	sectors map[uint32][]byte
	n       uint32
}

// NewMemDevice returns an in-memory device sized for n sectors.
func NewMemDevice(n uint32) *MemDevice {
	return &MemDevice{sectors: make(map[uint32][]byte), n: n}
}

func (d *MemDevice) ReadSector(sector uint32, buf []byte) error {
	if len(buf) != SectorSize {
		return ErrShortSector
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if data, ok := d.sectors[sector]; ok {
		copy(buf, data)
	} else {
		for i := range buf {
			buf[i] = 0
		}
	}
	return nil
}

func (d *MemDevice) WriteSector(sector uint32, buf []byte) error {
	if len(buf) != SectorSize {
		return ErrShortSector
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, SectorSize)
	copy(cp, buf)
	d.sectors[sector] = cp
	return nil
}

func (d *MemDevice) NumSectors() uint32 { return d.n }

// FileDevice backs a device with a single on-disk file, guarded by an
// inter-process flock so only one process at a time can open the
// persisted image, matching §6's "only the block device persists"
// contract and the kind of exclusivity a real device node would give you.
type FileDevice struct {
	mu   sync.Mutex
	f    *os.File
	flk  *flock.Flock
	n    uint32
	retr *backoff.ExponentialBackOff
}

// OpenFileDevice opens (creating if absent) a file of n sectors at path,
// taking an exclusive flock for the device's lifetime.
func OpenFileDevice(path string, n uint32) (*FileDevice, error) {
	flk := flock.New(path + ".lock")
	locked, err := flk.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, errors.New("blockdev: device already locked by another process")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		flk.Unlock()
		return nil, err
	}
	if err := f.Truncate(int64(n) * SectorSize); err != nil {
		f.Close()
		flk.Unlock()
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // retried operations are bounded by attempt count, not wall time

	return &FileDevice{f: f, flk: flk, n: n, retr: b}, nil
}

func (d *FileDevice) ReadSector(sector uint32, buf []byte) error {
	if len(buf) != SectorSize {
		return ErrShortSector
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return backoff.Retry(func() error {
		_, err := d.f.ReadAt(buf, int64(sector)*SectorSize)
		return err
	}, withMaxRetries(d.retr, 3))
}

func (d *FileDevice) WriteSector(sector uint32, buf []byte) error {
	if len(buf) != SectorSize {
		return ErrShortSector
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return backoff.Retry(func() error {
		_, err := d.f.WriteAt(buf, int64(sector)*SectorSize)
		return err
	}, withMaxRetries(d.retr, 3))
}

func (d *FileDevice) NumSectors() uint32 { return d.n }

// Close flushes and releases the device's lock.
func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.f.Sync()
	d.f.Close()
	d.flk.Unlock()
	return err
}

func withMaxRetries(b backoff.BackOff, max uint64) backoff.BackOff {
	return backoff.WithMaxRetries(b, max)
}
