// Package fsinode implements the multi-level indexed sparse inode of
// spec §4.4.2, layered on internal/cache.
package fsinode

import (
	"encoding/binary"

	"github.com/thomasltran/cfs-kernel-core/internal/blockdev"
)

// NumDirect is the inode header's direct-pointer count.
const NumDirect = 123

// PointersPerBlock is how many sector pointers fit in one index block
// (512 bytes / 4 bytes per uint32).
const PointersPerBlock = blockdev.SectorSize / 4

// Magic identifies a valid inode header.
const Magic uint32 = 0x494e4f44 // "INOD"

// GapSector is the sentinel meaning "hole; reads zero, no storage".
const GapSector uint32 = 0xFFFFFFFE

// ReservedSector is the "uninitialised" sentinel; touching it is a
// Stale-sector invariant violation (§7).
const ReservedSector uint32 = 0xFFFFFFFF

// OnDiskInode is the exact 512-byte on-disk layout from §4.4.2.
type OnDiskInode struct {
	IsDir          bool
	Length         int32
	Direct         [NumDirect]uint32
	Indirect       uint32
	DoublyIndirect uint32
}

// Encode serializes d into exactly one sector.
func (d *OnDiskInode) Encode() []byte {
	buf := make([]byte, blockdev.SectorSize)
	if d.IsDir {
		buf[0] = 1
	}
	// buf[1:4] reserved, left zero
	binary.LittleEndian.PutUint32(buf[4:8], uint32(d.Length))
	binary.LittleEndian.PutUint32(buf[8:12], Magic)
	off := 12
	for i := 0; i < NumDirect; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], d.Direct[i])
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], d.Indirect)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], d.DoublyIndirect)
	return buf
}

// DecodeOnDiskInode parses a 512-byte sector into an OnDiskInode.
func DecodeOnDiskInode(buf []byte) (*OnDiskInode, error) {
	if len(buf) != blockdev.SectorSize {
		return nil, errShortBuffer
	}
	magic := binary.LittleEndian.Uint32(buf[8:12])
	if magic != Magic {
		return nil, errBadMagic
	}
	d := &OnDiskInode{
		IsDir:  buf[0] != 0,
		Length: int32(binary.LittleEndian.Uint32(buf[4:8])),
	}
	off := 12
	for i := 0; i < NumDirect; i++ {
		d.Direct[i] = binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
	}
	d.Indirect = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	d.DoublyIndirect = binary.LittleEndian.Uint32(buf[off : off+4])
	return d, nil
}

// NewOnDiskInode returns a freshly-formatted, fully sparse inode header.
func NewOnDiskInode(isDir bool) *OnDiskInode {
	d := &OnDiskInode{IsDir: isDir}
	for i := range d.Direct {
		d.Direct[i] = GapSector
	}
	d.Indirect = GapSector
	d.DoublyIndirect = GapSector
	return d
}

// indexBlock is a decoded 128-entry index block (single- or double-
// indirect, or an L1/L2 block within the doubly-indirect tree).
type indexBlock [PointersPerBlock]uint32

func decodeIndexBlock(buf []byte) indexBlock {
	var b indexBlock
	for i := 0; i < PointersPerBlock; i++ {
		b[i] = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}
	return b
}

func (b indexBlock) encode() []byte {
	buf := make([]byte, blockdev.SectorSize)
	for i := 0; i < PointersPerBlock; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], b[i])
	}
	return buf
}

func newGapIndexBlock() indexBlock {
	var b indexBlock
	for i := range b {
		b[i] = GapSector
	}
	return b
}
