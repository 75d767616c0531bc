package fsinode

import "github.com/thomasltran/cfs-kernel-core/internal/blockdev"

// translation is the result of mapping a file_sector to a backing device
// sector: exactly one of {sector valid, gap, absent} holds.
type translation struct {
	sector uint32
	gap    bool
	absent bool
}

// translate implements §4.4.2's address translation for byte offset pos.
// Caller holds ino.mu.
func (ino *Inode) translate(pos int64) (translation, error) {
	if pos >= int64(ino.disk.Length) {
		return translation{absent: true}, nil
	}

	fileSector := uint32(pos / blockdev.SectorSize)

	if fileSector < NumDirect {
		s := ino.disk.Direct[fileSector]
		if s == GapSector {
			return translation{gap: true}, nil
		}
		return translation{sector: s}, nil
	}

	if fileSector < NumDirect+PointersPerBlock {
		if ino.disk.Indirect == GapSector {
			return translation{gap: true}, nil
		}
		blk, err := ino.readIndexBlock(ino.disk.Indirect)
		if err != nil {
			return translation{}, err
		}
		s := blk[fileSector-NumDirect]
		if s == GapSector {
			return translation{gap: true}, nil
		}
		return translation{sector: s}, nil
	}

	ds := fileSector - NumDirect - PointersPerBlock
	l2idx := ds / PointersPerBlock
	l1idx := ds % PointersPerBlock

	if ino.disk.DoublyIndirect == GapSector {
		return translation{gap: true}, nil
	}
	l2, err := ino.readIndexBlock(ino.disk.DoublyIndirect)
	if err != nil {
		return translation{}, err
	}
	l1sector := l2[l2idx]
	if l1sector == GapSector {
		return translation{gap: true}, nil
	}
	l1, err := ino.readIndexBlock(l1sector)
	if err != nil {
		return translation{}, err
	}
	s := l1[l1idx]
	if s == GapSector {
		return translation{gap: true}, nil
	}
	return translation{sector: s}, nil
}

// installSector allocates a fresh data sector for fileSector and wires it
// into the index, allocating indirect/doubly-indirect blocks lazily along
// the path (newly-allocated index blocks are initialised all-gap).
// Caller holds ino.mu.
func (ino *Inode) installSector(fileSector uint32) (uint32, error) {
	dataSector, err := ino.free.Alloc()
	if err != nil {
		return 0, err
	}

	if fileSector < NumDirect {
		ino.disk.Direct[fileSector] = dataSector
		return dataSector, nil
	}

	if fileSector < NumDirect+PointersPerBlock {
		if ino.disk.Indirect == GapSector {
			blkSector, err := ino.free.Alloc()
			if err != nil {
				ino.free.Free(dataSector)
				return 0, err
			}
			ino.disk.Indirect = blkSector
			ino.writeIndexBlock(blkSector, newGapIndexBlock())
		}
		blk, err := ino.readIndexBlock(ino.disk.Indirect)
		if err != nil {
			return 0, err
		}
		blk[fileSector-NumDirect] = dataSector
		ino.writeIndexBlock(ino.disk.Indirect, blk)
		return dataSector, nil
	}

	ds := fileSector - NumDirect - PointersPerBlock
	l2idx := ds / PointersPerBlock
	l1idx := ds % PointersPerBlock

	if ino.disk.DoublyIndirect == GapSector {
		blkSector, err := ino.free.Alloc()
		if err != nil {
			ino.free.Free(dataSector)
			return 0, err
		}
		ino.disk.DoublyIndirect = blkSector
		ino.writeIndexBlock(blkSector, newGapIndexBlock())
	}
	l2, err := ino.readIndexBlock(ino.disk.DoublyIndirect)
	if err != nil {
		return 0, err
	}
	if l2[l2idx] == GapSector {
		l1Sector, err := ino.free.Alloc()
		if err != nil {
			ino.free.Free(dataSector)
			return 0, err
		}
		l2[l2idx] = l1Sector
		ino.writeIndexBlock(ino.disk.DoublyIndirect, l2)
		ino.writeIndexBlock(l1Sector, newGapIndexBlock())
	}
	l1, err := ino.readIndexBlock(l2[l2idx])
	if err != nil {
		return 0, err
	}
	l1[l1idx] = dataSector
	ino.writeIndexBlock(l2[l2idx], l1)
	return dataSector, nil
}
