package fsinode

import "github.com/thomasltran/cfs-kernel-core/internal/blockdev"

func (ino *Inode) persistHeader() {
	h := ino.c.Get(ino.Sector, true)
	buf := ino.c.ZeroData(h)
	copy(buf, ino.disk.Encode())
	ino.c.MarkDirty(h)
	ino.c.Release(h)
}

// ReadAt copies into buf starting at offset, stopping at EOF. Reads over
// a gap return zeros without touching the device (§4.4.2's sparse-zero
// guarantee); it returns the number of bytes actually copied.
func (ino *Inode) ReadAt(offset int64, buf []byte) (int, error) {
	ino.mu.Lock()
	defer ino.mu.Unlock()

	n := 0
	pos := offset
	for n < len(buf) {
		if pos >= int64(ino.disk.Length) {
			break
		}
		within := int(pos % blockdev.SectorSize)
		chunk := blockdev.SectorSize - within
		if remaining := len(buf) - n; chunk > remaining {
			chunk = remaining
		}

		tr, err := ino.translate(pos)
		if err != nil {
			return n, err
		}
		dst := buf[n : n+chunk]
		if tr.gap || tr.absent {
			for i := range dst {
				dst[i] = 0
			}
		} else {
			h := ino.c.Get(tr.sector, false)
			data := ino.c.ReadData(h)
			copy(dst, data[within:within+chunk])
			ino.c.Release(h)
		}

		pos += int64(chunk)
		n += chunk
	}
	return n, nil
}

// WriteAt writes data at offset, extending the inode (allocating index
// blocks lazily) past its current length as needed. Refused outright if
// deny_write_count > 0, per §4.4.2.
func (ino *Inode) WriteAt(offset int64, data []byte) (int, error) {
	ino.mu.Lock()
	defer ino.mu.Unlock()

	if ino.denyWriteCount > 0 {
		return 0, ErrWriteDenied
	}

	newLen := offset + int64(len(data))
	extended := false
	if newLen > int64(ino.disk.Length) {
		ino.disk.Length = int32(newLen)
		extended = true
	}

	n := 0
	pos := offset
	for n < len(data) {
		within := int(pos % blockdev.SectorSize)
		chunk := blockdev.SectorSize - within
		if remaining := len(data) - n; chunk > remaining {
			chunk = remaining
		}
		fileSector := uint32(pos / blockdev.SectorSize)

		tr, err := ino.translate(pos)
		if err != nil {
			return n, err
		}

		var dataSector uint32
		fresh := false
		switch {
		case tr.absent, tr.gap:
			dataSector, err = ino.installSector(fileSector)
			if err != nil {
				if extended && n == 0 {
					ino.disk.Length = int32(offset) // nothing written; undo extension
				}
				ino.persistHeader()
				return n, err
			}
			fresh = true
		default:
			dataSector = tr.sector
		}

		h := ino.c.Get(dataSector, true)
		var buf []byte
		if fresh {
			buf = ino.c.ZeroData(h)
		} else {
			buf = ino.c.ReadData(h)
		}
		copy(buf[within:within+chunk], data[n:n+chunk])
		ino.c.MarkDirty(h)
		ino.c.Release(h)

		pos += int64(chunk)
		n += chunk
	}

	ino.persistHeader()
	return n, nil
}
