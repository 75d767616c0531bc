package vm

import (
	"sync"

	"github.com/thomasltran/cfs-kernel-core/internal/fsinode"
)

// MappedFile records one mmap()'d region, mirroring original_source's
// struct mapped_file (addr/file/length/map_id).
type MappedFile struct {
	Addr   uintptr
	File   *fsinode.Inode
	Length int64
	MapID  int
}

// MappedFileTable is the per-owner set of active mappings.
type MappedFileTable struct {
	mu       sync.Mutex
	mappings map[int]*MappedFile
	nextID   int
}

// NewMappedFileTable returns an empty mapped-file table.
func NewMappedFileTable() *MappedFileTable {
	return &MappedFileTable{mappings: make(map[int]*MappedFile)}
}

// Mmap records a new mapping of file at addr for length bytes, returning
// its map id.
func (t *MappedFileTable) Mmap(file *fsinode.Inode, addr uintptr, length int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.mappings[id] = &MappedFile{Addr: addr, File: file, Length: length, MapID: id}
	return id
}

// Lookup returns the mapping for mapID, nil if absent.
func (t *MappedFileTable) Lookup(mapID int) *MappedFile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mappings[mapID]
}

// Munmap removes mapID's mapping, returning 0 on success. A double
// unmap of the same mapping (or an unknown mapID) returns -1, matching
// the munmap() syscall convention original_source models this on.
func (t *MappedFileTable) Munmap(mapID int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.mappings[mapID]; !ok {
		return -1
	}
	delete(t.mappings, mapID)
	return 0
}
