// Package vm supplements the filesystem/cache/scheduler core with the
// demand-paging surface from original_source/src/vm: a supplemental page
// table resolving page faults, a fixed frame table with clock eviction,
// a swap area backed by internal/blockdev, and a mapped-file table. None
// of this is reachable from spec.md's named modules directly — it is the
// "supplemental page table with swap-backed demand paging" feature the
// distillation dropped but original_source still implements in full.
package vm

import (
	"github.com/thomasltran/cfs-kernel-core/internal/fsinode"
	"github.com/thomasltran/cfs-kernel-core/internal/syncx"
)

// PageSize is the simulated hardware page size.
const PageSize = 4096

// Status records why a page exists — matches original_source's
// enum page_status (MMAP/MUNMAP/CODE/DATA_BSS/STACK) one for one.
type Status int

const (
	StatusMMap Status = iota
	StatusMunmap
	StatusCode
	StatusDataBSS
	StatusStack
)

// Location is where a page's data currently lives.
type Location int

const (
	PagedIn Location = iota
	PagedOut
	InSwap
	InTransit // being evicted; not assigned by LoadPage or evict in this package
)

// Page is one supplemental page table entry: everything needed to
// reload or evict the page, but never the data itself (that lives in a
// Frame or a swap slot).
type Page struct {
	UAddr    uintptr
	Status   Status
	Location Location

	// Backing file, for CODE/DATA_BSS/MMAP pages loaded lazily from a
	// file-backed inode.
	File      *fsinode.Inode
	Offset    int64
	ReadBytes uint32
	ZeroBytes uint32
	Writable  bool

	SwapIndex int // valid iff Location == InSwap
	MapID     int // valid iff Status == StatusMMap

	frame   *Frame
	transit *syncx.CondVar // allocated per page; no code in this package waits on or broadcasts it
}

// Table is the supplemental page table: a per-owner map from user
// address to Page, guarded by one lock (original_source's global
// vm_lock, scoped per owner here instead of process-wide).
type Table struct {
	mu    *syncx.Lock
	pages map[uintptr]*Page
}

// NewTable returns an empty supplemental page table.
func NewTable() *Table {
	return &Table{mu: syncx.NewLock("vm.spt"), pages: make(map[uintptr]*Page)}
}

// Create installs a new page entry at uaddr. Mirrors create_page.
func (t *Table) Create(uaddr uintptr, file *fsinode.Inode, offset int64, readBytes, zeroBytes uint32, writable bool, status Status, loc Location) *Page {
	p := &Page{
		UAddr: uaddr, Status: status, Location: loc,
		File: file, Offset: offset, ReadBytes: readBytes, ZeroBytes: zeroBytes,
		Writable: writable, SwapIndex: -1, MapID: -1,
		transit: syncx.NewCondVar("vm.page.transit"),
	}
	t.mu.Acquire(0)
	t.pages[uaddr] = p
	t.mu.Release(0)
	return p
}

// Find looks up the page covering uaddr, nil if none.
func (t *Table) Find(uaddr uintptr) *Page {
	t.mu.Acquire(0)
	defer t.mu.Release(0)
	return t.pages[uaddr]
}

// Remove deletes uaddr's page entry, e.g. on munmap or thread exit.
func (t *Table) Remove(uaddr uintptr) {
	t.mu.Acquire(0)
	delete(t.pages, uaddr)
	t.mu.Release(0)
}
