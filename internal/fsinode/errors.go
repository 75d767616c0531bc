package fsinode

import "errors"

// Error kinds named in spec §7, disjoint by construction.
var (
	errShortBuffer = errors.New("fsinode: buffer is not one sector")
	errBadMagic    = errors.New("fsinode: bad magic number")

	ErrOutOfSpace    = errors.New("fsinode: free-sector allocator exhausted")
	ErrNotFound      = errors.New("fsinode: inode not present")
	ErrWriteDenied   = errors.New("fsinode: deny_write_count > 0")
	ErrStaleSector   = errors.New("fsinode: access to reserved sentinel sector")
)
