package vm

import "errors"

var (
	errNoEvictableFrame = errors.New("vm: no evictable frame (all pinned)")
	errNoFreeSwapSlot   = errors.New("vm: swap area exhausted")
)
