package sched

import "github.com/thomasltran/cfs-kernel-core/internal/syncx"

// sleepEntry is one sleeping task, ordered ascending by deadline.
type sleepEntry struct {
	taskID   uint64
	deadline int64
}

// SleepQueue is a per-CPU ascending-deadline ordered sequence. Insertion
// uses a stable ">=" comparator (ties keep insertion order), matching the
// source's list_less_func_sleep and the Open Question in spec §9: this is
// documented, not "fixed".
type SleepQueue struct {
	Lock    *syncx.Spinlock
	entries []sleepEntry
}

// NewSleepQueue returns an empty sleep queue.
func NewSleepQueue(name string) *SleepQueue {
	return &SleepQueue{Lock: syncx.NewSpinlock(name)}
}

// Insert places taskID in deadline order. Caller holds Lock.
func (sq *SleepQueue) Insert(taskID uint64, deadline int64) {
	for _, e := range sq.entries {
		if e.taskID == taskID {
			panic("sleep queue: duplicate insertion")
		}
	}
	i := 0
	for i < len(sq.entries) && sq.entries[i].deadline <= deadline {
		i++
	}
	sq.entries = append(sq.entries, sleepEntry{})
	copy(sq.entries[i+1:], sq.entries[i:])
	sq.entries[i] = sleepEntry{taskID: taskID, deadline: deadline}
}

// PopExpired removes and returns every entry whose deadline has passed as
// of now, scanning from the head and stopping at the first future
// deadline (the queue is kept sorted, so this is sufficient). Caller
// holds Lock.
func (sq *SleepQueue) PopExpired(now int64) []uint64 {
	i := 0
	for i < len(sq.entries) && sq.entries[i].deadline <= now {
		i++
	}
	if i == 0 {
		return nil
	}
	expired := make([]uint64, i)
	for j := 0; j < i; j++ {
		expired[j] = sq.entries[j].taskID
	}
	sq.entries = sq.entries[i:]
	return expired
}

// Remove drops taskID from the queue if present (used when a sleeper is
// otherwise disturbed before its deadline; the core design has no such
// path today, but the operation is kept symmetric with Insert).
func (sq *SleepQueue) Remove(taskID uint64) bool {
	for i, e := range sq.entries {
		if e.taskID == taskID {
			sq.entries = append(sq.entries[:i], sq.entries[i+1:]...)
			return true
		}
	}
	return false
}
