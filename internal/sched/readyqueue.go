package sched

import (
	"github.com/google/btree"

	"github.com/thomasltran/cfs-kernel-core/internal/syncx"
)

// vrtKey orders the ready queue's ordered multiset: by vruntime, ties
// broken by insertion sequence. Using google/btree in place of a
// hand-rolled red-black tree gives the ready queue a real ordered
// structure without reimplementing one, the way Linux CFS's rbtree does.
type vrtKey struct {
	vrt int64
	seq uint64
	id  uint64
}

func (a vrtKey) Less(than btree.Item) bool {
	b := than.(vrtKey)
	if a.vrt != b.vrt {
		return a.vrt < b.vrt
	}
	return a.seq < b.seq
}

// Stats are cumulative per-CPU scheduling counters.
type Stats struct {
	IdleTicks      int64
	UserTicks      int64
	KernelTicks    int64
	ContextSwitches int64
}

// ReadyQueue holds one CPU's runnable tasks, ordered by vruntime.
type ReadyQueue struct {
	Lock *syncx.Spinlock

	tree        *btree.BTree
	minVRuntime int64
	count       int // queued tasks, excluding curr and idle
	sumWeight   int64
	curr        *Task
	idle        *Task
	Stats       Stats

	byID     map[uint64]vrtKey
	weightOf map[uint64]int64
}

// NewReadyQueue builds an empty ready queue with the given idle task.
func NewReadyQueue(name string, idle *Task) *ReadyQueue {
	return &ReadyQueue{
		Lock: syncx.NewSpinlock(name),
		tree:     btree.New(32),
		idle:     idle,
		byID:     make(map[uint64]vrtKey),
		weightOf: make(map[uint64]int64),
	}
}

// MinVRuntime returns the monotonic watermark. Callers must hold Lock.
func (rq *ReadyQueue) MinVRuntime() int64 { return rq.minVRuntime }

// bumpMinVRuntime advances the watermark; it never decreases it, per the
// scheduler-monotonicity invariant.
func (rq *ReadyQueue) bumpMinVRuntime(candidate int64) {
	if candidate > rq.minVRuntime {
		rq.minVRuntime = candidate
	}
}

// Insert adds t to the ordered set at its current vruntime. Caller holds
// Lock.
func (rq *ReadyQueue) Insert(t *Task, seq uint64) {
	if _, exists := rq.byID[t.ID]; exists {
		panic("ready queue: duplicate insertion")
	}
	k := vrtKey{vrt: t.VRuntime, seq: seq, id: t.ID}
	rq.tree.ReplaceOrInsert(k)
	rq.byID[t.ID] = k
	w := Weight(t.Nice)
	rq.weightOf[t.ID] = w
	rq.sumWeight += w
	rq.count++
}

// Remove unlinks t if present. Caller holds Lock.
func (rq *ReadyQueue) Remove(t *Task) {
	k, ok := rq.byID[t.ID]
	if !ok {
		return
	}
	rq.tree.Delete(k)
	delete(rq.byID, t.ID)
	rq.sumWeight -= rq.weightOf[t.ID]
	delete(rq.weightOf, t.ID)
	rq.count--
}

// Count returns the number of queued tasks; the running task (curr) and
// the idle task are not counted. Caller holds Lock.
func (rq *ReadyQueue) Count() int { return rq.count }

// SumWeight returns the sum of weights of queued (non-running) tasks.
// Caller holds Lock.
func (rq *ReadyQueue) SumWeight() int64 { return rq.sumWeight }

// Curr returns the currently running task, or nil if the CPU is idle.
func (rq *ReadyQueue) Curr() *Task { return rq.curr }

// SetCurr records which task is now running on this CPU.
func (rq *ReadyQueue) SetCurr(t *Task) { rq.curr = t }

// Idle returns this CPU's idle task.
func (rq *ReadyQueue) Idle() *Task { return rq.idle }

// PeekMinID returns the id of the minimum-vruntime task without removing
// it, or 0 if the set is empty. Caller holds Lock.
func (rq *ReadyQueue) PeekMinID() (uint64, bool) {
	min := rq.tree.Min()
	if min == nil {
		return 0, false
	}
	return min.(vrtKey).id, true
}

// PopMinID removes and returns the id of the minimum-vruntime task.
// Caller holds Lock.
func (rq *ReadyQueue) PopMinID() (uint64, bool) {
	min := rq.tree.Min()
	if min == nil {
		return 0, false
	}
	k := min.(vrtKey)
	rq.tree.Delete(k)
	delete(rq.byID, k.id)
	rq.sumWeight -= rq.weightOf[k.id]
	delete(rq.weightOf, k.id)
	rq.count--
	return k.id, true
}

// MaxVRuntimeID returns the id of the task with the largest vruntime
// currently queued (the least-imminent-to-run task), used by load
// balancing's steal heuristic. Caller holds Lock.
func (rq *ReadyQueue) MaxVRuntimeID() (uint64, bool) {
	max := rq.tree.Max()
	if max == nil {
		return 0, false
	}
	return max.(vrtKey).id, true
}

// RemoveByID deletes the queue entry for id if present, returning its
// key's seq (so callers can thread it through to a re-insertion). Caller
// holds Lock.
func (rq *ReadyQueue) RemoveByID(id uint64) (vrtKey, bool) {
	k, ok := rq.byID[id]
	if !ok {
		return vrtKey{}, false
	}
	rq.tree.Delete(k)
	delete(rq.byID, id)
	rq.sumWeight -= rq.weightOf[id]
	delete(rq.weightOf, id)
	rq.count--
	return k, true
}
