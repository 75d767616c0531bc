package sched

import "github.com/thomasltran/cfs-kernel-core/internal/syncx"

// CPU is one simulated CPU: its ready queue, its sleep queue, and the
// reschedule-on-interrupt-return flag tick() sets instead of making the
// preemption decision itself.
type CPU struct {
	ID          int
	RQ          *ReadyQueue
	SQ          *SleepQueue
	NeedResched *syncx.Atomic32
	PendingFree *Task // set by Exit; freed by the next PickNext on this CPU
}

func newCPU(id int) *CPU {
	idle := &Task{ID: idleTaskID(id), Name: "idle", State: Ready, CPU: id}
	return &CPU{
		ID:          id,
		RQ:          NewReadyQueue("rq", idle),
		SQ:          NewSleepQueue("sq"),
		NeedResched: syncx.NewAtomic32(0),
	}
}

// idleTaskID gives each CPU's idle task a stable id disjoint from the
// spawned-task id space (which starts at 1 and grows), so idle tasks
// never collide with the task registry.
func idleTaskID(cpuID int) uint64 {
	return ^uint64(0) - uint64(cpuID)
}
