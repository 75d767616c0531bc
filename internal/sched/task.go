// Package sched implements the per-CPU fair scheduler: a virtual-runtime
// ordered ready queue per CPU, a deadline-ordered sleep queue per CPU,
// cross-CPU placement, load balancing, and preemption signalling.
package sched

import "fmt"

// State is a task's scheduling lifecycle state.
type State int

const (
	Running State = iota
	Ready
	Blocked
	Dying
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Ready:
		return "ready"
	case Blocked:
		return "blocked"
	case Dying:
		return "dying"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Task is a schedulable unit. The arena (Scheduler.tasks) owns every Task;
// ready and sleep queues hold the task's id, never the *Task itself, so a
// CPU's queue and a task's home-CPU pointer can never form an ownership
// cycle (per the "cyclic ownership" design note).
type Task struct {
	ID    uint64
	Name  string
	State State
	CPU   int
	Nice  int

	VRuntime    int64 // ns, weighted
	LastCPUTime int64 // wall-clock ns at which the current run segment started
	Deadline    int64 // wall-clock ns; valid only while State == Blocked on a sleep

	everRan      bool
	sliceRuntime int64 // ns accumulated since this task was last picked

	// Stack/register-frame fields are out of scope for this module (no
	// ring-0 execution happens here); Stack is kept only as a handle a
	// successor task can "free" per the exit/schedule_tail contract.
	Stack any
}

func (t *Task) String() string {
	return fmt.Sprintf("task{id=%d name=%q state=%s cpu=%d nice=%d vrt=%d}",
		t.ID, t.Name, t.State, t.CPU, t.Nice, t.VRuntime)
}
