// Package threadpool implements the fork/join worker pool from spec §4.5:
// a single shared stack of submitted futures, N worker goroutines, and
// help-on-get semantics so recursive fork/join never deadlocks even when
// every worker is simultaneously blocked in Get.
package threadpool

import (
	"context"

	"github.com/thomasltran/cfs-kernel-core/internal/syncx"
)

// Status is a future's lifecycle stage.
type Status int32

const (
	Submitted Status = iota
	Executing
	Completed
)

func (s Status) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case Executing:
		return "executing"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Task is a fork/join unit of work. args is whatever the caller closed
// over at Submit time; ctx carries the submitting worker's identity (if
// any) so a recursive Submit/Get from inside task can be recognized as
// pool-internal.
type Task func(ctx context.Context, pool *Pool, args interface{}) interface{}

// Future is a submission record: task + args, a result slot, and status,
// matching the glossary's "submission record of a task-to-be-run."
type Future struct {
	task   Task
	args   interface{}
	result interface{}
	status syncx.Atomic32

	pool   *Pool
	worker *worker // nil if submitted from outside the pool
}

func newFuture(pool *Pool, task Task, args interface{}, w *worker) *Future {
	f := &Future{task: task, args: args, pool: pool, worker: w}
	f.status.Store(int32(Submitted))
	return f
}

// Status returns the future's current lifecycle stage.
func (f *Future) Status() Status {
	return Status(f.status.Load())
}
