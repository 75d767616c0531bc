package sched

// PickNext returns the task with minimum vruntime on cpu, removing it
// from the ready set and marking it Running; if none are runnable,
// returns the idle task and clears curr. Also completes the
// "successor frees predecessor's stack" contract from §4.2 exit: if the
// CPU has a task pending free from a prior Exit, it is cleared here.
func (s *Scheduler) PickNext(cpu int) *Task {
	rq := s.cpus[cpu].RQ
	rq.Lock.Acquire(0)
	defer rq.Lock.Release()

	if s.cpus[cpu].PendingFree != nil {
		s.cpus[cpu].PendingFree.Stack = nil
		s.cpus[cpu].PendingFree = nil
	}

	id, ok := rq.PopMinID()
	if !ok {
		rq.SetCurr(nil)
		rq.Stats.IdleTicks++
		return rq.Idle()
	}
	t := s.lookupTask(id)
	t.State = Running
	t.LastCPUTime = s.wallClockNS.Load()
	t.everRan = true
	rq.SetCurr(t)
	rq.Stats.ContextSwitches++
	return t
}

// refreshMinVRuntime recomputes the watermark from curr and the new
// leftmost queued task, per §4.2's Min_vruntime discipline: the running
// task's vruntime is updated first, then the watermark is published from
// it, never decreasing. Caller holds rq.Lock.
func (s *Scheduler) refreshMinVRuntime(rq *ReadyQueue) {
	curr := rq.Curr()
	if curr == nil {
		return
	}
	candidate := curr.VRuntime
	if minID, ok := rq.PeekMinID(); ok {
		if t := s.lookupTask(minID); t.VRuntime < candidate {
			candidate = t.VRuntime
		}
	}
	rq.bumpMinVRuntime(candidate)
}

// chargeRunningTask advances curr's vruntime by the wall-clock delta it
// just ran, weighted by nice, and returns the unweighted delta. Caller
// holds rq.Lock and curr != idle.
func chargeRunningTask(curr *Task, now int64) int64 {
	delta := now - curr.LastCPUTime
	if delta < 0 {
		delta = 0
	}
	curr.VRuntime += delta * W0 / Weight(curr.Nice)
	curr.LastCPUTime = now
	return delta
}

// idealSlice computes period * weight(t) / sumWeights per §4.2, where
// period = max(sched_latency, n*min_granularity) and n counts curr plus
// every queued (non-idle) task. Caller holds rq.Lock.
func (s *Scheduler) idealSlice(rq *ReadyQueue, t *Task) int64 {
	n := int64(rq.Count() + 1)
	period := s.cfg.SchedLatencyNS
	if n*s.cfg.MinGranularityNS > period {
		period = n * s.cfg.MinGranularityNS
	}
	sumW := rq.SumWeight() + Weight(t.Nice)
	return period * Weight(t.Nice) / sumW
}

// Tick is invoked from the per-CPU timer interrupt handler. It charges
// the running task and, if it has run out its ideal slice (or overshot it
// in one tick due to a delayed timer), raises this CPU's NeedResched flag.
// Tick itself never compares vruntimes to decide preemption — per spec,
// "the tick handler never makes the comparison itself".
func (s *Scheduler) Tick(cpu int, now int64) {
	c := s.cpus[cpu]
	rq := c.RQ
	rq.Lock.Acquire(0)
	defer rq.Lock.Release()

	curr := rq.Curr()
	if curr == nil {
		rq.Stats.IdleTicks++
		return
	}
	rq.Stats.UserTicks++

	delta := chargeRunningTask(curr, now)
	s.refreshMinVRuntime(rq)

	ideal := s.idealSlice(rq, curr)
	curr.sliceRuntime += delta
	if curr.sliceRuntime >= ideal || delta >= ideal {
		c.NeedResched.Store(1)
	}
}

// Yield transitions the calling task from running to ready, re-inserting
// it into cpu's ordered set at its current (now-updated) vruntime.
func (s *Scheduler) Yield(cpu int, taskID uint64, now int64) {
	rq := s.cpus[cpu].RQ
	rq.Lock.Acquire(0)
	defer rq.Lock.Release()

	curr := rq.Curr()
	if curr == nil || curr.ID != taskID {
		panic("sched: yield by non-running task")
	}
	chargeRunningTask(curr, now)
	s.refreshMinVRuntime(rq)
	curr.State = Ready
	curr.sliceRuntime = 0
	rq.Insert(curr, s.nextSeqNum())
	rq.SetCurr(nil)
	s.cpus[cpu].NeedResched.Store(0)
}

// Block transitions the calling task from running to blocked, removing
// it from the ready set. The run segment's vruntime is charged first, as
// Yield does.
func (s *Scheduler) Block(cpu int, taskID uint64, now int64) {
	rq := s.cpus[cpu].RQ
	rq.Lock.Acquire(0)
	defer rq.Lock.Release()

	curr := rq.Curr()
	if curr == nil || curr.ID != taskID {
		panic("sched: block by non-running task")
	}
	chargeRunningTask(curr, now)
	s.refreshMinVRuntime(rq)
	curr.State = Blocked
	curr.sliceRuntime = 0
	rq.SetCurr(nil)
}

// Exit transitions the calling task to dying. The scheduler records it as
// pending-free on this CPU; the next PickNext call (run by whichever
// successor gets context-switched in) frees its stack, mirroring
// thread_schedule_tail's "the incoming thread frees the outgoing one".
func (s *Scheduler) Exit(cpu int, taskID uint64, now int64) {
	rq := s.cpus[cpu].RQ
	rq.Lock.Acquire(0)
	defer rq.Lock.Release()

	curr := rq.Curr()
	if curr == nil || curr.ID != taskID {
		panic("sched: exit by non-running task")
	}
	chargeRunningTask(curr, now)
	s.refreshMinVRuntime(rq)
	curr.State = Dying
	rq.SetCurr(nil)
	s.cpus[cpu].PendingFree = curr
}

// Unblock transitions taskID from blocked to ready, applying the sleeper
// bonus, choosing its target CPU, and signalling preemption per §4.2.
// callerCPU is the CPU the unblocking context is running on (used only to
// decide whether to request a local yield or send a reschedule IPI).
func (s *Scheduler) Unblock(taskID uint64, callerCPU int) {
	t := s.lookupTask(taskID)
	if t.State != Blocked {
		panic("sched: unblock of non-blocked task")
	}

	target := s.ChooseCPU(taskID)
	srcRQ := s.cpus[t.CPU].RQ
	dstRQ := s.cpus[target].RQ

	unlock := lockOrdered(srcRQ, dstRQ)
	defer unlock()

	switch {
	case !t.everRan:
		t.VRuntime = dstRQ.MinVRuntime()
	case t.VRuntime < dstRQ.MinVRuntime()-s.cfg.SchedLatencyNS:
		// slept long enough to fall more than sched_latency behind: bonus,
		// capped so it cannot leapfrog everything indefinitely.
		t.VRuntime = dstRQ.MinVRuntime() - s.cfg.SchedLatencyNS
	default:
		// short sleeper: vruntime unchanged.
	}
	t.State = Ready
	t.CPU = target
	dstRQ.Insert(t, s.nextSeqNum())

	dstCurr := dstRQ.Curr()
	if target == callerCPU {
		if dstCurr != nil && t.VRuntime < dstCurr.VRuntime {
			s.cpus[target].NeedResched.Store(1)
		}
	} else if s.ipi != nil {
		s.ipi.SendReschedule(target)
	}
}

// SleepFor computes a wake deadline of now + ticks timer periods (in
// wall-clock ns), records it in the task's Deadline, inserts taskID into
// cpu's sleep queue, then blocks it. Must not be called from interrupt
// context; SleepFor does not check this, and nothing in this module tags
// the calling context.
func (s *Scheduler) SleepFor(cpu int, taskID uint64, ticks int64, now int64) {
	deadline := now + ticks*(1_000_000_000/int64(s.cfg.TimerFreqHz))
	s.lookupTask(taskID).Deadline = deadline
	sq := s.cpus[cpu].SQ
	sq.Lock.Acquire(0)
	sq.Insert(taskID, deadline)
	sq.Lock.Release()

	s.Block(cpu, taskID, now)
}

// TimerTick drives one 100Hz tick on cpu: if cpu == 0, the monotonic wall
// clock advances first (so sleepers on every CPU see a consistent deadline
// reference); then this CPU's sleep queue is scanned from the head and
// every task whose deadline has passed is unblocked.
func (s *Scheduler) TimerTick(cpu int) {
	if cpu == 0 {
		s.wallClockNS.FetchAdd(1_000_000_000 / int64(s.cfg.TimerFreqHz))
	}
	now := s.wallClockNS.Load()

	sq := s.cpus[cpu].SQ
	sq.Lock.Acquire(0)
	expired := sq.PopExpired(now)
	sq.Lock.Release()

	for _, id := range expired {
		s.Unblock(id, cpu)
	}

	s.Tick(cpu, now)
}

// LoadBalance is called by the idle task on cpu before it would otherwise
// block: if a sibling CPU has at least 2 runnable tasks while this one has
// none, steal the sibling's largest-vruntime task (least likely to run
// next there), acquiring both queue locks in address order.
func (s *Scheduler) LoadBalance(cpu int) bool {
	rq := s.cpus[cpu].RQ

	rq.Lock.Acquire(0)
	idleHere := rq.Count() == 0 && rq.Curr() == nil
	rq.Lock.Release()
	if !idleHere {
		return false
	}

	for i, sib := range s.cpus {
		if i == cpu {
			continue
		}
		unlock := lockOrdered(rq, sib.RQ)
		ok := rq.Count() == 0 && sib.RQ.Count() >= 2
		var stolen uint64
		var hadOne bool
		if ok {
			stolen, hadOne = sib.RQ.MaxVRuntimeID()
			if hadOne {
				k, _ := sib.RQ.RemoveByID(stolen)
				t := s.lookupTask(stolen)
				t.CPU = cpu
				rq.Insert(t, k.seq)
			}
		}
		unlock()
		if ok && hadOne {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of a CPU's cumulative scheduling counters.
func (s *Scheduler) Stats(cpu int) Stats {
	rq := s.cpus[cpu].RQ
	rq.Lock.Acquire(0)
	defer rq.Lock.Release()
	return rq.Stats
}
