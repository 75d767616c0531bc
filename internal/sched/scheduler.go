package sched

import (
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/thomasltran/cfs-kernel-core/internal/syncx"
)

// Config holds the scheduler's tunables, loadable from TOML (see
// internal/config) and defaulted per spec §4.2.
type Config struct {
	SchedLatencyNS   int64
	MinGranularityNS int64
	TimerFreqHz      int
}

// DefaultConfig returns sched_latency=20ms, min_granularity=4ms,
// timer_freq=100Hz, exactly as §4.2/§6 specify.
func DefaultConfig() Config {
	return Config{
		SchedLatencyNS:   20 * 1_000_000,
		MinGranularityNS: 4 * 1_000_000,
		TimerFreqHz:      100,
	}
}

// IPISender is the narrow contract the scheduler needs from
// internal/ipi: deliver a reschedule IPI to a target CPU. Kept as an
// interface here so sched does not import internal/ipi; internal/kernel
// supplies the bus (through a forwarder) at construction.
type IPISender interface {
	SendReschedule(targetCPU int)
}

// Scheduler is the root "kernel" scheduling value: every CPU's queues,
// the process-wide task arena, and the monotonic wall clock. Passed
// explicitly into every operation instead of being reached through
// package-level globals, per the "global mutable state" design note.
type Scheduler struct {
	cfg Config
	log *logrus.Logger
	ipi IPISender

	cpus []*CPU

	tasksLock  *syncx.Spinlock
	tasks      map[uint64]*Task
	nextTaskID uint64
	nextSeq    uint64

	apsStarted bool

	wallClockNS *syncx.Atomic64
}

// New builds a scheduler with ncpu CPUs, each with its own idle task.
// apsStarted is false until StartAPs is called, matching the boot-time
// "only the bootstrap CPU exists yet" window in §4.2's placement policy.
func New(cfg Config, log *logrus.Logger, ipi IPISender, ncpu int) *Scheduler {
	s := &Scheduler{
		cfg:         cfg,
		log:         log,
		ipi:         ipi,
		tasksLock:   syncx.NewSpinlock("tasks"),
		tasks:       make(map[uint64]*Task),
		nextTaskID:  1,
		wallClockNS: syncx.NewAtomic64(0),
	}
	for i := 0; i < ncpu; i++ {
		s.cpus = append(s.cpus, newCPU(i))
	}
	return s
}

// StartAPs flips the "other CPUs have started" switch that ChooseCPU
// consults; before this, every new/woken task lands on CPU 0.
func (s *Scheduler) StartAPs() {
	s.tasksLock.Acquire(0)
	s.apsStarted = true
	s.tasksLock.Release()
}

func (s *Scheduler) nextSeqNum() uint64 {
	s.nextSeq++
	return s.nextSeq
}

// WallClockNS returns the monotonic wall clock CPU 0's ticks advance.
func (s *Scheduler) WallClockNS() int64 { return s.wallClockNS.Load() }

// NCPU returns the configured CPU count.
func (s *Scheduler) NCPU() int { return len(s.cpus) }

// CPU returns the id'th simulated CPU, for callers (IPI targets, the
// cpuset boot/statistics view) that need to act on it directly.
func (s *Scheduler) CPU(id int) *CPU { return s.cpus[id] }

// lookupTask resolves an id to its Task under tasksLock. Panics if the id
// is unknown — the arena is the single source of truth, and a queue
// should never hold an id with no backing Task.
func (s *Scheduler) lookupTask(id uint64) *Task {
	s.tasksLock.Acquire(0)
	t, ok := s.tasks[id]
	s.tasksLock.Release()
	if !ok {
		panic("sched: unknown task id")
	}
	return t
}

// ChooseCPU implements §4.2's "Cross-CPU assignment" placement policy:
// round-robin by task id modulo CPU count once the APs have started,
// otherwise the bootstrap CPU.
func (s *Scheduler) ChooseCPU(taskID uint64) int {
	s.tasksLock.Acquire(0)
	started := s.apsStarted
	s.tasksLock.Release()
	if !started {
		return 0
	}
	return int(taskID % uint64(len(s.cpus)))
}

// lockOrdered acquires two ready-queue locks in strictly increasing
// address order (and releases in reverse via the returned func), avoiding
// deadlock when a cross-CPU operation needs both. If a == b, it is
// acquired once.
func lockOrdered(a, b *ReadyQueue) func() {
	if a == b {
		a.Lock.Acquire(0)
		return func() { a.Lock.Release() }
	}
	pa := uintptr(unsafe.Pointer(a))
	pb := uintptr(unsafe.Pointer(b))
	if pa < pb {
		a.Lock.Acquire(0)
		b.Lock.Acquire(0)
		return func() { b.Lock.Release(); a.Lock.Release() }
	}
	b.Lock.Acquire(0)
	a.Lock.Acquire(0)
	return func() { a.Lock.Release(); b.Lock.Release() }
}

// SpawnTask creates a new task and places it on a chosen CPU's ready
// queue via ChooseCPU + Unblock's "new task" seeding rule: vruntime =
// target CPU's current min_vruntime, so a just-created task gets no
// bonus.
func (s *Scheduler) SpawnTask(name string, nice int) *Task {
	s.tasksLock.Acquire(0)
	id := s.nextTaskID
	s.nextTaskID++
	seq := s.nextSeqNum()
	s.tasksLock.Release()

	t := &Task{ID: id, Name: name, Nice: nice, State: Ready}

	cpu := s.ChooseCPU(id)
	rq := s.cpus[cpu].RQ
	rq.Lock.Acquire(0)
	t.VRuntime = rq.MinVRuntime()
	t.CPU = cpu
	rq.Insert(t, seq)
	rq.Lock.Release()

	s.tasksLock.Acquire(0)
	s.tasks[id] = t
	s.tasksLock.Release()

	return t
}
