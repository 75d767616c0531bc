// Package cpuset holds the per-CPU boot/statistics surface — the Go
// counterpart of the source's struct cpu bookkeeping (started flag,
// BSP/AP distinction, ncpu, per-CPU tick counters) minus the interrupt
// nesting and GDT/TSS fields a goroutine-based simulation has no use for.
package cpuset

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/thomasltran/cfs-kernel-core/internal/sched"
)

// DetectNCPU sets GOMAXPROCS from the container/cgroup CPU quota (so the
// simulated CPU count tracks what the host actually grants this process)
// and returns the resulting value to size the scheduler with.
func DetectNCPU(log *logrus.Logger) int {
	// The adjustment is meant to stick for the process lifetime, so the
	// undo func maxprocs.Set returns is deliberately discarded here.
	_, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		if log != nil {
			log.Debugf(format, args...)
		}
	}))
	if err != nil && log != nil {
		log.WithError(err).Warn("cpuset: could not adjust GOMAXPROCS from cgroup limits")
	}
	return runtime.GOMAXPROCS(0)
}

// Set is the boot/statistics view over every simulated CPU: which have
// started, which is the bootstrap CPU, and (pulled live from the
// scheduler) each one's tick counters.
type Set struct {
	mu      sync.Mutex
	started []bool
	bootCPU int
	sch     *sched.Scheduler
}

// NewSet describes n CPUs with cpu 0 as the bootstrap processor (the
// source's bcpu), none yet started.
func NewSet(sch *sched.Scheduler, n int) *Set {
	return &Set{started: make([]bool, n), bootCPU: 0, sch: sch}
}

// MarkStarted records that cpu has come up; for the bootstrap CPU this
// happens before any AP exists, for every other CPU it happens once
// Scheduler.StartAPs has made it eligible for task placement.
func (s *Set) MarkStarted(cpu int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started[cpu] = true
}

// Started reports whether cpu has come up.
func (s *Set) Started(cpu int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started[cpu]
}

// BootCPU returns the bootstrap CPU's id.
func (s *Set) BootCPU() int { return s.bootCPU }

// NCPU returns the number of CPUs this set describes.
func (s *Set) NCPU() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.started)
}

// Stats is one CPU's tick counters, read live from the scheduler.
type Stats = sched.Stats

// StatsFor returns cpu's current tick/context-switch counters.
func (s *Set) StatsFor(cpu int) Stats {
	return s.sch.Stats(cpu)
}
