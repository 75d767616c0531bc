package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestScheduler(ncpu int) *Scheduler {
	return New(DefaultConfig(), nil, nil, ncpu)
}

func TestMinVRuntimeMonotonic(t *testing.T) {
	s := newTestScheduler(1)
	a := s.SpawnTask("a", 0)
	b := s.SpawnTask("b", 0)

	rq := s.cpus[0].RQ
	rq.Lock.Acquire(0)
	before := rq.MinVRuntime()
	rq.Lock.Release()

	// run a for a while, tick repeatedly
	now := int64(0)
	_ = s.PickNext(0) // picks a (lower/equal vruntime, inserted first)
	for i := 0; i < 100; i++ {
		now += 1_000_000
		s.Tick(0, now)
	}

	rq.Lock.Acquire(0)
	after := rq.MinVRuntime()
	rq.Lock.Release()

	require.GreaterOrEqual(t, after, before)
	require.NotNil(t, a)
	require.NotNil(t, b)
}

func TestFairSplitTwoNiceZeroTasks(t *testing.T) {
	s := newTestScheduler(1)
	s.SpawnTask("a", 0)
	s.SpawnTask("b", 0)

	now := int64(0)
	cpuTime := map[uint64]int64{}

	for i := 0; i < 2000; i++ {
		t := s.PickNext(0)
		if t.Name == "idle" {
			now += 10_000_000
			s.Tick(0, now)
			continue
		}
		// run this task for one min_granularity-sized chunk, then yield
		now += 4_000_000
		cpuTime[t.ID] += 4_000_000
		s.Tick(0, now)
		s.Yield(0, t.ID, now)
	}

	ids := make([]uint64, 0, 2)
	for id := range cpuTime {
		ids = append(ids, id)
	}
	require.Len(t, ids, 2)
	total := cpuTime[ids[0]] + cpuTime[ids[1]]
	ratio := float64(cpuTime[ids[0]]) / float64(total)
	require.InDelta(t, 0.5, ratio, 0.1)
}

func TestSpawnTaskNewTaskNoBonus(t *testing.T) {
	s := newTestScheduler(1)
	a := s.SpawnTask("a", 0)

	rq := s.cpus[0].RQ
	rq.Lock.Acquire(0)
	min := rq.MinVRuntime()
	rq.Lock.Release()

	require.Equal(t, min, a.VRuntime)
}

func TestSleeperBonusCapped(t *testing.T) {
	s := newTestScheduler(1)
	a := s.SpawnTask("a", 0)
	_ = s.PickNext(0)

	now := int64(0)
	for i := 0; i < 250; i++ { // run a for 1s in 4ms chunks
		now += 4_000_000
		s.Tick(0, now)
	}

	s.Block(0, a.ID, now)

	rq := s.cpus[0].RQ
	rq.Lock.Acquire(0)
	minBefore := rq.MinVRuntime()
	rq.Lock.Release()

	s.Unblock(a.ID, 0)

	require.GreaterOrEqual(t, a.VRuntime, minBefore-s.cfg.SchedLatencyNS-1)
	require.LessOrEqual(t, a.VRuntime, minBefore)
}

func TestSleepForExpiresAtDeadline(t *testing.T) {
	s := newTestScheduler(1)
	s.SpawnTask("a", 0)
	s.SpawnTask("b", 0)
	curr := s.PickNext(0) // Block/SleepFor require a running task; pick it first

	s.SleepFor(0, curr.ID, 10, 0)

	sq := s.cpus[0].SQ
	sq.Lock.Acquire(0)
	expired := sq.PopExpired(10 * (1_000_000_000 / 100))
	sq.Lock.Release()

	require.Equal(t, []uint64{curr.ID}, expired)
}

func TestLoadBalanceStealsFromBusySibling(t *testing.T) {
	s := newTestScheduler(2)
	// force everything onto CPU 0 by not starting APs
	s.SpawnTask("a", 0)
	s.SpawnTask("b", 0)
	s.SpawnTask("c", 0)

	moved := s.LoadBalance(1)
	require.True(t, moved)

	rq1 := s.cpus[1].RQ
	rq1.Lock.Acquire(0)
	count := rq1.Count()
	rq1.Lock.Release()
	require.Equal(t, 1, count)
}
