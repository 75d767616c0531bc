package ipi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCPU struct {
	id         int
	mu         sync.Mutex
	resched    bool
	tlbFlushed bool
	halted     bool
}

func (f *fakeCPU) ID() int { return f.id }
func (f *fakeCPU) RequestReschedule() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resched = true
}
func (f *fakeCPU) FlushTLB() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tlbFlushed = true
}
func (f *fakeCPU) Backtrace() string { return "fake backtrace" }
func (f *fakeCPU) Halt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halted = true
}

func newFakeTargets(n int) []Target {
	ts := make([]Target, n)
	for i := range ts {
		ts[i] = &fakeCPU{id: i}
	}
	return ts
}

func TestSendRescheduleSetsFlag(t *testing.T) {
	targets := newFakeTargets(2)
	bus := NewBus(nil, targets, 0)

	bus.SendReschedule(1)
	require.True(t, targets[1].(*fakeCPU).resched)
	require.False(t, targets[0].(*fakeCPU).resched)
}

func TestBroadcastInvalidateTLBIncrementsAcks(t *testing.T) {
	targets := newFakeTargets(4)
	bus := NewBus(nil, targets, 0)

	bus.Broadcast(InvalidateTLB, -1)
	require.EqualValues(t, 4, bus.TLBAcks())
	for _, tg := range targets {
		require.True(t, tg.(*fakeCPU).tlbFlushed)
	}
}

func TestShutdownExemptsBootCPU(t *testing.T) {
	targets := newFakeTargets(3)
	bus := NewBus(nil, targets, 0)

	bus.Broadcast(Shutdown, -1)
	require.False(t, targets[0].(*fakeCPU).halted)
	require.True(t, targets[1].(*fakeCPU).halted)
	require.True(t, targets[2].(*fakeCPU).halted)
}
