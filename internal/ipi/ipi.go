// Package ipi implements the four inter-processor interrupt classes named
// in spec §4.3: reschedule, TLB-invalidate, debug, and shutdown. Handlers
// run "with interrupts disabled" (modelled here as: they must never call
// anything that can suspend) and senders wait on a per-target delivery
// flag before sending their next IPI to the same target, mirroring the
// source's ipi_send/ipi_wait contract.
package ipi

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Class identifies which of the four IPI handlers fires.
type Class int

const (
	Reschedule Class = iota
	InvalidateTLB
	Debug
	Shutdown
)

func (c Class) String() string {
	switch c {
	case Reschedule:
		return "reschedule"
	case InvalidateTLB:
		return "invalidate-tlb"
	case Debug:
		return "debug"
	case Shutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Target is what a handler needs to act on its CPU: set the reschedule
// flag, flush a (simulated) TLB and ack, dump a backtrace, or halt.
type Target interface {
	ID() int
	RequestReschedule()
	FlushTLB()
	Backtrace() string
	Halt()
}

// Bus delivers IPIs to a fixed set of targets. Delivery is synchronous: a
// send blocks the caller until the target's handler has run. Each target
// also has its own atomic delivery flag, which a sender waits on before
// sending to that target, mirroring the source's "wait on a delivery
// flag" discipline.
type Bus struct {
	log      *logrus.Logger
	targets  []Target
	bootCPU  int
	tlbAcks  *int32
	delivery []atomicFlag
}

type atomicFlag struct{ v int32 }

// NewBus wires a bus over targets, indexed by CPU id; bootCPU is exempt
// from Shutdown (it must remain responsive to the console).
func NewBus(log *logrus.Logger, targets []Target, bootCPU int) *Bus {
	acks := int32(0)
	return &Bus{
		log:      log,
		targets:  targets,
		bootCPU:  bootCPU,
		tlbAcks:  &acks,
		delivery: make([]atomicFlag, len(targets)),
	}
}

// waitDelivered blocks until any in-flight IPI to target has been
// acknowledged, before this call sends the next one to the same target.
func (b *Bus) waitDelivered(target int) {
	for atomic.LoadInt32(&b.delivery[target].v) != 0 {
	}
}

func (b *Bus) markInFlight(target int)  { atomic.StoreInt32(&b.delivery[target].v, 1) }
func (b *Bus) markDelivered(target int) { atomic.StoreInt32(&b.delivery[target].v, 0) }

// Send delivers class to target, waiting for any prior IPI to that same
// target to have been acknowledged first.
func (b *Bus) Send(class Class, target int) {
	b.waitDelivered(target)
	b.markInFlight(target)
	defer b.markDelivered(target)

	t := b.targets[target]
	switch class {
	case Reschedule:
		t.RequestReschedule()
	case InvalidateTLB:
		t.FlushTLB()
		atomic.AddInt32(b.tlbAcks, 1)
	case Debug:
		bt := t.Backtrace()
		if b.log != nil {
			b.log.WithField("cpu", target).Infof("debug ipi backtrace:\n%s", bt)
		}
	case Shutdown:
		if target == b.bootCPU {
			return // bootstrap CPU stays responsive to the console
		}
		t.Halt()
	}
}

// Broadcast sends class to every target, skipping excludeCPU if >= 0.
func (b *Bus) Broadcast(class Class, excludeCPU int) {
	for i := range b.targets {
		if i == excludeCPU {
			continue
		}
		b.Send(class, i)
	}
}

// TLBAcks returns the shared acknowledgement counter InvalidateTLB
// increments, for tests to confirm every target actually flushed.
func (b *Bus) TLBAcks() int32 { return atomic.LoadInt32(b.tlbAcks) }

// SendReschedule satisfies internal/sched.IPISender, so the scheduler can
// ask for a cross-CPU reschedule through a one-method interface without
// importing this package.
func (b *Bus) SendReschedule(targetCPU int) {
	b.Send(Reschedule, targetCPU)
}
