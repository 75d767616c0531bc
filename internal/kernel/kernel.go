// Package kernel wires every subsystem into one value — the scheduler,
// IPI bus, buffer cache, inode table, thread pool, and VM tables — and
// drives the simulated boot sequence that replaces the source's real
// ring-0 startup (LAPIC discovery, GDT/IDT setup, AP trampolines) with
// goroutines and channels. The Kernel holds every subsystem instead of
// package-level globals; each subsystem receives only the handles it
// needs (device, cache, logger, ...) at construction.
package kernel

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thomasltran/cfs-kernel-core/internal/blockdev"
	"github.com/thomasltran/cfs-kernel-core/internal/cache"
	"github.com/thomasltran/cfs-kernel-core/internal/config"
	"github.com/thomasltran/cfs-kernel-core/internal/cpuset"
	"github.com/thomasltran/cfs-kernel-core/internal/fsinode"
	"github.com/thomasltran/cfs-kernel-core/internal/ipi"
	"github.com/thomasltran/cfs-kernel-core/internal/sched"
	"github.com/thomasltran/cfs-kernel-core/internal/threadpool"
	"github.com/thomasltran/cfs-kernel-core/internal/vm"
)

// Kernel is the fully wired system: one of each subsystem, a scheduler
// CPU per detected core, and the cache flush daemon goroutine. No
// goroutine drives timer ticks; callers invoke Sched.TimerTick.
type Kernel struct {
	Cfg config.Config
	Log *logrus.Logger

	Dev   blockdev.Device
	Cache *cache.Cache

	Free   *fsinode.FreeSectorMap
	Inodes *fsinode.Table

	Sched *sched.Scheduler
	IPI   *ipi.Bus
	CPUs  *cpuset.Set

	Pool *threadpool.Pool

	Frames *vm.FrameTable
	Swap   *vm.SwapTable
	SPT    *vm.Table
	MMap   *vm.MappedFileTable

	cancel context.CancelFunc
	flushDone chan struct{}
}

// cpuTarget adapts a sched.CPU into the ipi.Target interface: a
// reschedule IPI sets that CPU's NeedResched flag, TLB flush / debug /
// halt are no-ops or log lines since this simulation has no real MMU or
// console to act on.
type cpuTarget struct {
	id  int
	cpu *sched.CPU
	log *logrus.Logger
}

func (t *cpuTarget) ID() int                { return t.id }
func (t *cpuTarget) RequestReschedule()     { t.cpu.NeedResched.Store(1) }
func (t *cpuTarget) FlushTLB()              {}
func (t *cpuTarget) Backtrace() string      { return "<no native stack: goroutine-simulated CPU>" }
func (t *cpuTarget) Halt()                  {}

// Boot constructs every subsystem and starts the AP CPUs and background
// daemons, mirroring the source main()'s attach_devs/cpus_start/MkFS
// sequence without any of the hardware-specific steps a userspace
// simulation has no analog for.
func Boot(ctx context.Context, cfg config.Config, log *logrus.Logger, dev blockdev.Device, ncpuOverride int) (*Kernel, error) {
	ncpu := ncpuOverride
	if ncpu <= 0 {
		ncpu = cpuset.DetectNCPU(log)
	}

	schedCfg := sched.Config{
		SchedLatencyNS:   cfg.Sched.LatencyMS * 1_000_000,
		MinGranularityNS: cfg.Sched.MinGranularity * 1_000_000,
		TimerFreqHz:      cfg.Sched.TimerFreqHz,
	}

	// The IPI bus needs scheduler CPUs to target, but the scheduler needs
	// an IPISender at construction. Break the cycle with a thin forwarder
	// whose underlying bus pointer is filled in once both exist.
	fwd := &ipiForwarder{}
	sc := sched.New(schedCfg, log, fwd, ncpu)

	targets := make([]ipi.Target, ncpu)
	for i := 0; i < ncpu; i++ {
		targets[i] = &cpuTarget{id: i, cpu: sc.CPU(i), log: log}
	}
	bus := ipi.NewBus(log, targets, 0)
	fwd.bus = bus

	flushEvery := time.Duration(cfg.Cache.FlushPeriodSec) * time.Second
	c := cache.New(dev, log, flushEvery)

	totalSectors := dev.NumSectors()
	reserved := uint32(1) // sector 0 reserved for a superblock, mirroring fs layout conventions
	free := fsinode.NewFreeSectorMap(reserved, totalSectors-reserved)
	inodes := fsinode.NewTable(c, free)

	cpus := cpuset.NewSet(sc, ncpu)
	for i := 0; i < ncpu; i++ {
		cpus.MarkStarted(i)
	}
	sc.StartAPs()

	pool := threadpool.New(ctx, log, cfg.ThreadPool.Workers)

	frames := vm.NewFrameTable(cfg.VM.NumFrames)
	var swap *vm.SwapTable
	if cfg.VM.SwapPath != "" {
		swapDev, err := blockdev.OpenFileDevice(cfg.VM.SwapPath, cfg.VM.SwapSectors)
		if err != nil {
			return nil, err
		}
		swap = vm.NewSwapTable(swapDev, 0)
	} else {
		swap = vm.NewSwapTable(blockdev.NewMemDevice(cfg.VM.SwapSectors), 0)
	}

	kctx, cancel := context.WithCancel(ctx)

	k := &Kernel{
		Cfg: cfg, Log: log,
		Dev: dev, Cache: c,
		Free: free, Inodes: inodes,
		Sched: sc, IPI: bus, CPUs: cpus,
		Pool:   pool,
		Frames: frames, Swap: swap, SPT: vm.NewTable(), MMap: vm.NewMappedFileTable(),
		cancel:    cancel,
		flushDone: make(chan struct{}),
	}

	go func() {
		c.RunFlushDaemon(kctx)
		close(k.flushDone)
	}()

	return k, nil
}

// Shutdown stops the flush daemon, joins the thread pool, broadcasts a
// shutdown IPI to every non-bootstrap CPU, and closes the filesystem
// block device passed to Boot if it has a Close method. The swap device
// is not closed.
func (k *Kernel) Shutdown() error {
	k.cancel()
	<-k.flushDone

	if err := k.Pool.Shutdown(); err != nil {
		return err
	}
	k.IPI.Broadcast(ipi.Shutdown, -1)

	if fd, ok := k.Dev.(interface{ Close() error }); ok {
		return fd.Close()
	}
	return nil
}

// ipiForwarder breaks the New(scheduler) <-> NewBus(targets) construction
// cycle: the scheduler is built with this forwarder as its IPISender,
// and the real bus pointer is filled in immediately afterward.
type ipiForwarder struct {
	bus *ipi.Bus
}

func (f *ipiForwarder) SendReschedule(targetCPU int) {
	if f.bus != nil {
		f.bus.SendReschedule(targetCPU)
	}
}
