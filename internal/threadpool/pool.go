package threadpool

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/thomasltran/cfs-kernel-core/internal/syncx"
)

// ErrPoolShutdown is returned by Submit when it races with Shutdown.
// Per §4.5 this is implementation-defined: a task submitted concurrently
// with shutdown may or may not run; here it is simply rejected.
var ErrPoolShutdown = errors.New("threadpool: submit after shutdown")

const lockCtx = 0

// Pool is the fork/join thread pool: one shared stack of futures guarded
// by one mutex and condvar, with N worker goroutines blocking on it.
type Pool struct {
	log *logrus.Logger

	mu   *syncx.Lock
	cond *syncx.CondVar

	stack    []*Future
	shutdown bool

	workers []*worker
	g       *errgroup.Group

	submitted int64
	completed int64
}

// New starts a pool of n worker goroutines.
func New(ctx context.Context, log *logrus.Logger, n int) *Pool {
	g, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		log:  log,
		mu:   syncx.NewLock("threadpool"),
		cond: syncx.NewCondVar("threadpool"),
		g:    g,
	}
	p.workers = make([]*worker, n)
	for i := 0; i < n; i++ {
		w := &worker{id: i, pool: p}
		p.workers[i] = w
		g.Go(func() error {
			return w.body(gctx)
		})
	}
	return p
}

// Submit allocates a future for task(ctx, pool, args) and appends it to
// the shared stack, waking one idle worker. ctx is consulted for a
// submitting-worker identity (set automatically when task itself calls
// Submit recursively from inside a worker).
func (p *Pool) Submit(ctx context.Context, task Task, args interface{}) (*Future, error) {
	p.mu.Acquire(lockCtx)
	if p.shutdown {
		p.mu.Release(lockCtx)
		return nil, ErrPoolShutdown
	}

	fut := newFuture(p, task, args, workerFromContext(ctx))
	p.stack = append(p.stack, fut)
	p.submitted++
	p.mu.Release(lockCtx)

	p.cond.Signal()
	return fut, nil
}

// Get blocks until fut's task has run, returning its result. If fut was
// itself submitted by a pool worker (fut.worker, not the calling
// context) and is still submitted, that worker's Get call helps: it
// unlinks fut from the stack and runs the task itself instead of
// waiting for another worker — the mechanism that keeps fork/join
// recursion from deadlocking all workers in Get at once.
func (p *Pool) Get(ctx context.Context, fut *Future) interface{} {
	p.mu.Acquire(lockCtx)

	if fut.worker != nil && fut.Status() == Submitted {
		p.removeFromStack(fut)
		fut.status.Store(int32(Executing))
		p.mu.Release(lockCtx)

		result := fut.task(ctx, p, fut.args)

		p.mu.Acquire(lockCtx)
		fut.result = result
		fut.status.Store(int32(Completed))
		p.completed++
		p.cond.Broadcast()
		p.mu.Release(lockCtx)
		return result
	}

	for fut.Status() != Completed {
		p.cond.Wait(p.mu, lockCtx)
	}
	p.mu.Release(lockCtx)
	return fut.result
}

func (p *Pool) removeFromStack(fut *Future) {
	for i, f := range p.stack {
		if f == fut {
			p.stack = append(p.stack[:i], p.stack[i+1:]...)
			return
		}
	}
}

// Shutdown sets the shutdown flag, wakes every worker, and waits for
// each to return. Tasks still on the stack when shutdown is called are
// simply abandoned, per §4.5.
func (p *Pool) Shutdown() error {
	p.mu.Acquire(lockCtx)
	p.shutdown = true
	p.mu.Release(lockCtx)
	p.cond.Broadcast()
	return p.g.Wait()
}

// Stats is a point-in-time snapshot of submission/completion counts.
type Stats struct {
	Submitted int64
	Completed int64
	Queued    int
	Workers   int
}

func (p *Pool) Stats() Stats {
	p.mu.Acquire(lockCtx)
	defer p.mu.Release(lockCtx)
	return Stats{
		Submitted: p.submitted,
		Completed: p.completed,
		Queued:    len(p.stack),
		Workers:   len(p.workers),
	}
}
