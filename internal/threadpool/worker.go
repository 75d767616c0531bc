package threadpool

import "context"

// worker identifies one pool goroutine. Submit reads a *worker value out
// of the caller's context and stamps it onto the new future so a later
// Get on that future knows whether its submitter was pool-internal — the
// Go stand-in for the source's thread-local submitting-worker pointer.
type worker struct {
	id   int
	pool *Pool
}

type workerKeyType struct{}

var workerKey = workerKeyType{}

// withWorker attaches w's identity to ctx, the Go stand-in for the
// source's get_tls(0) lookup inside thread_pool_submit/future_get.
func withWorker(ctx context.Context, w *worker) context.Context {
	return context.WithValue(ctx, workerKey, w)
}

func workerFromContext(ctx context.Context) *worker {
	w, _ := ctx.Value(workerKey).(*worker)
	return w
}

// body runs until the pool is shut down: pop the newest submitted future
// (the source's list_pop_back — this is a LIFO stack, not a FIFO, despite
// the "queue" name), run it outside the lock, publish its result, repeat.
func (w *worker) body(ctx context.Context) error {
	p := w.pool
	wctx := withWorker(ctx, w)

	p.mu.Acquire(0)
	for !p.shutdown {
		if len(p.stack) == 0 {
			p.cond.Wait(p.mu, 0)
			continue
		}
		fut := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		fut.status.Store(int32(Executing))
		p.mu.Release(0)

		result := fut.task(wctx, p, fut.args)

		p.mu.Acquire(0)
		fut.result = result
		fut.status.Store(int32(Completed))
		p.completed++
		p.cond.Broadcast()
	}
	p.mu.Release(0)
	return nil
}
