// Package reactor provides the I/O reactor's worker pool and the
// per-connection strand serializer built on top of it.
//
// Go's net package already drives readiness via the runtime netpoller, so
// Pool does not reimplement epoll/kqueue/IOCP multiplexing (see DESIGN.md);
// it supplies exactly what a ReactorPool needs — a fixed
// set of worker goroutines draining a posted-closure queue, kept alive by a
// "work guard" for the life of the pool.
package reactor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work posted onto a Pool or a Strand.
type Task func()

// Pool owns N worker goroutines that drain a shared task channel. It is the
// Go analog of the original's io_context plus thread group plus work guard:
// as long as the Pool is open, its goroutines never exit for lack of work.
type Pool struct {
	tasks  chan Task
	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewPool starts a pool with workers worker goroutines. workers <= 0 defaults
// to runtime.NumCPU() (at least 1), matching the original's
// hardware-concurrency default.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		tasks:  make(chan Task, 256),
		group:  g,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			p.worker(gctx)
			return nil
		})
	}
	return p
}

// NewPrivatePool starts a single-worker pool, the constructor shape the
// original offers components that do not need to share a reactor.
func NewPrivatePool() *Pool { return NewPool(1) }

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			runTask(t)
		}
	}
}

func runTask(t Task) {
	defer func() { recover() }()
	t()
}

// Post schedules fn to run on one of the pool's workers. Post never blocks
// the caller on fn's execution.
func (p *Pool) Post(fn Task) {
	select {
	case p.tasks <- fn:
	default:
		// The buffered channel is full; fall back to a fresh goroutine so a
		// burst of posts never deadlocks the caller. This mirrors io_context
		// accepting unbounded posted work.
		go runTask(fn)
	}
}

// Close releases the work guard and waits for every worker to exit. Callers
// must not invoke Post concurrently with Close.
func (p *Pool) Close() {
	p.cancel()
	close(p.tasks)
	_ = p.group.Wait()
}
