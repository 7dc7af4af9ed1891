package ingest

import (
	"context"
	"sync"
)

// Job is one unit of sentence work. Its result travels through channels
// owned by the caller; the error is for the caller's own bookkeeping.
type Job func(ctx context.Context) error

// WorkerPool decodes and canonicalizes sentences on a fixed number of
// goroutines.
type WorkerPool struct {
	size  int
	queue chan Job
	done  chan struct{} // closed by Close, releases blocked senders
	wg    sync.WaitGroup

	// senders hold gate for reading while they may send on queue.
	gate     sync.RWMutex
	shut     bool
	shutOnce sync.Once
}

// NewWorkerPool returns a pool of size workers and a queue of queueLen jobs.
// Non-positive values mean one worker and a queue twice the worker count.
func NewWorkerPool(size, queueLen int) *WorkerPool {
	size = max(size, 1)
	if queueLen <= 0 {
		queueLen = 2 * size
	}
	return &WorkerPool{
		size:  size,
		queue: make(chan Job, queueLen),
		done:  make(chan struct{}),
	}
}

// Start launches the workers. Each runs until ctx is done or the pool is
// closed and its queue drained.
func (p *WorkerPool) Start(ctx context.Context) {
	p.wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.work(ctx)
	}
}

func (p *WorkerPool) work(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			_ = job(ctx)
		}
	}
}

// SubmitCtx queues job. It returns ctx.Err() when ctx ends first and
// ErrPoolClosed when the pool is, or becomes, closed.
func (p *WorkerPool) SubmitCtx(ctx context.Context, job Job) error {
	p.gate.RLock()
	defer p.gate.RUnlock()
	if p.shut {
		return ErrPoolClosed
	}
	select {
	case p.queue <- job:
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close refuses further jobs, lets the workers finish the queue and waits
// for them. It may be called more than once.
func (p *WorkerPool) Close() {
	p.shutOnce.Do(func() {
		close(p.done)
		p.gate.Lock()
		p.shut = true
		close(p.queue)
		p.gate.Unlock()
	})
	p.wg.Wait()
}

// ErrPoolClosed is returned by SubmitCtx after Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError is the typed error of pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
