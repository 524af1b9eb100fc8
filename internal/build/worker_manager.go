package build

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/semtex/internal/queue"
)

// DefaultPollInterval is how long an idle worker sleeps before it looks at
// the queue again.
const DefaultPollInterval = 10 * time.Millisecond

// DefaultWorkerCount returns the pool size used when none is configured.
func DefaultWorkerCount() int {
	return max(2, runtime.NumCPU())
}

// ProcessFunc handles one dequeued file end to end.
type ProcessFunc func(ctx context.Context, e queue.Entry)

// Worker is one pool goroutine.
type Worker struct {
	id   int
	busy atomic.Bool
}

// ID returns the worker's index in its pool.
func (w *Worker) ID() int {
	return w.id
}

// Busy reports whether the worker holds, or is about to take, a file.
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// WorkerPool runs a fixed set of workers that poll a FileQueue.
type WorkerPool struct {
	workers []*Worker
	poll    time.Duration
	shared  *SharedContext
	process ProcessFunc

	// group spawns and joins the worker goroutines
	group   errgroup.Group
	stop    chan struct{}
	started atomic.Bool
	stopped sync.Once
}

// NewWorkerPool creates a pool of size workers. Nothing runs until Start.
func NewWorkerPool(size int, poll time.Duration, shared *SharedContext, process ProcessFunc) *WorkerPool {
	if size < 1 {
		size = DefaultWorkerCount()
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	workers := make([]*Worker, size)
	for i := range workers {
		workers[i] = &Worker{id: i}
	}

	return &WorkerPool{
		workers: workers,
		poll:    poll,
		shared:  shared,
		process: process,
		stop:    make(chan struct{}),
	}
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int {
	return len(wp.workers)
}

// Start launches the workers. Only the first call has an effect; it
// reports whether this call started the pool.
func (wp *WorkerPool) Start(ctx context.Context) bool {
	if !wp.started.CompareAndSwap(false, true) {
		return false
	}
	for _, w := range wp.workers {
		w := w
		wp.group.Go(func() error {
			wp.run(ctx, w)
			return nil
		})
	}
	return true
}

// Started reports whether Start has run.
func (wp *WorkerPool) Started() bool {
	return wp.started.Load()
}

// AnyBusy reports whether some worker holds a file.
func (wp *WorkerPool) AnyBusy() bool {
	for _, w := range wp.workers {
		if w.Busy() {
			return true
		}
	}
	return false
}

// Stop tells every worker to exit after its current file and waits for
// them. It is safe to call more than once and on a pool never started.
func (wp *WorkerPool) Stop() error {
	wp.stopped.Do(func() { close(wp.stop) })
	return wp.group.Wait()
}

func (wp *WorkerPool) run(ctx context.Context, w *Worker) {
	for {
		select {
		case <-wp.stop:
			return
		default:
		}

		if wp.shared.HasError() {
			wp.sleep()
			continue
		}

		// busy goes up before the dequeue so a file in hand is always
		// visible to the shutdown check.
		w.busy.Store(true)
		entry, ok := wp.shared.Queue.TryDequeue()
		if !ok {
			w.busy.Store(false)
			wp.sleep()
			continue
		}

		wp.process(ctx, entry)
		w.busy.Store(false)
	}
}

func (wp *WorkerPool) sleep() {
	timer := time.NewTimer(wp.poll)
	defer timer.Stop()

	select {
	case <-wp.stop:
	case <-timer.C:
	}
}
