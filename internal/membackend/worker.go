// Copyright 2025 James Ross
package membackend

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

// pollInterval bounds how long a worker goroutine can sleep before it
// re-checks for newly available work, even if it missed a kick.
const pollInterval = 50 * time.Millisecond

type workerHandle struct {
	id          string
	queues      []string
	concurrency int
	hooks       backend.WorkerHooks
	b           *Backend

	mu        sync.Mutex
	paused    bool
	closed    bool
	startedAt time.Time

	running   int64
	processed int64
	failed    int64
	totalDur  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ backend.WorkerHandle = (*workerHandle)(nil)

func (b *Backend) CreateWorker(_ context.Context, config backend.WorkerConfig) (backend.WorkerHandle, error) {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &workerHandle{
		id:          "worker_" + uuid.New().String(),
		queues:      config.Queues,
		concurrency: concurrency,
		hooks:       config.Hooks,
		b:           b,
		startedAt:   time.Now(),
		cancel:      cancel,
	}

	b.mu.Lock()
	b.workers[w.id] = w
	b.mu.Unlock()

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}
	return w, nil
}

func (b *Backend) GetWorkers(_ context.Context) ([]backend.WorkerHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.WorkerHandle, 0, len(b.workers))
	for _, w := range b.workers {
		out = append(out, w)
	}
	return out, nil
}

func (w *workerHandle) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.Lock()
		paused, closed := w.paused, w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		if paused {
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}

		queues := w.b.queuesForWorker(w.queues)

		w.b.mu.Lock()
		rec, ok := w.b.claimNextLocked(queues)
		waitCh := w.b.wake
		w.b.mu.Unlock()

		if !ok {
			if w.hooks.OnIdle != nil {
				w.hooks.OnIdle(ctx, w.id)
			}
			select {
			case <-ctx.Done():
				return
			case <-waitCh:
			case <-time.After(pollInterval):
			}
			continue
		}

		atomic.AddInt64(&w.running, 1)
		w.b.mu.Lock()
		metrics := w.b.metrics
		w.b.mu.Unlock()
		metrics.WorkerActiveAdd(w.id, 1)
		start := time.Now()
		success := w.b.runClaimed(ctx, snapshotLocked(rec), w.hooks)
		elapsed := time.Since(start)
		metrics.WorkerActiveAdd(w.id, -1)
		atomic.AddInt64(&w.running, -1)

		w.mu.Lock()
		w.processed++
		if !success {
			w.failed++
		}
		w.totalDur += elapsed
		w.mu.Unlock()
	}
}

func (w *workerHandle) ID() string      { return w.id }
func (w *workerHandle) Queues() []string { return w.queues }

func (w *workerHandle) Pause(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = true
	return nil
}

func (w *workerHandle) Resume(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = false
	return nil
}

func (w *workerHandle) Close(_ context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()

	w.b.mu.Lock()
	delete(w.b.workers, w.id)
	w.b.mu.Unlock()
	return nil
}

func (w *workerHandle) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed && !w.paused
}

func (w *workerHandle) IsPaused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

func (w *workerHandle) IsClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *workerHandle) GetMetrics() backend.WorkerMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	avg := time.Duration(0)
	if w.processed > 0 {
		avg = w.totalDur / time.Duration(w.processed)
	}
	return backend.WorkerMetrics{
		Processed:   w.processed,
		Failed:      w.failed,
		AvgDuration: avg,
		Concurrency: w.concurrency,
		Uptime:      time.Since(w.startedAt),
	}
}
