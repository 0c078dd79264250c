// Copyright 2025 James Ross
package redisbackend

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

const pollInterval = 100 * time.Millisecond

type workerHandle struct {
	id      string
	queues  []string
	cfg     backend.WorkerConfig
	backend *Backend

	cancel context.CancelFunc
	wg     sync.WaitGroup

	paused    atomic.Bool
	closed    atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64
	startedAt time.Time
}

var _ backend.WorkerHandle = (*workerHandle)(nil)

func (w *workerHandle) ID() string         { return w.id }
func (w *workerHandle) Queues() []string   { return w.queues }
func (w *workerHandle) IsRunning() bool    { return !w.closed.Load() }
func (w *workerHandle) IsPaused() bool     { return w.paused.Load() }
func (w *workerHandle) IsClosed() bool     { return w.closed.Load() }

func (w *workerHandle) Pause(context.Context) error  { w.paused.Store(true); return nil }
func (w *workerHandle) Resume(context.Context) error { w.paused.Store(false); return nil }

func (w *workerHandle) Close(context.Context) error {
	if w.closed.CompareAndSwap(false, true) {
		w.cancel()
		w.wg.Wait()
	}
	return nil
}

func (w *workerHandle) GetMetrics() backend.WorkerMetrics {
	return backend.WorkerMetrics{
		Processed:   w.processed.Load(),
		Failed:      w.failed.Load(),
		Concurrency: w.cfg.Concurrency,
		Uptime:      time.Since(w.startedAt),
	}
}

// CreateWorker starts `concurrency` claim loops across the given
// queues (or every registered queue, if none were named).
func (b *Backend) CreateWorker(ctx context.Context, config backend.WorkerConfig) (backend.WorkerHandle, error) {
	queues := config.Queues
	if len(queues) == 0 {
		queues = b.registeredQueues()
	}
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	w := &workerHandle{
		id:        "worker_" + uuid.New().String(),
		queues:    queues,
		cfg:       config,
		backend:   b,
		cancel:    cancel,
		startedAt: time.Now(),
	}

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.loop(workerCtx)
	}

	b.mu.Lock()
	b.workers[w.id] = w
	b.mu.Unlock()

	_ = ctx
	return w, nil
}

func (b *Backend) registeredQueues() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for q := range b.jobDefs {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	for q := range b.cronDefs {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

func (w *workerHandle) loop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	idleTicks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if w.paused.Load() {
			continue
		}

		claimed := false
		for _, queue := range w.queues {
			_ = w.backend.reclaimStale(ctx, queue)
			w.backend.promoteDelayed(ctx, queue)

			paused, err := w.backend.rdb.Exists(ctx, pausedKey(queue)).Result()
			if err == nil && paused > 0 {
				continue
			}
			id, ok, err := w.backend.claimOne(ctx, queue)
			if err != nil || !ok {
				continue
			}
			claimed = true
			w.backend.mu.Lock()
			metrics := w.backend.metrics
			w.backend.mu.Unlock()
			metrics.WorkerActiveAdd(w.id, 1)
			w.run(ctx, queue, id)
			metrics.WorkerActiveAdd(w.id, -1)
		}

		if claimed {
			idleTicks = 0
		} else {
			idleTicks++
			if idleTicks == 20 && w.cfg.Hooks.OnIdle != nil {
				w.cfg.Hooks.OnIdle(ctx, w.id)
			}
		}
	}
}

// promoteDelayed moves delayed-set members whose run time has
// arrived onto the ready set.
func (b *Backend) promoteDelayed(ctx context.Context, queue string) {
	due, err := b.rdb.ZRangeByScore(ctx, delayedKey(queue), &redis.ZRangeBy{
		Min: "-inf", Max: floatToStr(float64(time.Now().UnixMilli())),
	}).Result()
	if err != nil || len(due) == 0 {
		return
	}
	for _, id := range due {
		fields, err := b.rdb.HGetAll(ctx, jobKey(id)).Result()
		if err != nil || len(fields) == 0 {
			b.rdb.ZRem(ctx, delayedKey(queue), id)
			continue
		}
		rec, _ := decodeRecord(fields)
		b.rdb.ZRem(ctx, delayedKey(queue), id)
		b.rdb.HSet(ctx, jobKey(id), "status", string(backend.StatusWaiting))
		b.rdb.ZAdd(ctx, readyKey(queue), zMember(scoreTime(rec.Priority, rec.CreatedAt), id))
	}
}

func (b *Backend) GetWorkers(context.Context) ([]backend.WorkerHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.WorkerHandle, 0, len(b.workers))
	for _, w := range b.workers {
		out = append(out, w)
	}
	return out, nil
}
