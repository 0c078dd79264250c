// Copyright 2025 James Ross
package redisbackend

import (
	"context"
	"time"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
)

// run executes a claimed job's handler outside any lock and applies
// the resulting state transition, mirroring membackend's claim/run/
// record cycle but against Redis-backed state.
func (w *workerHandle) run(ctx context.Context, queue, id string) {
	b := w.backend
	fields, err := b.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil || len(fields) == 0 {
		b.rdb.ZRem(ctx, processingKey(queue), id)
		return
	}
	rec, _ := decodeRecord(fields)

	if w.cfg.Hooks.OnActive != nil {
		w.cfg.Hooks.OnActive(ctx, rec)
	}

	b.mu.Lock()
	def, ok := b.lookupJobLocked(queue, rec.Name)
	metrics := b.metrics
	b.mu.Unlock()
	if !ok {
		w.finishFailed(ctx, queue, rec, ignitererr.Newf(ignitererr.CodeNotRegistered, "job %q not registered on queue %q", rec.Name, queue), metrics, 0)
		return
	}
	metrics.Started(queue, rec.Name)

	execCtx := backend.ExecutionContext{
		JobID:       rec.ID,
		Queue:       rec.Queue,
		Job:         rec.Name,
		Attempt:     rec.AttemptsMade,
		MaxAttempts: rec.MaxAttempts,
		Input:       rec.Input,
		Metadata:    rec.Metadata,
		Scope:       rec.Scope,
		Progress:    b.progressSetter(ctx, id),
	}

	start := time.Now()
	result, herr := def.Handler(ctx, execCtx)
	duration := time.Since(start)

	if herr == nil {
		w.finishSucceeded(ctx, queue, rec, result, metrics, duration)
		w.processed.Add(1)
		if w.cfg.Hooks.OnSuccess != nil {
			rec.Status = backend.StatusCompleted
			rec.Result = result
			w.cfg.Hooks.OnSuccess(ctx, rec)
		}
		return
	}

	w.failed.Add(1)
	w.finishFailedOrRetry(ctx, queue, rec, herr, metrics, duration)
	if w.cfg.Hooks.OnFailure != nil {
		w.cfg.Hooks.OnFailure(ctx, rec, herr)
	}
}

func (b *Backend) progressSetter(ctx context.Context, id string) func(context.Context, int, string) error {
	return func(_ context.Context, pct int, message string) error {
		return b.rdb.HSet(ctx, jobKey(id), "progress", pct).Err()
	}
}

func (w *workerHandle) finishSucceeded(ctx context.Context, queue string, rec backend.Record, result any, metrics *telemetry.Metrics, duration time.Duration) {
	b := w.backend
	now := time.Now()
	rec.Status = backend.StatusCompleted
	rec.Result = result
	rec.CompletedAt = &now
	fields, err := encodeRecord(rec)
	if err != nil {
		return
	}
	pipe := b.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(rec.ID), fields)
	pipe.ZRem(ctx, processingKey(queue), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return
	}
	metrics.Completed(queue, rec.Name, duration)
}

func (w *workerHandle) finishFailedOrRetry(ctx context.Context, queue string, rec backend.Record, cause error, metrics *telemetry.Metrics, duration time.Duration) {
	b := w.backend
	rec.Logs = append(rec.Logs, backend.LogEntry{Timestamp: time.Now(), Level: backend.LogError, Message: cause.Error()})

	if rec.AttemptsMade < rec.MaxAttempts {
		rec.Status = backend.StatusWaiting
		fields, err := encodeRecord(rec)
		if err != nil {
			return
		}
		pipe := b.rdb.TxPipeline()
		pipe.HSet(ctx, jobKey(rec.ID), fields)
		pipe.ZRem(ctx, processingKey(queue), rec.ID)
		pipe.ZAdd(ctx, readyKey(queue), zMember(scoreTime(rec.Priority, rec.CreatedAt), rec.ID))
		if _, err := pipe.Exec(ctx); err != nil {
			return
		}
		metrics.Failed(queue, rec.Name, false, duration)
		metrics.Retried(queue, rec.Name)
		return
	}

	w.finishFailed(ctx, queue, rec, cause, metrics, duration)
}

func (w *workerHandle) finishFailed(ctx context.Context, queue string, rec backend.Record, cause error, metrics *telemetry.Metrics, duration time.Duration) {
	b := w.backend
	now := time.Now()
	rec.Status = backend.StatusFailed
	rec.CompletedAt = &now
	rec.Error = cause.Error()
	fields, err := encodeRecord(rec)
	if err != nil {
		return
	}
	pipe := b.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(rec.ID), fields)
	pipe.ZRem(ctx, processingKey(queue), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return
	}
	metrics.Failed(queue, rec.Name, true, duration)
}
