// Copyright 2025 James Ross
package membackend

import (
	"context"
	"time"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
)

// progressSetter returns the raw progress callback handed to handlers
// via backend.ExecutionContext.Progress. It only mutates the record;
// any lifecycle-event publication around it is the runtime manager's
// responsibility, not the backend's.
func (b *Backend) progressSetter(id string) func(ctx context.Context, pct int, message string) error {
	return func(_ context.Context, pct int, message string) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		rec, ok := b.records[id]
		if !ok {
			return nil
		}
		rec.Progress = pct
		if message != "" {
			rec.Logs = append(rec.Logs, backend.LogEntry{
				Timestamp: time.Now(), Level: backend.LogInfo, Message: message,
			})
		}
		return nil
	}
}

// runClaimed executes a claimed record's handler outside the lock and
// applies the resulting state transition (spec §4.6 steps 6-10).
func (b *Backend) runClaimed(ctx context.Context, rec backend.Record, hooks backend.WorkerHooks) (success bool) {
	if hooks.OnActive != nil {
		hooks.OnActive(ctx, rec)
	}

	b.mu.Lock()
	def, ok := b.lookupJobLocked(rec.Queue, rec.Name)
	metrics := b.metrics
	b.mu.Unlock()
	if !ok {
		b.finishFailed(rec.ID, ignitererr.Newf(ignitererr.CodeNotRegistered, "job %q not registered on queue %q", rec.Name, rec.Queue), hooks, metrics)
		return false
	}
	metrics.Started(rec.Queue, rec.Name)

	execCtx := backend.ExecutionContext{
		JobID:       rec.ID,
		Queue:       rec.Queue,
		Job:         rec.Name,
		Attempt:     rec.AttemptsMade,
		MaxAttempts: rec.MaxAttempts,
		Input:       rec.Input,
		Metadata:    rec.Metadata,
		Scope:       rec.Scope,
		Progress:    b.progressSetter(rec.ID),
	}

	start := time.Now()
	result, err := def.Handler(ctx, execCtx)
	duration := time.Since(start)

	if err == nil {
		b.finishSucceeded(rec.ID, result, hooks, metrics, duration)
		return true
	}
	b.finishFailedOrRetry(rec.ID, err, hooks, metrics, duration)
	return false
}

func (b *Backend) finishSucceeded(id string, result any, hooks backend.WorkerHooks, metrics *telemetry.Metrics, duration time.Duration) {
	b.mu.Lock()
	rec, ok := b.records[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	now := time.Now()
	rec.Status = backend.StatusCompleted
	rec.Progress = 100
	rec.Result = result
	rec.CompletedAt = &now
	cp := snapshotLocked(rec)
	b.mu.Unlock()

	metrics.Completed(cp.Queue, cp.Name, duration)
	if hooks.OnSuccess != nil {
		hooks.OnSuccess(context.Background(), cp)
	}
}

// finishFailedOrRetry applies spec §3's active->waiting (retryable) or
// active->failed (final-attempt) transition.
func (b *Backend) finishFailedOrRetry(id string, cause error, hooks backend.WorkerHooks, metrics *telemetry.Metrics, duration time.Duration) {
	b.mu.Lock()
	rec, ok := b.records[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	rec.Logs = append(rec.Logs, backend.LogEntry{Timestamp: time.Now(), Level: backend.LogError, Message: cause.Error()})

	if rec.AttemptsMade < rec.MaxAttempts {
		rec.Status = backend.StatusWaiting
		queue, name := rec.Queue, rec.Name
		b.kick()
		b.mu.Unlock()
		metrics.Failed(queue, name, false, duration)
		metrics.Retried(queue, name)
		return
	}

	now := time.Now()
	rec.Status = backend.StatusFailed
	rec.CompletedAt = &now
	rec.Error = cause.Error()
	cp := snapshotLocked(rec)
	b.mu.Unlock()

	metrics.Failed(cp.Queue, cp.Name, true, duration)
	if hooks.OnFailure != nil {
		hooks.OnFailure(context.Background(), cp, cause)
	}
}

func (b *Backend) finishFailed(id string, cause error, hooks backend.WorkerHooks, metrics *telemetry.Metrics) {
	b.mu.Lock()
	rec, ok := b.records[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	now := time.Now()
	rec.Status = backend.StatusFailed
	rec.CompletedAt = &now
	rec.Error = cause.Error()
	cp := snapshotLocked(rec)
	b.mu.Unlock()

	metrics.Failed(cp.Queue, cp.Name, true, 0)
	if hooks.OnFailure != nil {
		hooks.OnFailure(context.Background(), cp, cause)
	}
}
