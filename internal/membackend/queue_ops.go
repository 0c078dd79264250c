// Copyright 2025 James Ross
package membackend

import (
	"context"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

func (b *Backend) GetJob(_ context.Context, _, id string) (backend.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[id]
	if !ok {
		return backend.Record{}, ignitererr.Newf(ignitererr.CodeNotFound, "job %q not found", id)
	}
	return snapshotLocked(rec), nil
}

func (b *Backend) GetJobState(ctx context.Context, queue, id string) (backend.Status, error) {
	rec, err := b.GetJob(ctx, queue, id)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

func (b *Backend) GetJobLogs(ctx context.Context, queue, id string) ([]backend.LogEntry, error) {
	rec, err := b.GetJob(ctx, queue, id)
	if err != nil {
		return nil, err
	}
	return rec.Logs, nil
}

func (b *Backend) GetJobProgress(ctx context.Context, queue, id string) (int, error) {
	rec, err := b.GetJob(ctx, queue, id)
	if err != nil {
		return 0, err
	}
	return rec.Progress, nil
}

func (b *Backend) RetryJob(_ context.Context, _, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[id]
	if !ok {
		return ignitererr.Newf(ignitererr.CodeNotFound, "job %q not found", id)
	}
	if rec.Status != backend.StatusFailed {
		return ignitererr.Newf(ignitererr.CodeQueueOperationFailed, "job %q is not failed", id)
	}
	// Operator-initiated retry resets attemptsMade; see DESIGN.md for
	// the §9 retryAllInQueue ambiguity and why this path takes the same
	// stance.
	rec.AttemptsMade = 0
	rec.Error = ""
	rec.CompletedAt = nil
	rec.Status = backend.StatusWaiting
	b.kick()
	return nil
}

func (b *Backend) RemoveJob(_ context.Context, _, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeJobLocked(id)
}

func (b *Backend) removeJobLocked(id string) error {
	rec, ok := b.records[id]
	if !ok {
		return ignitererr.Newf(ignitererr.CodeNotFound, "job %q not found", id)
	}
	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
	delete(b.records, id)
	if ids, ok := b.queueIDs[rec.Queue]; ok {
		delete(ids, id)
	}
	return nil
}

func (b *Backend) PromoteJob(_ context.Context, _, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[id]
	if !ok {
		return ignitererr.Newf(ignitererr.CodeNotFound, "job %q not found", id)
	}
	if rec.Status != backend.StatusDelayed {
		return ignitererr.Newf(ignitererr.CodeQueueOperationFailed, "job %q is not delayed", id)
	}
	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
	rec.Status = backend.StatusWaiting
	b.kick()
	return nil
}

func (b *Backend) MoveJobToFailed(_ context.Context, _, id string, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[id]
	if !ok {
		return ignitererr.Newf(ignitererr.CodeNotFound, "job %q not found", id)
	}
	now := time.Now()
	rec.Status = backend.StatusFailed
	rec.CompletedAt = &now
	rec.Error = reason
	return nil
}

func (b *Backend) RetryMany(ctx context.Context, queue string, ids []string) error {
	var firstErr error
	for _, id := range ids {
		if err := b.RetryJob(ctx, queue, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Backend) RemoveMany(ctx context.Context, queue string, ids []string) error {
	var firstErr error
	for _, id := range ids {
		if err := b.RemoveJob(ctx, queue, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Backend) GetQueueInfo(_ context.Context, queue string) (backend.QueueInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info := backend.QueueInfo{Name: queue, Paused: b.pausedQ[queue]}
	for name := range b.jobDefs[queue] {
		info.Jobs = append(info.Jobs, name)
	}
	for name := range b.cronDefs[queue] {
		info.Crons = append(info.Crons, name)
	}
	sort.Strings(info.Jobs)
	sort.Strings(info.Crons)
	return info, nil
}

func (b *Backend) GetQueueJobCounts(_ context.Context, queue string) (backend.JobCounts, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var counts backend.JobCounts
	for id := range b.queueIDs[queue] {
		rec := b.records[id]
		if rec == nil {
			continue
		}
		switch rec.Status {
		case backend.StatusWaiting:
			counts.Waiting++
		case backend.StatusActive:
			counts.Active++
		case backend.StatusCompleted:
			counts.Completed++
		case backend.StatusFailed:
			counts.Failed++
		case backend.StatusDelayed:
			counts.Delayed++
		case backend.StatusPaused:
			counts.Paused++
		}
	}
	b.metrics.QueueDepthSet(queue, "waiting", float64(counts.Waiting))
	b.metrics.QueueDepthSet(queue, "active", float64(counts.Active))
	b.metrics.QueueDepthSet(queue, "delayed", float64(counts.Delayed))
	return counts, nil
}

func (b *Backend) ListQueues(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for q := range b.queueIDs {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (b *Backend) PauseQueue(_ context.Context, queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pausedQ[queue] = true
	for id := range b.queueIDs[queue] {
		rec := b.records[id]
		if rec != nil && rec.Status == backend.StatusWaiting {
			rec.Status = backend.StatusPaused
		}
	}
	return nil
}

func (b *Backend) ResumeQueue(_ context.Context, queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pausedQ[queue] = false
	for id := range b.queueIDs[queue] {
		rec := b.records[id]
		if rec == nil || rec.Status != backend.StatusPaused {
			continue
		}
		if b.pausedJob[queue] != nil && b.pausedJob[queue][rec.Name] {
			continue // still paused at the job-type level
		}
		rec.Status = backend.StatusWaiting
	}
	b.kick()
	return nil
}

func (b *Backend) DrainQueue(_ context.Context, queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.queueIDs[queue] {
		rec := b.records[id]
		if rec == nil {
			continue
		}
		if rec.Status == backend.StatusWaiting || rec.Status == backend.StatusPaused {
			_ = b.removeJobLocked(id)
		}
	}
	return nil
}

func (b *Backend) CleanQueue(_ context.Context, queue string, opts backend.CleanOptions) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	statusSet := make(map[backend.Status]bool, len(opts.Status))
	for _, s := range opts.Status {
		statusSet[s] = true
	}
	cutoff := time.Now().Add(-opts.OlderThan)

	var ids []string
	for id := range b.queueIDs[queue] {
		rec := b.records[id]
		if rec == nil || !statusSet[rec.Status] {
			continue
		}
		ts := rec.CreatedAt
		if rec.CompletedAt != nil {
			ts = *rec.CompletedAt
		}
		if opts.OlderThan > 0 && ts.After(cutoff) {
			continue
		}
		if opts.KeyGlob != "" {
			if ok, _ := doublestar.Match(opts.KeyGlob, id); !ok {
				continue
			}
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return b.records[ids[i]].CreatedAt.Before(b.records[ids[j]].CreatedAt) })
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}
	for _, id := range ids {
		_ = b.removeJobLocked(id)
	}
	return len(ids), nil
}

func (b *Backend) ObliterateQueue(_ context.Context, queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.queueIDs[queue] {
		if t, ok := b.timers[id]; ok {
			t.Stop()
			delete(b.timers, id)
		}
		delete(b.records, id)
	}
	delete(b.queueIDs, queue)
	delete(b.jobDefs, queue)
	delete(b.cronDefs, queue)
	delete(b.pausedQ, queue)
	delete(b.pausedJob, queue)
	return nil
}

func (b *Backend) RetryAllInQueue(_ context.Context, queue string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for id := range b.queueIDs[queue] {
		rec := b.records[id]
		if rec == nil || rec.Status != backend.StatusFailed {
			continue
		}
		// See DESIGN.md: attemptsMade is reset on this operator-initiated
		// path, not merely preserved, to avoid an immediate re-failure on
		// the very next claim.
		rec.AttemptsMade = 0
		rec.Error = ""
		rec.CompletedAt = nil
		rec.Status = backend.StatusWaiting
		count++
	}
	if count > 0 {
		b.kick()
	}
	return count, nil
}

func (b *Backend) PauseJobType(_ context.Context, queue, job string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pausedJob[queue] == nil {
		b.pausedJob[queue] = make(map[string]bool)
	}
	b.pausedJob[queue][job] = true
	for id := range b.queueIDs[queue] {
		rec := b.records[id]
		if rec != nil && rec.Name == job && rec.Status == backend.StatusWaiting {
			rec.Status = backend.StatusPaused
		}
	}
	return nil
}

func (b *Backend) ResumeJobType(_ context.Context, queue, job string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pausedJob[queue] != nil {
		delete(b.pausedJob[queue], job)
	}
	for id := range b.queueIDs[queue] {
		rec := b.records[id]
		if rec == nil || rec.Name != job || rec.Status != backend.StatusPaused {
			continue
		}
		if b.pausedQ[queue] {
			continue // still paused at the queue level
		}
		rec.Status = backend.StatusWaiting
	}
	b.kick()
	return nil
}

func (b *Backend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, t := range b.timers {
		t.Stop()
	}
	b.timers = make(map[string]*time.Timer)
	workers := make([]*workerHandle, 0, len(b.workers))
	for _, w := range b.workers {
		workers = append(workers, w)
	}
	b.subs = make(map[string][]subscription)
	b.mu.Unlock()

	for _, w := range workers {
		_ = w.Close(ctx)
	}
	return nil
}
