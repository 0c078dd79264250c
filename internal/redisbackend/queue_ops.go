// Copyright 2025 James Ross
package redisbackend

import (
	"context"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

func (b *Backend) GetJob(ctx context.Context, _, id string) (backend.Record, error) {
	fields, err := b.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return backend.Record{}, err
	}
	if len(fields) == 0 {
		return backend.Record{}, ignitererr.Newf(ignitererr.CodeNotFound, "job %q not found", id)
	}
	return decodeRecord(fields)
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

// RetryJob resets a failed job's attempt count and moves it back onto
// the ready set, mirroring membackend's reset-to-zero decision
// (documented in DESIGN.md) so a job at MaxAttempts can always be
// manually retried.
func (b *Backend) RetryJob(ctx context.Context, queue, id string) error {
	rec, err := b.GetJob(ctx, queue, id)
	if err != nil {
		return err
	}
	if rec.Status != backend.StatusFailed {
		return ignitererr.Newf(ignitererr.CodeQueueOperationFailed, "job %q is not in a failed state", id)
	}
	rec.AttemptsMade = 0
	rec.Error = ""
	rec.CompletedAt = nil
	rec.Status = backend.StatusWaiting
	fields, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	pipe := b.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(id), fields)
	pipe.ZAdd(ctx, readyKey(queue), zMember(scoreTime(rec.Priority, rec.CreatedAt), id))
	_, err = pipe.Exec(ctx)
	return err
}

func (b *Backend) RemoveJob(ctx context.Context, queue, id string) error {
	pipe := b.rdb.TxPipeline()
	pipe.Del(ctx, jobKey(id))
	pipe.SRem(ctx, idsKey(queue), id)
	pipe.ZRem(ctx, readyKey(queue), id)
	pipe.ZRem(ctx, delayedKey(queue), id)
	pipe.ZRem(ctx, processingKey(queue), id)
	_, err := pipe.Exec(ctx)
	return err
}

// PromoteJob moves a delayed job onto the ready set immediately.
func (b *Backend) PromoteJob(ctx context.Context, queue, id string) error {
	rec, err := b.GetJob(ctx, queue, id)
	if err != nil {
		return err
	}
	if rec.Status != backend.StatusDelayed {
		return ignitererr.Newf(ignitererr.CodeQueueOperationFailed, "job %q is not delayed", id)
	}
	rec.Status = backend.StatusWaiting
	pipe := b.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(id), "status", string(backend.StatusWaiting))
	pipe.ZRem(ctx, delayedKey(queue), id)
	pipe.ZAdd(ctx, readyKey(queue), zMember(scoreTime(rec.Priority, rec.CreatedAt), id))
	_, err = pipe.Exec(ctx)
	return err
}

func (b *Backend) MoveJobToFailed(ctx context.Context, queue, id string, reason string) error {
	now := time.Now()
	pipe := b.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(id), map[string]any{
		"status":      string(backend.StatusFailed),
		"error":       reason,
		"completedAt": now.Format(timeLayout),
	})
	pipe.ZRem(ctx, readyKey(queue), id)
	pipe.ZRem(ctx, delayedKey(queue), id)
	pipe.ZRem(ctx, processingKey(queue), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (b *Backend) RetryMany(ctx context.Context, queue string, ids []string) error {
	for _, id := range ids {
		if err := b.RetryJob(ctx, queue, id); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) RemoveMany(ctx context.Context, queue string, ids []string) error {
	for _, id := range ids {
		if err := b.RemoveJob(ctx, queue, id); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) GetQueueInfo(ctx context.Context, queue string) (backend.QueueInfo, error) {
	paused, err := b.rdb.Exists(ctx, pausedKey(queue)).Result()
	if err != nil {
		return backend.QueueInfo{}, err
	}
	b.mu.Lock()
	var jobs, crons []string
	for name := range b.jobDefs[queue] {
		jobs = append(jobs, name)
	}
	for name := range b.cronDefs[queue] {
		crons = append(crons, name)
	}
	b.mu.Unlock()
	return backend.QueueInfo{Name: queue, Paused: paused > 0, Jobs: jobs, Crons: crons}, nil
}

func (b *Backend) GetQueueJobCounts(ctx context.Context, queue string) (backend.JobCounts, error) {
	ids, err := b.rdb.SMembers(ctx, idsKey(queue)).Result()
	if err != nil {
		return backend.JobCounts{}, err
	}
	var counts backend.JobCounts
	for _, id := range ids {
		fields, err := b.rdb.HGetAll(ctx, jobKey(id)).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		switch backend.Status(fields["status"]) {
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
	b.mu.Lock()
	metrics := b.metrics
	b.mu.Unlock()
	metrics.QueueDepthSet(queue, "waiting", float64(counts.Waiting))
	metrics.QueueDepthSet(queue, "active", float64(counts.Active))
	metrics.QueueDepthSet(queue, "delayed", float64(counts.Delayed))
	return counts, nil
}

func (b *Backend) ListQueues(ctx context.Context) ([]string, error) {
	return b.rdb.SMembers(ctx, queuesSetKey()).Result()
}

func (b *Backend) PauseQueue(ctx context.Context, queue string) error {
	return b.rdb.Set(ctx, pausedKey(queue), "1", 0).Err()
}

func (b *Backend) ResumeQueue(ctx context.Context, queue string) error {
	return b.rdb.Del(ctx, pausedKey(queue)).Err()
}

// DrainQueue removes every waiting (and paused) job, leaving active
// and completed/failed history untouched.
func (b *Backend) DrainQueue(ctx context.Context, queue string) error {
	ids, err := b.rdb.SMembers(ctx, idsKey(queue)).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		rec, err := b.GetJob(ctx, queue, id)
		if err != nil || (rec.Status != backend.StatusWaiting && rec.Status != backend.StatusPaused) {
			continue
		}
		if err := b.RemoveJob(ctx, queue, id); err != nil {
			return err
		}
	}
	return b.rdb.Del(ctx, readyKey(queue)).Err()
}

func (b *Backend) CleanQueue(ctx context.Context, queue string, opts backend.CleanOptions) (int, error) {
	ids, err := b.rdb.SMembers(ctx, idsKey(queue)).Result()
	if err != nil {
		return 0, err
	}
	statusSet := make(map[backend.Status]bool, len(opts.Status))
	for _, s := range opts.Status {
		statusSet[s] = true
	}
	cutoff := time.Now().Add(-opts.OlderThan)

	removed := 0
	for _, id := range ids {
		if opts.Limit > 0 && removed >= opts.Limit {
			break
		}
		rec, err := b.GetJob(ctx, queue, id)
		if err != nil {
			continue
		}
		if len(statusSet) > 0 && !statusSet[rec.Status] {
			continue
		}
		if opts.OlderThan > 0 && rec.CreatedAt.After(cutoff) {
			continue
		}
		if opts.KeyGlob != "" {
			if ok, _ := doublestar.Match(opts.KeyGlob, id); !ok {
				continue
			}
		}
		if err := b.RemoveJob(ctx, queue, id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (b *Backend) ObliterateQueue(ctx context.Context, queue string) error {
	ids, err := b.rdb.SMembers(ctx, idsKey(queue)).Result()
	if err != nil {
		return err
	}
	pipe := b.rdb.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, jobKey(id))
	}
	pipe.Del(ctx, readyKey(queue), delayedKey(queue), processingKey(queue), idsKey(queue), pausedKey(queue), pausedJobsKey(queue))
	pipe.SRem(ctx, queuesSetKey(), queue)
	_, err = pipe.Exec(ctx)

	b.mu.Lock()
	delete(b.jobDefs, queue)
	delete(b.cronDefs, queue)
	b.mu.Unlock()
	return err
}

func (b *Backend) RetryAllInQueue(ctx context.Context, queue string) (int, error) {
	ids, err := b.rdb.SMembers(ctx, idsKey(queue)).Result()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		rec, err := b.GetJob(ctx, queue, id)
		if err != nil || rec.Status != backend.StatusFailed {
			continue
		}
		if err := b.RetryJob(ctx, queue, id); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (b *Backend) PauseJobType(ctx context.Context, queue, job string) error {
	return b.rdb.SAdd(ctx, pausedJobsKey(queue), job).Err()
}

func (b *Backend) ResumeJobType(ctx context.Context, queue, job string) error {
	return b.rdb.SRem(ctx, pausedJobsKey(queue), job).Err()
}
