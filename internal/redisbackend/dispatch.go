// Copyright 2025 James Ross
package redisbackend

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/idgen"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

// priorityOffset dominates the secondary createdAt-millis term in a
// ready-set score, so ZPOPMIN always prefers higher priority first
// and falls back to createdAt ascending within the same priority.
const priorityOffset = 1e13

func (b *Backend) Dispatch(ctx context.Context, params backend.DispatchParams) (string, error) {
	b.mu.Lock()
	def, ok := b.lookupJobLocked(params.Queue, params.Job)
	b.mu.Unlock()
	if !ok {
		return "", ignitererr.Newf(ignitererr.CodeNotRegistered, "job %q not registered on queue %q", params.Job, params.Queue)
	}
	return b.dispatchNow(ctx, def, params, params.Delay)
}

func (b *Backend) Schedule(ctx context.Context, params backend.ScheduleParams) (string, error) {
	now := time.Now()
	if err := backend.ValidateScheduleParams(params, now); err != nil {
		return "", err
	}

	b.mu.Lock()
	def, ok := b.lookupJobLocked(params.Queue, params.Job)
	b.mu.Unlock()
	if !ok {
		return "", ignitererr.Newf(ignitererr.CodeNotRegistered, "job %q not registered on queue %q", params.Job, params.Queue)
	}

	if params.Cron != "" || params.Every > 0 {
		return b.scheduleRecurring(params)
	}

	delay := params.Delay
	if params.At != nil {
		delay = params.At.Sub(now)
	}
	return b.dispatchNow(ctx, def, params.DispatchParams, delay)
}

// scheduleRecurring registers a repeating re-dispatch of params
// against the cron scheduler and returns a schedule id identifying
// the recurring registration (distinct from any one execution's job
// id, since a recurring schedule produces many job records over its
// lifetime).
func (b *Backend) scheduleRecurring(params backend.ScheduleParams) (string, error) {
	scheduleID := idgen.New("sched")
	entry := &recurringEntry{}

	var cronSpec string
	if params.Cron != "" {
		cronSpec = params.Cron
	} else {
		cronSpec = "@every " + params.Every.String()
	}

	schedule, err := b.cronParser.Parse(cronSpec)
	if err != nil {
		return "", ignitererr.Newf(ignitererr.CodeInvalidSchedule, "invalid recurring schedule: %v", err)
	}
	filtered := filteredSchedule{inner: schedule, def: backend.CronDefinition{
		SkipWeekends:      params.SkipWeekends,
		OnlyBusinessHours: pickBusinessHours(params),
		OnlyWeekdays:      params.OnlyWeekdays,
		SkipDates:         params.SkipDates,
	}}

	b.cron.Schedule(filtered, cron.FuncJob(func() {
		b.mu.Lock()
		if params.MaxExecutions > 0 && entry.executions >= params.MaxExecutions {
			b.mu.Unlock()
			return
		}
		entry.executions++
		def, ok := b.lookupJobLocked(params.Queue, params.Job)
		b.mu.Unlock()
		if !ok {
			return
		}
		_, _ = b.dispatchNow(context.Background(), def, params.DispatchParams, 0)
	}))

	return scheduleID, nil
}

func pickBusinessHours(params backend.ScheduleParams) *backend.BusinessHours {
	if !params.OnlyBusinessHours {
		return nil
	}
	return params.BusinessHours
}

func (b *Backend) dispatchNow(ctx context.Context, def backend.JobDefinition, params backend.DispatchParams, delay time.Duration) (string, error) {
	id := params.JobID
	if id == "" {
		id = idgen.New("job")
	}
	maxAttempts := def.Attempts
	if params.Attempts > 0 {
		maxAttempts = params.Attempts
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	priority := def.Priority
	if params.Priority != 0 {
		priority = params.Priority
	}

	now := time.Now()
	rec := backend.Record{
		ID:          id,
		Name:        params.Job,
		Queue:       params.Queue,
		MaxAttempts: maxAttempts,
		Priority:    priority,
		CreatedAt:   now,
		Input:       params.Input,
		Metadata:    params.Metadata,
		Scope:       params.Scope,
	}

	paused, err := b.queueOrJobPaused(ctx, params.Queue, params.Job)
	if err != nil {
		return "", err
	}
	switch {
	case paused:
		rec.Status = backend.StatusPaused
	case delay > 0:
		rec.Status = backend.StatusDelayed
	default:
		rec.Status = backend.StatusWaiting
	}

	fields, err := encodeRecord(rec)
	if err != nil {
		return "", err
	}

	pipe := b.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(id), fields)
	pipe.SAdd(ctx, idsKey(params.Queue), id)
	switch rec.Status {
	case backend.StatusDelayed:
		pipe.ZAdd(ctx, delayedKey(params.Queue), zMember(float64(now.Add(delay).UnixMilli()), id))
	case backend.StatusWaiting:
		pipe.ZAdd(ctx, readyKey(params.Queue), zMember(scoreTime(priority, now), id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	b.mu.Lock()
	metrics := b.metrics
	b.mu.Unlock()
	metrics.Enqueued(params.Queue, params.Job)
	return id, nil
}

func (b *Backend) queueOrJobPaused(ctx context.Context, queue, job string) (bool, error) {
	paused, err := b.rdb.Exists(ctx, pausedKey(queue)).Result()
	if err != nil {
		return false, err
	}
	if paused > 0 {
		return true, nil
	}
	isMember, err := b.rdb.SIsMember(ctx, pausedJobsKey(queue), job).Result()
	if err != nil {
		return false, err
	}
	return isMember, nil
}
