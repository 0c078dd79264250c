// Copyright 2025 James Ross
package runtime

import (
	"context"
	"time"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
	"github.com/ignitehq/igniter-jobs/internal/queuedef"
	"github.com/ignitehq/igniter-jobs/internal/scope"
	"github.com/ignitehq/igniter-jobs/internal/validation"
)

// DispatchOptions mirrors spec §6.2's dispatch parameter bag.
type DispatchOptions struct {
	Scope            *scope.Entry
	JobID            string
	Priority         int
	Delay            time.Duration
	Attempts         int
	RemoveOnComplete *backend.RemoveOption
	RemoveOnFail     *backend.RemoveOption
	Metadata         map[string]any
	Limiter          *backend.Limiter
}

// ScheduleOptions adds spec §6.2's advanced schedule rules atop
// DispatchOptions.
type ScheduleOptions struct {
	DispatchOptions
	At                *time.Time
	Cron              string
	Every             time.Duration
	MaxExecutions     int
	TZ                string
	SkipWeekends      bool
	BusinessHours     *backend.BusinessHours
	OnlyBusinessHours bool
	OnlyWeekdays      []int
	SkipDates         []time.Time
}

// Queue returns the method-based accessor for a registered queue name
// (spec §9's resolution of the "typed proxy" open question).
func (rt *Runtime) Queue(name string) *QueueAccessor {
	return &QueueAccessor{rt: rt, name: name}
}

// QueueAccessor exposes per-job accessors plus queue-level management.
type QueueAccessor struct {
	rt   *Runtime
	name string
}

func (q *QueueAccessor) Job(name string) *JobAccessor {
	return &JobAccessor{rt: q.rt, queue: q.name, job: name}
}

func (q *QueueAccessor) Retrieve(ctx context.Context) (backend.QueueInfo, backend.JobCounts, error) {
	info, err := q.rt.adapter.GetQueueInfo(ctx, q.name)
	if err != nil {
		return backend.QueueInfo{}, backend.JobCounts{}, err
	}
	counts, err := q.rt.adapter.GetQueueJobCounts(ctx, q.name)
	return info, counts, err
}

func (q *QueueAccessor) Pause(ctx context.Context) error {
	err := q.rt.adapter.PauseQueue(ctx, q.name)
	if err == nil {
		q.rt.emit("igniter.jobs.queue.paused", map[string]any{"queue": q.name}, "debug")
	}
	return err
}

func (q *QueueAccessor) Resume(ctx context.Context) error {
	err := q.rt.adapter.ResumeQueue(ctx, q.name)
	if err == nil {
		q.rt.emit("igniter.jobs.queue.resumed", map[string]any{"queue": q.name}, "debug")
	}
	return err
}

func (q *QueueAccessor) Drain(ctx context.Context) error {
	err := q.rt.adapter.DrainQueue(ctx, q.name)
	if err == nil {
		q.rt.emit("igniter.jobs.queue.drained", map[string]any{"queue": q.name}, "debug")
	}
	return err
}

func (q *QueueAccessor) Clean(ctx context.Context, opts backend.CleanOptions) (int, error) {
	n, err := q.rt.adapter.CleanQueue(ctx, q.name, opts)
	if err == nil {
		q.rt.emit("igniter.jobs.queue.cleaned", map[string]any{"queue": q.name, "removed": n}, "debug")
	}
	return n, err
}

func (q *QueueAccessor) Obliterate(ctx context.Context) error {
	err := q.rt.adapter.ObliterateQueue(ctx, q.name)
	if err == nil {
		q.rt.emit("igniter.jobs.queue.obliterated", map[string]any{"queue": q.name}, "debug")
	}
	return err
}

func (q *QueueAccessor) RetryAll(ctx context.Context) (int, error) {
	return q.rt.adapter.RetryAllInQueue(ctx, q.name)
}

func (q *QueueAccessor) List(ctx context.Context, filter backend.SearchJobsQuery) ([]backend.Record, error) {
	filter.Queue = q.name
	return q.rt.adapter.SearchJobs(ctx, filter)
}

func (q *QueueAccessor) Subscribe(ctx context.Context, handler backend.EventHandler) (backend.Unsubscribe, error) {
	return q.rt.subscribeWithPrefix(ctx, q.name+":", handler)
}

// JobAccessor is the leaf of the method-based proxy: dispatch,
// schedule, and per-job inspection/management.
type JobAccessor struct {
	rt    *Runtime
	queue string
	job   string
}

func (j *JobAccessor) spec() (queuedef.JobSpec, error) {
	def, ok := j.rt.queues[j.queue]
	if !ok {
		return queuedef.JobSpec{}, ignitererr.Newf(ignitererr.CodeQueueNotFound, "queue %q is not registered on this runtime", j.queue)
	}
	spec, ok := def.Jobs[j.job]
	if !ok {
		return queuedef.JobSpec{}, ignitererr.Newf(ignitererr.CodeNotRegistered, "job %q is not registered on queue %q", j.job, j.queue)
	}
	return spec, nil
}

func (j *JobAccessor) Dispatch(ctx context.Context, input any, opts DispatchOptions) (string, error) {
	spec, err := j.spec()
	if err != nil {
		return "", err
	}

	validated, verr := validation.Validate(spec.Schema, input)
	if verr != nil {
		return "", verr
	}

	effectiveScope, err := j.rt.resolveScope(opts.Scope)
	if err != nil {
		return "", err
	}
	metadata := scope.Merge(opts.Metadata, effectiveScope)

	id, err := j.rt.adapter.Dispatch(ctx, backend.DispatchParams{
		Queue:            j.queue,
		Job:              j.job,
		Input:            validated,
		Scope:            effectiveScope,
		JobID:            opts.JobID,
		Priority:         opts.Priority,
		Delay:            opts.Delay,
		Attempts:         opts.Attempts,
		RemoveOnComplete: opts.RemoveOnComplete,
		RemoveOnFail:     opts.RemoveOnFail,
		Metadata:         metadata,
		Limiter:          opts.Limiter,
	})
	if err != nil {
		return "", err
	}

	j.rt.publish(ctx, eventType(j.queue, j.job, backend.PhaseEnqueued), map[string]any{"jobId": id})
	j.rt.emit("igniter.jobs.job.enqueued", map[string]any{"queue": j.queue, "job": j.job, "jobId": id}, "debug")
	return id, nil
}

func (j *JobAccessor) Schedule(ctx context.Context, input any, opts ScheduleOptions) (string, error) {
	spec, err := j.spec()
	if err != nil {
		return "", err
	}

	validated, verr := validation.Validate(spec.Schema, input)
	if verr != nil {
		return "", verr
	}

	effectiveScope, err := j.rt.resolveScope(opts.Scope)
	if err != nil {
		return "", err
	}
	metadata := scope.Merge(opts.Metadata, effectiveScope)

	params := backend.ScheduleParams{
		DispatchParams: backend.DispatchParams{
			Queue:            j.queue,
			Job:              j.job,
			Input:            validated,
			Scope:            effectiveScope,
			JobID:            opts.JobID,
			Priority:         opts.Priority,
			Delay:            opts.Delay,
			Attempts:         opts.Attempts,
			RemoveOnComplete: opts.RemoveOnComplete,
			RemoveOnFail:     opts.RemoveOnFail,
			Metadata:         metadata,
			Limiter:          opts.Limiter,
		},
		At:                opts.At,
		Cron:              opts.Cron,
		Every:             opts.Every,
		MaxExecutions:     opts.MaxExecutions,
		TZ:                opts.TZ,
		SkipWeekends:      opts.SkipWeekends,
		BusinessHours:     opts.BusinessHours,
		OnlyBusinessHours: opts.OnlyBusinessHours,
		OnlyWeekdays:      opts.OnlyWeekdays,
		SkipDates:         opts.SkipDates,
	}

	id, err := j.rt.adapter.Schedule(ctx, params)
	if err != nil {
		return "", err
	}

	j.rt.publish(ctx, eventType(j.queue, j.job, backend.PhaseScheduled), map[string]any{"jobId": id})
	j.rt.emit("igniter.jobs.job.scheduled", map[string]any{"queue": j.queue, "job": j.job, "jobId": id}, "debug")
	return id, nil
}

func (j *JobAccessor) Get(ctx context.Context, id string) (backend.Record, error) {
	return j.rt.adapter.GetJob(ctx, j.queue, id)
}

func (j *JobAccessor) Many(ctx context.Context, ids []string) ([]backend.Record, error) {
	out := make([]backend.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := j.rt.adapter.GetJob(ctx, j.queue, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (j *JobAccessor) Pause(ctx context.Context) error {
	return j.rt.adapter.PauseJobType(ctx, j.queue, j.job)
}

func (j *JobAccessor) Resume(ctx context.Context) error {
	return j.rt.adapter.ResumeJobType(ctx, j.queue, j.job)
}

func (j *JobAccessor) Subscribe(ctx context.Context, handler backend.EventHandler) (backend.Unsubscribe, error) {
	return j.rt.subscribeWithPrefix(ctx, j.queue+":"+j.job+":", handler)
}

// resolveScope applies spec §4.10's scope-resolution rules: a
// required declared scope demands a non-empty effective scope; a
// runtime-bound scope and a per-call scope must agree when both are
// present.
func (rt *Runtime) resolveScope(perCall *scope.Entry) (*scope.Entry, error) {
	effective := rt.boundScope
	if effective == nil {
		effective = perCall
	} else if perCall != nil && !effective.Equal(*perCall) {
		return nil, ignitererr.New(ignitererr.CodeConfigurationInvalid, "runtime-bound scope and per-call scope disagree")
	}

	if rt.scopeDef != nil && rt.scopeDef.Required && effective == nil {
		return nil, ignitererr.Newf(ignitererr.CodeConfigurationInvalid, "scope %q is required", rt.scopeDef.Name)
	}
	return effective, nil
}
