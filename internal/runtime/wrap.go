// Copyright 2025 James Ross
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
	"github.com/ignitehq/igniter-jobs/internal/prefixer"
	"github.com/ignitehq/igniter-jobs/internal/queuedef"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
	"github.com/ignitehq/igniter-jobs/internal/validation"
)

// eventsChannel computes the pub/sub channel this runtime publishes
// lifecycle events on, scope-aware per spec §4.2/§6.4.
func (rt *Runtime) eventsChannel() string {
	var ref *prefixer.ScopeRef
	if rt.boundScope != nil {
		ref = &prefixer.ScopeRef{Type: rt.boundScope.Type, ID: fmt.Sprint(rt.boundScope.ID)}
	}
	return prefixer.EventsChannel(rt.environment, rt.service, ref)
}

func (rt *Runtime) publish(ctx context.Context, eventType string, data any) {
	event := backend.LifecycleEvent{Type: eventType, Data: data, Timestamp: time.Now(), Scope: rt.boundScope}
	if err := rt.adapter.PublishEvent(ctx, rt.eventsChannel(), event); err != nil {
		rt.logger.Error("failed to publish lifecycle event", map[string]any{"type": eventType, "error": err.Error()})
	}
}

func (rt *Runtime) emit(name string, attrs telemetry.Attrs, level telemetry.Level) {
	rt.telemetryImpl.Emit(name, attrs, level)
}

// wrapJob implements spec §4.10's per-job handler wrapping: a fresh
// application context every attempt, input validation, lifecycle
// events bracketing execution, telemetry, and the user's onStart/
// onSuccess/onFailure/onProgress hooks. The wrapper always re-raises
// handler errors so the backend applies its own retry decision.
func (rt *Runtime) wrapJob(queue, job string, spec queuedef.JobSpec) backend.WrappedHandler {
	return func(ctx context.Context, execCtx backend.ExecutionContext) (any, error) {
		app, err := rt.contextFactory(ctx)
		if err != nil {
			return nil, ignitererr.Wrap(ignitererr.CodeContextFactoryFailed, "context factory failed", err)
		}
		execCtx.App = app

		validated, verr := validation.Validate(spec.Schema, execCtx.Input)
		if verr != nil {
			return nil, verr
		}
		execCtx.Input = validated

		if spec.OnProgress != nil {
			inner := execCtx.Progress
			execCtx.Progress = func(ctx context.Context, pct int, message string) error {
				if inner != nil {
					if err := inner(ctx, pct, message); err != nil {
						return err
					}
				}
				rt.publish(ctx, eventType(queue, job, backend.PhaseProgress), map[string]any{"progress": pct, "message": message})
				rt.emit("igniter.jobs.job.progress", telemetry.Attrs{"queue": queue, "job": job, "progress": pct}, telemetry.LevelDebug)
				spec.OnProgress(ctx, execCtx, pct, message)
				return nil
			}
		}

		rt.publish(ctx, eventType(queue, job, backend.PhaseStarted), map[string]any{"jobId": execCtx.JobID, "attempt": execCtx.Attempt})
		rt.emit("igniter.jobs.job.started", telemetry.Attrs{"queue": queue, "job": job, "jobId": execCtx.JobID}, telemetry.LevelDebug)
		if spec.OnStart != nil {
			spec.OnStart(ctx, execCtx)
		}

		start := time.Now()
		result, herr := spec.Handler(ctx, execCtx)
		duration := time.Since(start)

		if herr == nil {
			rt.publish(ctx, eventType(queue, job, backend.PhaseCompleted), map[string]any{"jobId": execCtx.JobID, "durationMs": duration.Milliseconds()})
			rt.emit("igniter.jobs.job.completed", telemetry.Attrs{"queue": queue, "job": job, "jobId": execCtx.JobID, "durationMs": duration.Milliseconds()}, telemetry.LevelDebug)
			if spec.OnSuccess != nil {
				spec.OnSuccess(ctx, execCtx, result)
			}
			return result, nil
		}

		isFinal := execCtx.Attempt >= execCtx.MaxAttempts
		rt.publish(ctx, eventType(queue, job, backend.PhaseFailed), map[string]any{
			"jobId": execCtx.JobID, "durationMs": duration.Milliseconds(), "isFinalAttempt": isFinal, "error": herr.Error(),
		})
		rt.emit("igniter.jobs.job.failed", telemetry.Attrs{
			"queue": queue, "job": job, "jobId": execCtx.JobID, "isFinalAttempt": isFinal,
		}, telemetry.LevelError)
		if spec.OnFailure != nil {
			spec.OnFailure(ctx, execCtx, herr, isFinal)
		}
		return nil, herr
	}
}

// wrapCron implements spec §4.10's per-cron handler wrapping: the
// same lifecycle/telemetry bracketing as jobs, without input
// validation (crons carry no declared schema).
func (rt *Runtime) wrapCron(queue, name string, spec queuedef.CronSpec) backend.WrappedHandler {
	return func(ctx context.Context, execCtx backend.ExecutionContext) (any, error) {
		app, err := rt.contextFactory(ctx)
		if err != nil {
			return nil, ignitererr.Wrap(ignitererr.CodeContextFactoryFailed, "context factory failed", err)
		}
		execCtx.App = app

		rt.publish(ctx, eventType(queue, name, backend.PhaseStarted), map[string]any{"jobId": execCtx.JobID})
		rt.emit("igniter.jobs.job.started", telemetry.Attrs{"queue": queue, "job": name}, telemetry.LevelDebug)
		if spec.OnStart != nil {
			spec.OnStart(ctx, execCtx)
		}

		result, herr := spec.Handler(ctx, execCtx)
		if herr == nil {
			rt.publish(ctx, eventType(queue, name, backend.PhaseCompleted), map[string]any{"jobId": execCtx.JobID})
			rt.emit("igniter.jobs.job.completed", telemetry.Attrs{"queue": queue, "job": name}, telemetry.LevelDebug)
			if spec.OnSuccess != nil {
				spec.OnSuccess(ctx, execCtx, result)
			}
			return result, nil
		}

		rt.publish(ctx, eventType(queue, name, backend.PhaseFailed), map[string]any{"jobId": execCtx.JobID, "error": herr.Error()})
		rt.emit("igniter.jobs.job.failed", telemetry.Attrs{"queue": queue, "job": name}, telemetry.LevelError)
		if spec.OnFailure != nil {
			spec.OnFailure(ctx, execCtx, herr)
		}
		return nil, herr
	}
}

func eventType(queue, job string, phase backend.EventPhase) string {
	return queue + ":" + job + ":" + string(phase)
}
