// Copyright 2025 James Ross
// Package queuedef is the type-level accumulation of jobs and crons
// that makes up a queue (spec §4.8), before it is handed to the
// runtime manager's Build(). Handlers here are the user's raw,
// unwrapped functions; the runtime manager wraps them with
// validation, lifecycle events, and telemetry at build time.
package queuedef

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

// cronParser mirrors internal/calendar-view's field set: optional
// seconds, descriptors like "@daily" allowed.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// RawHandler is the user's handler, prior to runtime wrapping. Its
// signature matches backend.WrappedHandler exactly; wrapping adds
// behavior around the call, it never changes the shape.
type RawHandler func(ctx context.Context, execCtx backend.ExecutionContext) (any, error)

// JobSpec is a job definition as the application declares it.
type JobSpec struct {
	Handler          RawHandler
	Schema           any
	Attempts         int
	Priority         int
	Delay            time.Duration
	RemoveOnComplete backend.RemoveOption
	RemoveOnFail     backend.RemoveOption
	Metadata         map[string]any
	Limiter          *backend.Limiter
	OnStart          func(ctx context.Context, execCtx backend.ExecutionContext)
	OnSuccess        func(ctx context.Context, execCtx backend.ExecutionContext, result any)
	OnFailure        func(ctx context.Context, execCtx backend.ExecutionContext, err error, isFinalAttempt bool)
	OnProgress       func(ctx context.Context, execCtx backend.ExecutionContext, pct int, message string)
}

// CronSpec is a cron definition as the application declares it.
type CronSpec struct {
	Cron              string
	Handler           RawHandler
	TZ                string
	MaxExecutions     int
	StartDate         *time.Time
	EndDate           *time.Time
	SkipWeekends      bool
	OnlyBusinessHours *backend.BusinessHours
	OnlyWeekdays      []int
	SkipDates         []time.Time
	OnStart           func(ctx context.Context, execCtx backend.ExecutionContext)
	OnSuccess         func(ctx context.Context, execCtx backend.ExecutionContext, result any)
	OnFailure         func(ctx context.Context, execCtx backend.ExecutionContext, err error)
}

// Builder accumulates job and cron definitions for one queue name.
type Builder struct {
	name  string
	jobs  map[string]JobSpec
	crons map[string]CronSpec
	err   error
}

// Create starts a queue builder. The queue name must be non-empty;
// the error surfaces from Build() rather than here, so call chains
// stay fluent.
func Create(name string) *Builder {
	b := &Builder{
		name:  name,
		jobs:  make(map[string]JobSpec),
		crons: make(map[string]CronSpec),
	}
	if name == "" {
		b.err = ignitererr.New(ignitererr.CodeInvalidDefinition, "queue name must be non-empty")
	}
	return b
}

// AddJob registers a named job definition. spec.Handler must be set.
func (b *Builder) AddJob(name string, spec JobSpec) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		b.err = ignitererr.New(ignitererr.CodeInvalidDefinition, "job name must be non-empty")
		return b
	}
	if spec.Handler == nil {
		b.err = ignitererr.Newf(ignitererr.CodeHandlerRequired, "job %q requires a handler", name)
		return b
	}
	if _, exists := b.jobs[name]; exists {
		b.err = ignitererr.Newf(ignitererr.CodeDuplicateJob, "job %q already registered on queue %q", name, b.name)
		return b
	}
	if _, exists := b.crons[name]; exists {
		b.err = ignitererr.Newf(ignitererr.CodeDuplicateJob, "name %q collides with a cron on queue %q", name, b.name)
		return b
	}
	b.jobs[name] = spec
	return b
}

// AddCron registers a named cron definition. spec.Cron and
// spec.Handler must both be set; spec.Cron is validated against
// robfig/cron/v3's parser at build time.
func (b *Builder) AddCron(name string, spec CronSpec) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		b.err = ignitererr.New(ignitererr.CodeInvalidDefinition, "cron name must be non-empty")
		return b
	}
	if spec.Cron == "" {
		b.err = ignitererr.Newf(ignitererr.CodeInvalidCron, "cron %q requires a non-empty schedule", name)
		return b
	}
	if spec.Handler == nil {
		b.err = ignitererr.Newf(ignitererr.CodeHandlerRequired, "cron %q requires a handler", name)
		return b
	}
	if _, err := cronParser.Parse(spec.Cron); err != nil {
		b.err = ignitererr.Newf(ignitererr.CodeInvalidCron, "cron %q has an invalid schedule %q: %v", name, spec.Cron, err)
		return b
	}
	if _, exists := b.crons[name]; exists {
		b.err = ignitererr.Newf(ignitererr.CodeInvalidCron, "cron %q already registered on queue %q", name, b.name)
		return b
	}
	if _, exists := b.jobs[name]; exists {
		b.err = ignitererr.Newf(ignitererr.CodeInvalidCron, "name %q collides with a job on queue %q", name, b.name)
		return b
	}
	b.crons[name] = spec
	return b
}

// Definition is the finished, immutable result of Build().
type Definition struct {
	Name  string
	Jobs  map[string]JobSpec
	Crons map[string]CronSpec
}

// Build finalizes the queue definition, surfacing the first error
// recorded by any AddJob/AddCron call.
func (b *Builder) Build() (Definition, error) {
	if b.err != nil {
		return Definition{}, b.err
	}
	return Definition{Name: b.name, Jobs: b.jobs, Crons: b.crons}, nil
}
