// Copyright 2025 James Ross
// Package runtime is the single source of truth at run time (spec
// §4.10): it owns the backend adapter, the registered queue
// definitions, scope resolution, handler wrapping, and the
// method-based accessor surface applications use to dispatch,
// schedule, and manage jobs.
package runtime

import (
	"context"
	"sync"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
	"github.com/ignitehq/igniter-jobs/internal/queuedef"
	"github.com/ignitehq/igniter-jobs/internal/scope"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
	"github.com/ignitehq/igniter-jobs/internal/workerdef"
)

// ContextFactory materializes the application context handed to every
// handler invocation. It is called fresh on every attempt; its result
// is never cached across attempts.
type ContextFactory func(ctx context.Context) (any, error)

// ScopeDefinition declares the single scope dimension a runtime may
// carry, added via Builder.AddScope.
type ScopeDefinition struct {
	Name        string
	Required    bool
	Description string
}

// QueueDefaults are applied to a job/cron definition when the
// corresponding field was left at its zero value.
type QueueDefaults struct {
	Attempts         int
	Priority         int
	RemoveOnComplete backend.RemoveOption
	RemoveOnFail     backend.RemoveOption
}

// WorkerDefaults are applied to WithAutoStartWorker and to worker
// builders created via Runtime.Worker() when left unset.
type WorkerDefaults struct {
	Concurrency int
	Limiter     *backend.Limiter
}

// AutoWorkerConfig starts one worker immediately at Build() time.
type AutoWorkerConfig struct {
	Queues      []string
	Concurrency int
	Limiter     *backend.Limiter
}

// Runtime is the built, immutable (aside from its backend's own
// state) manager applications interact with.
type Runtime struct {
	adapter        backend.Backend
	service        string
	environment    string
	contextFactory ContextFactory
	scopeDef       *ScopeDefinition
	boundScope     *scope.Entry
	queues         map[string]queuedef.Definition
	queueDefaults  QueueDefaults
	workerDefaults WorkerDefaults
	logger         telemetry.Logger
	telemetryImpl  telemetry.Telemetry
	metrics        *telemetry.Metrics
}

var _ workerdef.KnownQueues = (*Runtime)(nil)

// HasQueue reports whether name was registered via AddQueue, used by
// workerdef.Builder to enforce JOBS_QUEUE_NOT_FOUND.
func (rt *Runtime) HasQueue(name string) bool {
	_, ok := rt.queues[name]
	return ok
}

// Service and Environment report the runtime's own identity, the same
// pair a telemetry.Telemetry sink exposes.
func (rt *Runtime) Service() string     { return rt.service }
func (rt *Runtime) Environment() string { return rt.environment }

// registry tracks, per backend instance, which (queue, job-or-cron)
// pairs have already been registered — the Go realization of spec
// §4.10's "global weak-ref set" exactly-once guarantee. Scoped
// runtimes derived via Scope() share their parent's queue map and
// never call registerAll again, so they naturally satisfy "scoped
// runtimes derived from a parent must not re-register".
var registryMu sync.Mutex
var registry = map[backend.Backend]map[string]bool{}

func markRegistered(adapter backend.Backend, key string) bool {
	registryMu.Lock()
	defer registryMu.Unlock()
	set, ok := registry[adapter]
	if !ok {
		set = make(map[string]bool)
		registry[adapter] = set
	}
	if set[key] {
		return false
	}
	set[key] = true
	return true
}

// Builder assembles a Runtime via IgniterJobs.create()-style chaining.
type Builder struct {
	adapter        backend.Backend
	service        string
	environment    string
	contextFactory ContextFactory
	scopeDef       *ScopeDefinition
	queues         []queuedef.Definition
	queueDefaults  QueueDefaults
	workerDefaults WorkerDefaults
	autoWorker     *AutoWorkerConfig
	logger         telemetry.Logger
	telemetryImpl  telemetry.Telemetry
	metrics        *telemetry.Metrics
	err            error
}

// Create starts a runtime builder.
func Create() *Builder {
	return &Builder{}
}

func (b *Builder) WithAdapter(adapter backend.Backend) *Builder {
	if b.err == nil {
		b.adapter = adapter
	}
	return b
}

func (b *Builder) WithService(service string) *Builder {
	if b.err == nil {
		b.service = service
	}
	return b
}

func (b *Builder) WithEnvironment(environment string) *Builder {
	if b.err == nil {
		b.environment = environment
	}
	return b
}

func (b *Builder) WithContext(factory ContextFactory) *Builder {
	if b.err == nil {
		b.contextFactory = factory
	}
	return b
}

// AddScope declares the runtime's single scope dimension. A second
// call raises JOBS_SCOPE_ALREADY_DEFINED.
func (b *Builder) AddScope(name string, required bool, description string) *Builder {
	if b.err != nil {
		return b
	}
	if b.scopeDef != nil {
		b.err = ignitererr.New(ignitererr.CodeScopeAlreadyDefined, "a scope dimension is already declared on this runtime")
		return b
	}
	b.scopeDef = &ScopeDefinition{Name: name, Required: required, Description: description}
	return b
}

func (b *Builder) AddQueue(def queuedef.Definition) *Builder {
	if b.err == nil {
		b.queues = append(b.queues, def)
	}
	return b
}

func (b *Builder) WithQueueDefaults(d QueueDefaults) *Builder {
	if b.err == nil {
		b.queueDefaults = d
	}
	return b
}

func (b *Builder) WithWorkerDefaults(d WorkerDefaults) *Builder {
	if b.err == nil {
		b.workerDefaults = d
	}
	return b
}

func (b *Builder) WithAutoStartWorker(cfg AutoWorkerConfig) *Builder {
	if b.err == nil {
		b.autoWorker = &cfg
	}
	return b
}

func (b *Builder) WithLogger(logger telemetry.Logger) *Builder {
	if b.err == nil {
		b.logger = logger
	}
	return b
}

func (b *Builder) WithTelemetry(t telemetry.Telemetry) *Builder {
	if b.err == nil {
		b.telemetryImpl = t
	}
	return b
}

// WithMetrics installs the Prometheus collector set both backends
// increment on the dispatch and worker hot paths, so dashboards stay
// backend-agnostic. Leaving this unset keeps every collector call a
// no-op.
func (b *Builder) WithMetrics(m *telemetry.Metrics) *Builder {
	if b.err == nil {
		b.metrics = m
	}
	return b
}

// Build validates the accumulated configuration, registers every
// queue's jobs and crons against the adapter exactly once, optionally
// auto-starts a worker, and returns the finished Runtime.
func (b *Builder) Build(ctx context.Context) (*Runtime, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.adapter == nil {
		return nil, ignitererr.New(ignitererr.CodeAdapterRequired, "an adapter is required")
	}
	if b.service == "" {
		return nil, ignitererr.New(ignitererr.CodeServiceRequired, "a service name is required")
	}
	if b.environment == "" {
		return nil, ignitererr.New(ignitererr.CodeConfigurationInvalid, "an environment name is required")
	}
	if b.contextFactory == nil {
		return nil, ignitererr.New(ignitererr.CodeContextRequired, "a context factory is required")
	}

	logger := b.logger
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	telem := b.telemetryImpl
	if telem == nil {
		telem = telemetry.NoopTelemetry{Svc: b.service, Env: b.environment}
	}

	rt := &Runtime{
		adapter:        b.adapter,
		service:        b.service,
		environment:    b.environment,
		contextFactory: b.contextFactory,
		scopeDef:       b.scopeDef,
		queues:         make(map[string]queuedef.Definition, len(b.queues)),
		queueDefaults:  b.queueDefaults,
		workerDefaults: b.workerDefaults,
		logger:         logger,
		telemetryImpl:  telem,
		metrics:        b.metrics,
	}
	for _, def := range b.queues {
		rt.queues[def.Name] = def
	}

	rt.adapter.SetMetrics(rt.metrics)

	if err := rt.registerAll(ctx); err != nil {
		return nil, err
	}

	if b.autoWorker != nil {
		if _, err := rt.adapter.CreateWorker(ctx, backend.WorkerConfig{
			Queues:      b.autoWorker.Queues,
			Concurrency: pickConcurrency(b.autoWorker.Concurrency, rt.workerDefaults.Concurrency),
			Limiter:     pickLimiter(b.autoWorker.Limiter, rt.workerDefaults.Limiter),
		}); err != nil {
			return nil, err
		}
	}

	return rt, nil
}

func pickConcurrency(primary, fallback int) int {
	if primary > 0 {
		return primary
	}
	return fallback
}

func pickLimiter(primary, fallback *backend.Limiter) *backend.Limiter {
	if primary != nil {
		return primary
	}
	return fallback
}

// registerAll registers every job and cron of every queue this Runtime
// was built with, against the adapter, skipping anything already
// registered by an earlier Build() against the same adapter instance.
func (rt *Runtime) registerAll(ctx context.Context) error {
	for queueName, def := range rt.queues {
		for jobName, spec := range def.Jobs {
			key := "job:" + queueName + ":" + jobName
			if !markRegistered(rt.adapter, key) {
				continue
			}
			jobDef := backend.JobDefinition{
				Name:             jobName,
				Handler:          rt.wrapJob(queueName, jobName, spec),
				Attempts:         firstNonZero(spec.Attempts, rt.queueDefaults.Attempts),
				Priority:         firstNonZero(spec.Priority, rt.queueDefaults.Priority),
				Delay:            spec.Delay,
				RemoveOnComplete: orDefault(spec.RemoveOnComplete, rt.queueDefaults.RemoveOnComplete),
				RemoveOnFail:     orDefault(spec.RemoveOnFail, rt.queueDefaults.RemoveOnFail),
				Metadata:         spec.Metadata,
				Limiter:          spec.Limiter,
			}
			if err := rt.adapter.RegisterJob(ctx, queueName, jobDef); err != nil {
				return err
			}
		}
		for cronName, spec := range def.Crons {
			key := "cron:" + queueName + ":" + cronName
			if !markRegistered(rt.adapter, key) {
				continue
			}
			cronDef := backend.CronDefinition{
				Name:              cronName,
				Cron:              spec.Cron,
				TZ:                spec.TZ,
				MaxExecutions:     spec.MaxExecutions,
				StartDate:         spec.StartDate,
				EndDate:           spec.EndDate,
				SkipWeekends:      spec.SkipWeekends,
				OnlyBusinessHours: spec.OnlyBusinessHours,
				OnlyWeekdays:      spec.OnlyWeekdays,
				SkipDates:         spec.SkipDates,
				Handler:           rt.wrapCron(queueName, cronName, spec),
			}
			if err := rt.adapter.RegisterCron(ctx, queueName, cronDef); err != nil {
				return err
			}
		}
	}
	return nil
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

func orDefault(primary, fallback backend.RemoveOption) backend.RemoveOption {
	if primary.Enabled {
		return primary
	}
	return fallback
}
