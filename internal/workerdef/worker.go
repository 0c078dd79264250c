// Copyright 2025 James Ross
// Package workerdef is the worker builder (spec §4.9): accumulates
// queue names, concurrency, a limiter, and the four lifecycle hooks
// before the runtime manager starts a worker through the backend.
package workerdef

import (
	"context"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

// KnownQueues resolves the set of queue names a runtime has
// registered, used to validate AddQueue against JOBS_QUEUE_NOT_FOUND.
type KnownQueues interface {
	HasQueue(name string) bool
}

// Builder accumulates worker configuration before Start().
type Builder struct {
	known   KnownQueues
	starter func(ctx context.Context, config backend.WorkerConfig) (backend.WorkerHandle, error)

	queues      []string
	seen        map[string]bool
	concurrency int
	limiter     *backend.Limiter
	hooks       backend.WorkerHooks
	err         error
}

// New constructs a worker builder bound to a runtime's known queue
// set and its backend's CreateWorker.
func New(known KnownQueues, starter func(ctx context.Context, config backend.WorkerConfig) (backend.WorkerHandle, error)) *Builder {
	return &Builder{known: known, starter: starter, seen: make(map[string]bool)}
}

// AddQueue restricts membership to queues already registered on the
// runtime, and silently deduplicates repeated names.
func (b *Builder) AddQueue(name string) *Builder {
	if b.err != nil {
		return b
	}
	if !b.known.HasQueue(name) {
		b.err = ignitererr.Newf(ignitererr.CodeQueueNotFound, "queue %q is not registered on this runtime", name)
		return b
	}
	if b.seen[name] {
		return b
	}
	b.seen[name] = true
	b.queues = append(b.queues, name)
	return b
}

// Defaults seeds concurrency and limiter fallbacks from the owning
// runtime's WorkerDefaults, applied only where the builder hasn't
// already been given an explicit value. Call before any
// WithConcurrency/WithLimiter so an explicit call always wins.
func (b *Builder) Defaults(concurrency int, limiter *backend.Limiter) *Builder {
	if b.concurrency == 0 {
		b.concurrency = concurrency
	}
	if b.limiter == nil {
		b.limiter = limiter
	}
	return b
}

// WithConcurrency requires a positive value.
func (b *Builder) WithConcurrency(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n <= 0 {
		b.err = ignitererr.Newf(ignitererr.CodeConfigurationInvalid, "concurrency must be positive, got %d", n)
		return b
	}
	b.concurrency = n
	return b
}

// WithLimiter requires max>0 and duration>0.
func (b *Builder) WithLimiter(limiter backend.Limiter) *Builder {
	if b.err != nil {
		return b
	}
	if limiter.Max <= 0 || limiter.Duration <= 0 {
		b.err = ignitererr.New(ignitererr.CodeConfigurationInvalid, "limiter requires max>0 and duration>0")
		return b
	}
	b.limiter = &limiter
	return b
}

func (b *Builder) OnActive(h func(ctx context.Context, rec backend.Record)) *Builder {
	b.hooks.OnActive = h
	return b
}

func (b *Builder) OnSuccess(h func(ctx context.Context, rec backend.Record)) *Builder {
	b.hooks.OnSuccess = h
	return b
}

func (b *Builder) OnFailure(h func(ctx context.Context, rec backend.Record, err error)) *Builder {
	b.hooks.OnFailure = h
	return b
}

func (b *Builder) OnIdle(h func(ctx context.Context, workerID string)) *Builder {
	b.hooks.OnIdle = h
	return b
}

// Start delegates to the backend. An empty queue list means "any
// queue registered on this runtime".
func (b *Builder) Start(ctx context.Context) (backend.WorkerHandle, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.starter(ctx, backend.WorkerConfig{
		Queues:      b.queues,
		Concurrency: b.concurrency,
		Limiter:     b.limiter,
		Hooks:       b.hooks,
	})
}
