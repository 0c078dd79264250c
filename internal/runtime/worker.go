// Copyright 2025 James Ross
package runtime

import (
	"context"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/workerdef"
)

// Worker starts a new worker builder bound to this runtime's adapter,
// pre-seeded with the runtime's WorkerDefaults.
func (rt *Runtime) Worker() *workerdef.Builder {
	return workerdef.New(rt, rt.startWorker).Defaults(rt.workerDefaults.Concurrency, rt.workerDefaults.Limiter)
}

func (rt *Runtime) startWorker(ctx context.Context, config backend.WorkerConfig) (backend.WorkerHandle, error) {
	return rt.adapter.CreateWorker(ctx, config)
}

// Shutdown tears down the runtime's backend, closing every live
// worker handle.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	return rt.adapter.Shutdown(ctx)
}
