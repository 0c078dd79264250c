// Copyright 2025 James Ross
package runtime

import (
	"context"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

// ListQueues and SearchWorkers are thin adapter pass-throughs that exist
// for internal/adminapi's read-only surface — there is no per-queue or
// per-job accessor to hang them off, since they operate across every
// queue at once.
func (rt *Runtime) ListQueues(ctx context.Context) ([]string, error) {
	return rt.adapter.ListQueues(ctx)
}

func (rt *Runtime) SearchWorkers(ctx context.Context, query backend.SearchWorkersQuery) ([]backend.WorkerHandle, error) {
	return rt.adapter.SearchWorkers(ctx, query)
}

// GetJob looks up a job record by queue and id directly, without
// requiring the caller to know which job name produced it — the shape
// the admin HTTP surface's "/queues/{queue}/jobs/{id}" route needs.
func (rt *Runtime) GetJob(ctx context.Context, queue, id string) (backend.Record, error) {
	return rt.adapter.GetJob(ctx, queue, id)
}
