// Copyright 2025 James Ross
package backend

import (
	"context"

	"github.com/ignitehq/igniter-jobs/internal/telemetry"
)

// Backend is the single contract every storage/broker implementation
// satisfies (spec §4.5). The runtime manager depends only on this
// interface; it never type-switches on a concrete backend.
type Backend interface {
	// Metrics
	//
	// SetMetrics installs the shared Prometheus collector set a backend
	// increments on the dispatch and worker hot paths. A nil metrics
	// value (the default when no metrics sink is configured) must leave
	// every collector call a no-op.
	SetMetrics(m *telemetry.Metrics)

	// Registration
	RegisterJob(ctx context.Context, queue string, def JobDefinition) error
	RegisterCron(ctx context.Context, queue string, def CronDefinition) error

	// Dispatch
	Dispatch(ctx context.Context, params DispatchParams) (string, error)
	Schedule(ctx context.Context, params ScheduleParams) (string, error)

	// Inspect
	GetJob(ctx context.Context, queue, id string) (Record, error)
	GetJobState(ctx context.Context, queue, id string) (Status, error)
	GetJobLogs(ctx context.Context, queue, id string) ([]LogEntry, error)
	GetJobProgress(ctx context.Context, queue, id string) (int, error)

	// Mutate jobs
	RetryJob(ctx context.Context, queue, id string) error
	RemoveJob(ctx context.Context, queue, id string) error
	PromoteJob(ctx context.Context, queue, id string) error
	MoveJobToFailed(ctx context.Context, queue, id string, reason string) error
	RetryMany(ctx context.Context, queue string, ids []string) error
	RemoveMany(ctx context.Context, queue string, ids []string) error

	// Queues
	GetQueueInfo(ctx context.Context, queue string) (QueueInfo, error)
	GetQueueJobCounts(ctx context.Context, queue string) (JobCounts, error)
	ListQueues(ctx context.Context) ([]string, error)
	PauseQueue(ctx context.Context, queue string) error
	ResumeQueue(ctx context.Context, queue string) error
	DrainQueue(ctx context.Context, queue string) error
	CleanQueue(ctx context.Context, queue string, opts CleanOptions) (int, error)
	ObliterateQueue(ctx context.Context, queue string) error
	RetryAllInQueue(ctx context.Context, queue string) (int, error)

	// Job-type
	PauseJobType(ctx context.Context, queue, job string) error
	ResumeJobType(ctx context.Context, queue, job string) error

	// Search
	SearchJobs(ctx context.Context, query SearchJobsQuery) ([]Record, error)
	SearchQueues(ctx context.Context, query SearchQueuesQuery) ([]QueueInfo, error)
	SearchWorkers(ctx context.Context, query SearchWorkersQuery) ([]WorkerHandle, error)

	// Workers
	CreateWorker(ctx context.Context, config WorkerConfig) (WorkerHandle, error)
	GetWorkers(ctx context.Context) ([]WorkerHandle, error)

	// Pub/sub
	PublishEvent(ctx context.Context, channel string, event LifecycleEvent) error
	SubscribeEvent(ctx context.Context, channel string, handler EventHandler) (Unsubscribe, error)

	// Shutdown
	Shutdown(ctx context.Context) error
}
