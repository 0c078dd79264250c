// Copyright 2025 James Ross
// Package backend defines the contract every storage/broker backend
// implements (spec §4.5), and the shared data model (spec §3) that
// flows across it. Both the in-memory and Redis backends depend on
// this package; the runtime manager depends on it too, but never on a
// concrete backend.
package backend

import (
	"context"
	"time"

	"github.com/ignitehq/igniter-jobs/internal/scope"
)

// Status is a job record's position in its state machine.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusDelayed   Status = "delayed"
	StatusPaused    Status = "paused"
)

// LogLevel is the severity of a single job log line.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogEntry is one ordered line in a job record's log.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
}

// RemoveOption controls removeOnComplete/removeOnFail: either a plain
// bool (Enabled, Keep == 0 meaning "remove immediately") or keep-N
// (Enabled && Keep > 0 meaning "keep the most recent N").
type RemoveOption struct {
	Enabled bool
	Keep    int
}

// KeepNone removes the record as soon as it reaches the terminal state.
var KeepNone = RemoveOption{Enabled: true}

// KeepLast keeps the most recent n records of that terminal kind.
func KeepLast(n int) RemoveOption { return RemoveOption{Enabled: true, Keep: n} }

// Limiter rate-limits a job or worker to max executions per duration.
type Limiter struct {
	Max      int
	Duration time.Duration
}

// BusinessHours bounds cron execution to a wall-clock window.
type BusinessHours struct {
	Start    string // "HH:MM"
	End      string // "HH:MM"
	Timezone string
}

// Record is a single enqueued instance of a job, owned exclusively by
// the backend. The runtime manager never caches or mutates a Record
// directly — it only reads snapshots returned by GetJob et al.
type Record struct {
	ID           string
	Name         string
	Queue        string
	Status       Status
	Progress     int
	AttemptsMade int
	MaxAttempts  int
	Priority     int
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Input        any
	Result       any
	Error        string
	Metadata     map[string]any
	Scope        *scope.Entry
	Logs         []LogEntry
}

// WorkerMetrics summarizes a worker's lifetime activity.
type WorkerMetrics struct {
	Processed   int64
	Failed      int64
	AvgDuration time.Duration
	Concurrency int
	Uptime      time.Duration
}

// WorkerHandle is the live handle returned by CreateWorker.
type WorkerHandle interface {
	ID() string
	Queues() []string
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Close(ctx context.Context) error
	IsRunning() bool
	IsPaused() bool
	IsClosed() bool
	GetMetrics() WorkerMetrics
}

// WorkerHooks are the four lifecycle callbacks a worker builder may
// register; any of them may be nil.
type WorkerHooks struct {
	OnActive  func(ctx context.Context, rec Record)
	OnSuccess func(ctx context.Context, rec Record)
	OnFailure func(ctx context.Context, rec Record, err error)
	OnIdle    func(ctx context.Context, workerID string)
}

// WorkerConfig is what CreateWorker receives.
type WorkerConfig struct {
	Queues      []string // empty means "every queue registered on this runtime"
	Concurrency int
	Limiter     *Limiter
	Hooks       WorkerHooks
}

// ExecutionContext is materialized fresh for every handler invocation;
// it is never cached inside a Record.
type ExecutionContext struct {
	App      any // whatever contextFactory produced
	JobID       string
	Queue       string
	Job         string
	Attempt     int
	MaxAttempts int
	Input       any
	Metadata map[string]any
	Scope    *scope.Entry
	Progress func(ctx context.Context, pct int, message string) error
}

// WrappedHandler is the handler signature the runtime manager hands to
// a backend once it has wrapped a user handler with validation,
// lifecycle events, and telemetry (spec §4.10).
type WrappedHandler func(ctx context.Context, execCtx ExecutionContext) (any, error)

// JobDefinition is what the runtime manager registers with a backend
// for a named job — already wrapped, carrying only what the backend
// needs to drive dispatch and execution.
type JobDefinition struct {
	Name             string
	Handler          WrappedHandler
	Attempts         int
	Priority         int
	Delay            time.Duration
	RemoveOnComplete RemoveOption
	RemoveOnFail     RemoveOption
	Metadata         map[string]any
	Limiter          *Limiter
}

// CronDefinition is what the runtime manager registers with a backend
// for a named cron task.
type CronDefinition struct {
	Name              string
	Cron              string
	TZ                string
	MaxExecutions     int
	StartDate         *time.Time
	EndDate           *time.Time
	SkipWeekends      bool
	OnlyBusinessHours *BusinessHours
	OnlyWeekdays      []int
	SkipDates         []time.Time
	Handler           WrappedHandler
}

// DispatchParams is the input to Dispatch.
type DispatchParams struct {
	Queue            string
	Job              string
	Input            any
	Scope            *scope.Entry
	JobID            string
	Priority         int
	Delay            time.Duration
	Attempts         int // 0 means "use the job definition's default"
	RemoveOnComplete *RemoveOption
	RemoveOnFail     *RemoveOption
	Metadata         map[string]any
	Limiter          *Limiter
}

// ScheduleParams is the input to Schedule: DispatchParams plus the
// advanced schedule rules of spec §3/§6.2.
type ScheduleParams struct {
	DispatchParams
	At                *time.Time
	Cron              string
	Every             time.Duration
	MaxExecutions     int
	TZ                string
	SkipWeekends      bool
	BusinessHours     *BusinessHours
	OnlyBusinessHours bool
	OnlyWeekdays      []int
	SkipDates         []time.Time
}

// QueueInfo is summary metadata about a queue.
type QueueInfo struct {
	Name   string
	Paused bool
	Jobs   []string
	Crons  []string
}

// JobCounts buckets a queue's records by status.
type JobCounts struct {
	Waiting   int
	Active    int
	Completed int
	Failed    int
	Delayed   int
	Paused    int
}

// CleanOptions bounds CleanQueue's sweep. KeyGlob, when non-empty, is a
// doublestar pattern matched against each candidate job's ID, letting
// an operator scope a sweep to a path-style id convention (e.g.
// "tenant-a/**" or "*-stale") instead of every job of a given status.
type CleanOptions struct {
	Status    []Status
	OlderThan time.Duration
	Limit     int
	KeyGlob   string
}

// SearchJobsQuery filters SearchJobs.
type SearchJobsQuery struct {
	Queue  string
	Name   string
	Status []Status
	Limit  int
	Offset int
}

// SearchQueuesQuery filters SearchQueues.
type SearchQueuesQuery struct {
	NamePrefix string
}

// SearchWorkersQuery filters SearchWorkers.
type SearchWorkersQuery struct {
	Queue string
}

// EventPhase is a lifecycle event's phase, the last segment of an
// event Type "<queue>:<job>:<phase>".
type EventPhase string

const (
	PhaseEnqueued  EventPhase = "enqueued"
	PhaseScheduled EventPhase = "scheduled"
	PhaseStarted   EventPhase = "started"
	PhaseProgress  EventPhase = "progress"
	PhaseCompleted EventPhase = "completed"
	PhaseFailed    EventPhase = "failed"
	PhaseRetrying  EventPhase = "retrying"
)

// LifecycleEvent is the structured message published on every phase
// transition of a job record.
type LifecycleEvent struct {
	Type      string
	Data      any
	Timestamp time.Time
	Scope     *scope.Entry
}

// EventHandler receives a deserialized lifecycle event from a
// subscription.
type EventHandler func(event LifecycleEvent)

// Unsubscribe removes a subscription registered via SubscribeEvent.
type Unsubscribe func()
