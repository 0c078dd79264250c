// Copyright 2025 James Ross
// Package igniter re-exports the runtime/queuedef/workerdef builder
// surface and the supporting backend/telemetry/error types for
// external consumers, mirroring pkg/chaos-harness/export.go's
// type-alias-plus-constructor-var re-export shape.
package igniter

import (
	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
	"github.com/ignitehq/igniter-jobs/internal/membackend"
	"github.com/ignitehq/igniter-jobs/internal/queuedef"
	"github.com/ignitehq/igniter-jobs/internal/redisbackend"
	"github.com/ignitehq/igniter-jobs/internal/runtime"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
	"github.com/ignitehq/igniter-jobs/internal/workerdef"
)

// Builder surface.
type (
	Runtime        = runtime.Runtime
	RuntimeBuilder = runtime.Builder
	QueueAccessor  = runtime.QueueAccessor
	JobAccessor    = runtime.JobAccessor
	ContextFactory = runtime.ContextFactory

	QueueDefaults    = runtime.QueueDefaults
	WorkerDefaults   = runtime.WorkerDefaults
	AutoWorkerConfig = runtime.AutoWorkerConfig
	ScopeDefinition  = runtime.ScopeDefinition

	DispatchOptions = runtime.DispatchOptions
	ScheduleOptions = runtime.ScheduleOptions

	QueueBuilder    = queuedef.Builder
	QueueDefinition = queuedef.Definition
	JobSpec         = queuedef.JobSpec
	CronSpec        = queuedef.CronSpec
	RawHandler      = queuedef.RawHandler

	WorkerBuilder = workerdef.Builder
)

var (
	Create      = runtime.Create
	CreateQueue = queuedef.Create
)

// Backend adapters.
type (
	Backend      = backend.Backend
	WorkerHandle = backend.WorkerHandle
)

var (
	NewMemoryBackend = membackend.New
	NewRedisBackend  = redisbackend.New
)

// Job/worker/record types and enums.
type (
	ExecutionContext   = backend.ExecutionContext
	Record             = backend.Record
	JobDefinition      = backend.JobDefinition
	CronDefinition     = backend.CronDefinition
	DispatchParams     = backend.DispatchParams
	ScheduleParams     = backend.ScheduleParams
	QueueInfo          = backend.QueueInfo
	JobCounts          = backend.JobCounts
	CleanOptions       = backend.CleanOptions
	SearchJobsQuery    = backend.SearchJobsQuery
	SearchQueuesQuery  = backend.SearchQueuesQuery
	SearchWorkersQuery = backend.SearchWorkersQuery
	WorkerConfig       = backend.WorkerConfig
	WorkerHooks        = backend.WorkerHooks
	WorkerMetrics      = backend.WorkerMetrics
	RemoveOption       = backend.RemoveOption
	Limiter            = backend.Limiter
	BusinessHours      = backend.BusinessHours
	LogEntry           = backend.LogEntry
	LifecycleEvent     = backend.LifecycleEvent
	EventHandler       = backend.EventHandler
	Unsubscribe        = backend.Unsubscribe

	Status     = backend.Status
	LogLevel   = backend.LogLevel
	EventPhase = backend.EventPhase
)

const (
	StatusWaiting   = backend.StatusWaiting
	StatusActive    = backend.StatusActive
	StatusCompleted = backend.StatusCompleted
	StatusFailed    = backend.StatusFailed
	StatusDelayed   = backend.StatusDelayed
	StatusPaused    = backend.StatusPaused

	LogInfo  = backend.LogInfo
	LogWarn  = backend.LogWarn
	LogError = backend.LogError
)

// Errors.
type (
	Error = ignitererr.Error
	Code  = ignitererr.Code
)

var (
	New  = ignitererr.New
	Newf = ignitererr.Newf
	Is   = ignitererr.Is
)

// Logging and telemetry.
type (
	Logger        = telemetry.Logger
	LoggerAttrs   = telemetry.Attrs
	LoggerLevel   = telemetry.Level
	Telemetry     = telemetry.Telemetry
	ZapLogger     = telemetry.ZapLogger
	OTelTelemetry = telemetry.OTelTelemetry
	Metrics       = telemetry.Metrics
	NoopLogger    = telemetry.NoopLogger
	NoopTelemetry = telemetry.NoopTelemetry
)

var (
	NewZapLogger     = telemetry.NewZapLogger
	NewOTelTelemetry = telemetry.NewOTelTelemetry
	NewMetrics       = telemetry.NewMetrics
)
