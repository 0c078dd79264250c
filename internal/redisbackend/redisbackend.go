// Copyright 2025 James Ross
package redisbackend

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/idgen"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
)

// Backend is the durable backend.Backend implementation over Redis.
// Job/cron definitions and live worker handles are process-local (a
// handler function cannot be serialized), but every Record, queue
// flag, and schedule lives in Redis so multiple processes share one
// queue.
type Backend struct {
	rdb *redis.Client

	mu       sync.Mutex
	jobDefs  map[string]map[string]backend.JobDefinition
	cronDefs map[string]map[string]backend.CronDefinition
	workers  map[string]*workerHandle
	subs     map[string][]subscription
	metrics  *telemetry.Metrics

	cron       *cron.Cron
	cronParser cron.Parser
	closed     bool
}

// SetMetrics installs the Prometheus collector set the dispatch and
// worker loop increment. Safe to call with nil to go back to no-op.
func (b *Backend) SetMetrics(m *telemetry.Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = m
}

type subscription struct {
	id      int
	handler backend.EventHandler
}

// recurringEntry tracks a single Schedule(...) registration's fire
// count against its MaxExecutions bound; it lives only inside the
// cron.FuncJob closure that scheduleRecurring builds.
type recurringEntry struct {
	executions int
}

// New constructs a Backend bound to an already-configured go-redis/v9
// client. The caller owns the client's lifecycle outside of Shutdown.
func New(rdb *redis.Client) *Backend {
	b := &Backend{
		rdb:        rdb,
		jobDefs:    make(map[string]map[string]backend.JobDefinition),
		cronDefs:   make(map[string]map[string]backend.CronDefinition),
		workers:    make(map[string]*workerHandle),
		subs:       make(map[string][]subscription),
		cron:       cron.New(cron.WithSeconds()),
		cronParser: newCronParser(),
	}
	b.cron.Start()
	return b
}

func newCronParser() cron.Parser {
	return cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
}

var _ backend.Backend = (*Backend)(nil)

func (b *Backend) RegisterJob(ctx context.Context, queue string, def backend.JobDefinition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.jobDefs[queue]; !ok {
		b.jobDefs[queue] = make(map[string]backend.JobDefinition)
	}
	b.jobDefs[queue][def.Name] = def
	return b.rdb.SAdd(ctx, queuesSetKey(), queue).Err()
}

// RegisterCron stores the definition and schedules its recurring
// handler invocation directly against robfig/cron/v3 — crons execute
// outside the job-record claim cycle, since they carry no dispatch
// input and no retry budget of their own (spec §4.8's MaxExecutions
// is the only repetition bound).
func (b *Backend) RegisterCron(ctx context.Context, queue string, def backend.CronDefinition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cronDefs[queue]; !ok {
		b.cronDefs[queue] = make(map[string]backend.CronDefinition)
	}
	b.cronDefs[queue][def.Name] = def

	schedule, err := b.cronParser.Parse(def.Cron)
	if err != nil {
		return err
	}
	filtered := filteredSchedule{inner: schedule, def: def}
	executions := 0
	b.cron.Schedule(filtered, cron.FuncJob(func() {
		if def.MaxExecutions > 0 && executions >= def.MaxExecutions {
			return
		}
		if def.StartDate != nil && time.Now().Before(*def.StartDate) {
			return
		}
		if def.EndDate != nil && time.Now().After(*def.EndDate) {
			return
		}
		executions++
		b.runCron(queue, def)
	}))
	return b.rdb.SAdd(ctx, queuesSetKey(), queue).Err()
}

func (b *Backend) runCron(queue string, def backend.CronDefinition) {
	execCtx := backend.ExecutionContext{
		JobID:   idgen.New("cron"),
		Queue:   queue,
		Job:     def.Name,
		Attempt: 1,
	}
	b.mu.Lock()
	metrics := b.metrics
	b.mu.Unlock()
	go func() {
		metrics.Started(queue, def.Name)
		start := time.Now()
		_, err := def.Handler(context.Background(), execCtx)
		duration := time.Since(start)
		if err != nil {
			metrics.Failed(queue, def.Name, true, duration)
			return
		}
		metrics.Completed(queue, def.Name, duration)
	}()
}

func (b *Backend) lookupJobLocked(queue, job string) (backend.JobDefinition, bool) {
	defs, ok := b.jobDefs[queue]
	if !ok {
		return backend.JobDefinition{}, false
	}
	def, ok := defs[job]
	return def, ok
}

// Shutdown stops the cron scheduler and closes every live worker.
func (b *Backend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	workers := make([]*workerHandle, 0, len(b.workers))
	for _, w := range b.workers {
		workers = append(workers, w)
	}
	b.mu.Unlock()

	<-b.cron.Stop().Done()
	for _, w := range workers {
		_ = w.Close(ctx)
	}
	return nil
}
