// Copyright 2025 James Ross
// Package membackend is the reference in-memory backend (spec §4.6): a
// complete, concurrent-safe implementation of backend.Backend for
// development and tests. It never persists across restarts.
//
// Grounded on internal/worker/worker.go's fetch-process-record cycle
// (claim, run, record, backoff-or-finish) and the anti-starvation token
// idea from the reference job-queue fairness implementation, adapted
// here to the priority-desc/createdAt-asc claim order spec §4.6
// requires.
package membackend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/idgen"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
)

// Backend implements backend.Backend entirely in process memory.
type Backend struct {
	mu sync.Mutex

	records    map[string]*backend.Record   // id -> record
	queueIDs   map[string]map[string]bool   // queue -> set of ids it owns
	jobDefs    map[string]map[string]backend.JobDefinition
	cronDefs   map[string]map[string]backend.CronDefinition
	pausedQ    map[string]bool
	pausedJob  map[string]map[string]bool // queue -> job name -> paused
	timers     map[string]*time.Timer     // id -> delayed-promotion timer
	workers    map[string]*workerHandle
	subs       map[string][]subscription
	wake       chan struct{}
	closed     bool
	subsSeq    int
	metrics    *telemetry.Metrics
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

// New constructs an empty in-memory backend.
func New() *Backend {
	return &Backend{
		records:   make(map[string]*backend.Record),
		queueIDs:  make(map[string]map[string]bool),
		jobDefs:   make(map[string]map[string]backend.JobDefinition),
		cronDefs:  make(map[string]map[string]backend.CronDefinition),
		pausedQ:   make(map[string]bool),
		pausedJob: make(map[string]map[string]bool),
		timers:    make(map[string]*time.Timer),
		workers:   make(map[string]*workerHandle),
		subs:      make(map[string][]subscription),
		wake:      make(chan struct{}),
	}
}

var _ backend.Backend = (*Backend)(nil)

func (b *Backend) ensureQueue(queue string) {
	if _, ok := b.queueIDs[queue]; !ok {
		b.queueIDs[queue] = make(map[string]bool)
	}
}

// kick wakes every worker loop blocked waiting for new work. Must be
// called while holding b.mu.
func (b *Backend) kick() {
	close(b.wake)
	b.wake = make(chan struct{})
}

func (b *Backend) RegisterJob(_ context.Context, queue string, def backend.JobDefinition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureQueue(queue)
	if _, ok := b.jobDefs[queue]; !ok {
		b.jobDefs[queue] = make(map[string]backend.JobDefinition)
	}
	b.jobDefs[queue][def.Name] = def
	return nil
}

func (b *Backend) RegisterCron(_ context.Context, queue string, def backend.CronDefinition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureQueue(queue)
	if _, ok := b.cronDefs[queue]; !ok {
		b.cronDefs[queue] = make(map[string]backend.CronDefinition)
	}
	b.cronDefs[queue][def.Name] = def
	// Per spec §4.6/§9: the in-memory backend does not drive cron or
	// "every" schedules — it only stores the definition. A durable
	// backend's cron evaluator is what actually fires these.
	return nil
}

// Dispatch allocates an id, builds a record, and places it at the
// correct starting status per spec §3's state machine.
func (b *Backend) Dispatch(_ context.Context, params backend.DispatchParams) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dispatchLocked(params, params.Delay)
}

func (b *Backend) dispatchLocked(params backend.DispatchParams, delay time.Duration) (string, error) {
	def, ok := b.lookupJobLocked(params.Queue, params.Job)
	if !ok {
		return "", ignitererr.Newf(ignitererr.CodeNotRegistered, "job %q not registered on queue %q", params.Job, params.Queue)
	}

	id := params.JobID
	if id == "" {
		id = idgen.New("job")
	}
	maxAttempts := def.Attempts
	if params.Attempts > 0 {
		maxAttempts = params.Attempts
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	priority := def.Priority
	if params.Priority != 0 {
		priority = params.Priority
	}

	now := time.Now()
	rec := &backend.Record{
		ID:          id,
		Name:        params.Job,
		Queue:       params.Queue,
		MaxAttempts: maxAttempts,
		Priority:    priority,
		CreatedAt:   now,
		Input:       params.Input,
		Metadata:    params.Metadata,
		Scope:       params.Scope,
	}
	rec.Status = b.startingStatusLocked(params.Queue, params.Job, delay, now)

	b.ensureQueue(params.Queue)
	b.records[id] = rec
	b.queueIDs[params.Queue][id] = true

	if rec.Status == backend.StatusDelayed {
		b.scheduleDelayedPromotionLocked(id, delay)
	}
	if rec.Status == backend.StatusWaiting {
		b.kick()
	}
	b.metrics.Enqueued(params.Queue, params.Job)
	return id, nil
}

func (b *Backend) startingStatusLocked(queue, job string, delay time.Duration, now time.Time) backend.Status {
	if b.pausedQ[queue] || (b.pausedJob[queue] != nil && b.pausedJob[queue][job]) {
		return backend.StatusPaused
	}
	if delay > 0 {
		return backend.StatusDelayed
	}
	return backend.StatusWaiting
}

func (b *Backend) scheduleDelayedPromotionLocked(id string, delay time.Duration) {
	t := time.AfterFunc(delay, func() { b.promoteDelayed(id) })
	b.timers[id] = t
}

func (b *Backend) promoteDelayed(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[id]
	if !ok || rec.Status != backend.StatusDelayed {
		return
	}
	delete(b.timers, id)
	if b.pausedQ[rec.Queue] || (b.pausedJob[rec.Queue] != nil && b.pausedJob[rec.Queue][rec.Name]) {
		rec.Status = backend.StatusPaused
		return
	}
	rec.Status = backend.StatusWaiting
	b.kick()
}

// Schedule computes a delay from "at" (cron/every are stored but not
// advanced by this backend, per spec §4.6/§9) and otherwise behaves
// like Dispatch.
func (b *Backend) Schedule(_ context.Context, params backend.ScheduleParams) (string, error) {
	now := time.Now()
	if err := backend.ValidateScheduleParams(params, now); err != nil {
		return "", err
	}

	delay := params.Delay
	if params.At != nil {
		delay = params.At.Sub(now)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dispatchLocked(params.DispatchParams, delay)
}

func (b *Backend) lookupJobLocked(queue, job string) (backend.JobDefinition, bool) {
	defs, ok := b.jobDefs[queue]
	if !ok {
		return backend.JobDefinition{}, false
	}
	def, ok := defs[job]
	return def, ok
}

// claimNextLocked picks the next waiting record among queues (in
// order), sorted by (priority desc, createdAt asc), and transitions it
// to active. Must be called while holding b.mu.
func (b *Backend) claimNextLocked(queues []string) (*backend.Record, bool) {
	for _, queue := range queues {
		if b.pausedQ[queue] {
			continue
		}
		var candidates []*backend.Record
		for id := range b.queueIDs[queue] {
			rec := b.records[id]
			if rec != nil && rec.Status == backend.StatusWaiting {
				candidates = append(candidates, rec)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority > candidates[j].Priority
			}
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		})
		rec := candidates[0]
		now := time.Now()
		rec.Status = backend.StatusActive
		rec.StartedAt = &now
		rec.AttemptsMade++
		rec.Logs = append(rec.Logs, backend.LogEntry{Timestamp: now, Level: backend.LogInfo, Message: "started"})
		return rec, true
	}
	return nil, false
}

// snapshotLocked returns a shallow copy safe to hand to callers outside
// the lock.
func snapshotLocked(rec *backend.Record) backend.Record {
	cp := *rec
	cp.Logs = append([]backend.LogEntry(nil), rec.Logs...)
	return cp
}

func (b *Backend) queuesForWorker(configured []string) []string {
	if len(configured) > 0 {
		return configured
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[string]bool)
	var all []string
	for q := range b.queueIDs {
		if !seen[q] {
			seen[q] = true
			all = append(all, q)
		}
	}
	sort.Strings(all)
	return all
}
