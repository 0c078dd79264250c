// Copyright 2025 James Ross
package membackend

import (
	"sort"

	"context"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

func (b *Backend) SearchJobs(_ context.Context, query backend.SearchJobsQuery) ([]backend.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	statusSet := make(map[backend.Status]bool, len(query.Status))
	for _, s := range query.Status {
		statusSet[s] = true
	}

	var ids map[string]bool
	if query.Queue != "" {
		ids = b.queueIDs[query.Queue]
	}

	var out []backend.Record
	for id, rec := range b.records {
		if ids != nil && !ids[id] {
			continue
		}
		if query.Name != "" && rec.Name != query.Name {
			continue
		}
		if len(statusSet) > 0 && !statusSet[rec.Status] {
			continue
		}
		out = append(out, snapshotLocked(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if query.Offset > 0 {
		if query.Offset >= len(out) {
			return nil, nil
		}
		out = out[query.Offset:]
	}
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (b *Backend) SearchQueues(_ context.Context, query backend.SearchQueuesQuery) ([]backend.QueueInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var names []string
	for q := range b.queueIDs {
		if query.NamePrefix == "" || len(q) >= len(query.NamePrefix) && q[:len(query.NamePrefix)] == query.NamePrefix {
			names = append(names, q)
		}
	}
	sort.Strings(names)

	out := make([]backend.QueueInfo, 0, len(names))
	for _, q := range names {
		info := backend.QueueInfo{Name: q, Paused: b.pausedQ[q]}
		for name := range b.jobDefs[q] {
			info.Jobs = append(info.Jobs, name)
		}
		for name := range b.cronDefs[q] {
			info.Crons = append(info.Crons, name)
		}
		sort.Strings(info.Jobs)
		sort.Strings(info.Crons)
		out = append(out, info)
	}
	return out, nil
}

func (b *Backend) SearchWorkers(_ context.Context, query backend.SearchWorkersQuery) ([]backend.WorkerHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []backend.WorkerHandle
	for _, w := range b.workers {
		if query.Queue != "" {
			matched := false
			for _, q := range w.queues {
				if q == query.Queue {
					matched = true
					break
				}
			}
			if !matched && len(w.queues) > 0 {
				continue
			}
		}
		out = append(out, w)
	}
	return out, nil
}
