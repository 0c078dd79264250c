// Copyright 2025 James Ross
package redisbackend

import (
	"context"
	"sort"
	"strings"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

func (b *Backend) SearchJobs(ctx context.Context, query backend.SearchJobsQuery) ([]backend.Record, error) {
	var queues []string
	if query.Queue != "" {
		queues = []string{query.Queue}
	} else {
		all, err := b.ListQueues(ctx)
		if err != nil {
			return nil, err
		}
		queues = all
	}

	statusSet := make(map[backend.Status]bool, len(query.Status))
	for _, s := range query.Status {
		statusSet[s] = true
	}

	var matches []backend.Record
	for _, queue := range queues {
		ids, err := b.rdb.SMembers(ctx, idsKey(queue)).Result()
		if err != nil {
			continue
		}
		for _, id := range ids {
			rec, err := b.GetJob(ctx, queue, id)
			if err != nil {
				continue
			}
			if query.Name != "" && rec.Name != query.Name {
				continue
			}
			if len(statusSet) > 0 && !statusSet[rec.Status] {
				continue
			}
			matches = append(matches, rec)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })

	if query.Offset > 0 {
		if query.Offset >= len(matches) {
			return nil, nil
		}
		matches = matches[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(matches) {
		matches = matches[:query.Limit]
	}
	return matches, nil
}

func (b *Backend) SearchQueues(ctx context.Context, query backend.SearchQueuesQuery) ([]backend.QueueInfo, error) {
	names, err := b.ListQueues(ctx)
	if err != nil {
		return nil, err
	}
	var out []backend.QueueInfo
	for _, name := range names {
		if query.NamePrefix != "" && !strings.HasPrefix(name, query.NamePrefix) {
			continue
		}
		info, err := b.GetQueueInfo(ctx, name)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (b *Backend) SearchWorkers(_ context.Context, query backend.SearchWorkersQuery) ([]backend.WorkerHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []backend.WorkerHandle
	for _, w := range b.workers {
		if query.Queue == "" {
			out = append(out, w)
			continue
		}
		for _, q := range w.queues {
			if q == query.Queue {
				out = append(out, w)
				break
			}
		}
	}
	return out, nil
}
