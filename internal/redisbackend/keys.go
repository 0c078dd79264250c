// Copyright 2025 James Ross
// Package redisbackend is the durable backend.Backend implementation
// (spec §4.7): go-redis/v9 sorted sets and hashes for job storage and
// priority/delay ordering, a robfig/cron/v3 scheduler goroutine for
// recurring dispatch, and Redis Pub/Sub for lifecycle events. Grounded
// on the teacher's internal/worker/worker.go (reliable-queue dequeue
// loop) and internal/storage-backends/redis_lists.go (key layout),
// generalized from a single priority-queue list-of-lists into a
// per-queue sorted-set so priority and createdAt order a single
// claim operation instead of iterating buckets.
package redisbackend

import "github.com/ignitehq/igniter-jobs/internal/prefixer"

func readyKey(queue string) string { return prefixer.QueueName(queue) + ":ready" }

func delayedKey(queue string) string { return prefixer.QueueName(queue) + ":delayed" }

func processingKey(queue string) string { return prefixer.QueueName(queue) + ":processing" }

func idsKey(queue string) string { return prefixer.QueueName(queue) + ":ids" }

func pausedKey(queue string) string { return prefixer.QueueName(queue) + ":paused" }

func pausedJobsKey(queue string) string { return prefixer.QueueName(queue) + ":paused-jobs" }

func queuesSetKey() string { return prefixer.BasePrefix + ":queues" }

func jobKey(id string) string { return prefixer.BasePrefix + ":job:" + id }
