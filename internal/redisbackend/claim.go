// Copyright 2025 James Ross
package redisbackend

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// claimScript atomically pops the highest-priority ready job (lowest
// ZSET score, since scoreTime inverts priority), marks it active, and
// records a processing deadline used for crash recovery. KEYS: 1)
// ready zset 2) processing zset. ARGV: 1) now (RFC3339Nano) 2)
// processing deadline (unix millis) 3) job hash key prefix.
const claimScript = `
local popped = redis.call('ZPOPMIN', KEYS[1])
if #popped == 0 then
  return false
end
local id = popped[1]
local jobKey = ARGV[3] .. id
redis.call('HSET', jobKey, 'status', 'active', 'startedAt', ARGV[1])
redis.call('HINCRBY', jobKey, 'attemptsMade', 1)
redis.call('ZADD', KEYS[2], ARGV[2], id)
return id
`

// processingVisibilityWindow bounds how long a claimed job may run
// before a reaper sweep considers its worker dead and reclaims it.
const processingVisibilityWindow = 5 * time.Minute

func (b *Backend) claimOne(ctx context.Context, queue string) (string, bool, error) {
	deadline := time.Now().Add(processingVisibilityWindow).UnixMilli()
	res, err := b.rdb.Eval(ctx, claimScript,
		[]string{readyKey(queue), processingKey(queue)},
		time.Now().Format(timeLayout), deadline, jobKeyPrefix(),
	).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	id, ok := res.(string)
	if !ok || id == "" {
		return "", false, nil
	}
	return id, true, nil
}

func jobKeyPrefix() string { return jobKey("") }

// reclaimStale moves processing entries whose deadline has elapsed
// back onto the ready set, guarding against a worker that crashed
// mid-job leaving its claim dangling forever.
func (b *Backend) reclaimStale(ctx context.Context, queue string) error {
	now := float64(time.Now().UnixMilli())
	stale, err := b.rdb.ZRangeByScore(ctx, processingKey(queue), &redis.ZRangeBy{
		Min: "-inf", Max: floatToStr(now),
	}).Result()
	if err != nil || len(stale) == 0 {
		return err
	}
	for _, id := range stale {
		fields, err := b.rdb.HGetAll(ctx, jobKey(id)).Result()
		if err != nil || len(fields) == 0 {
			b.rdb.ZRem(ctx, processingKey(queue), id)
			continue
		}
		rec, _ := decodeRecord(fields)
		b.rdb.ZRem(ctx, processingKey(queue), id)
		b.rdb.ZAdd(ctx, readyKey(queue), zMember(scoreTime(rec.Priority, rec.CreatedAt), id))
	}
	return nil
}
