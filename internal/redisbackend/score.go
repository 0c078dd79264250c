// Copyright 2025 James Ross
package redisbackend

import (
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func floatToStr(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// scoreTime computes a ready-set score where higher priority always
// sorts before lower priority, and createdAt breaks ties ascending
// within the same priority — ZPOPMIN then claims exactly the record
// spec §4.6's claim order names.
func scoreTime(priority int, createdAt time.Time) float64 {
	return float64(-priority)*priorityOffset + float64(createdAt.UnixMilli())
}

func zMember(score float64, id string) redis.Z {
	return redis.Z{Score: score, Member: id}
}
