// Copyright 2025 James Ross
// Package idgen produces collision-resistant, roughly time-ordered
// identifiers for jobs and workers: "<prefix>_<monotonic-ish>_<random>".
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// counter breaks ties for IDs minted within the same millisecond.
var counter uint32

// New returns a fresh identifier prefixed with prefix, e.g. New("job")
// might yield "job_1732551700123001_4f2a01" (millisecond timestamp,
// 3-digit sequence, 6 hex characters of randomness).
func New(prefix string) string {
	ms := time.Now().UnixMilli()
	seq := atomic.AddUint32(&counter, 1) % 1000
	suffix := randomSuffix()
	return fmt.Sprintf("%s_%d%03d_%s", prefix, ms, seq, suffix)
}

func randomSuffix() string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real
		// platform; fall back to a time-derived suffix rather than panic.
		return fmt.Sprintf("%06x", time.Now().UnixNano()&0xffffff)
	}
	return hex.EncodeToString(b[:])
}
