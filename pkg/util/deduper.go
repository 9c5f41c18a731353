package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses duplicate processing of redelivered tasks. The broker
// guarantees at-least-once delivery, so after a worker crash the same task
// id can arrive again.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce tries to acquire a dedup lock for a given queue + task id.
// Returns true if this is the first time processing, false on a duplicate.
// Fails open: if redis is unavailable, processing is not blocked.
func (d *Deduper) AcquireOnce(ctx context.Context, queue, taskID string) bool {
	key := fmt.Sprintf("dedup:%s:%s", queue, taskID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Release drops the dedup lock so a task can be retried after a failure.
func (d *Deduper) Release(ctx context.Context, queue, taskID string) {
	key := fmt.Sprintf("dedup:%s:%s", queue, taskID)
	_ = d.rdb.Del(ctx, key).Err()
}
