// Package redisqueue implements the durable recalculation queue (domain.Queue)
// on top of Redis, reusing the teacher's Scan-iterator idiom from its cache
// adapter to enumerate the `calc:*` namespace the recalc worker drains.
package redisqueue

import (
	"context"

	gredis "github.com/redis/go-redis/v9"

	"github.com/pp-server/pp-server/internal/domain"
)

const keyPattern = "calc:*"

// Queue implements domain.Queue using a Redis client.
type Queue struct {
	rdb *gredis.Client
}

// New creates a new Redis-backed queue adapter.
func New(rdb *gredis.Client) *Queue { return &Queue{rdb: rdb} }

// Keys enumerates every pending `calc:*` entry, reusing the teacher's SCAN
// iterator loop rather than the blocking KEYS command.
func (q *Queue) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := q.rdb.Scan(ctx, 0, keyPattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Get fetches the raw value for key. Returns ("", false, nil) on miss.
func (q *Queue) Get(ctx context.Context, key string) (string, bool, error) {
	s, err := q.rdb.Get(ctx, key).Result()
	if err == gredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// Set stores value for key with no expiry; entries live until Del removes
// them on success or retry exhaustion.
func (q *Queue) Set(ctx context.Context, key, value string) error {
	return q.rdb.Set(ctx, key, value, 0).Err()
}

// Del removes a key outright.
func (q *Queue) Del(ctx context.Context, key string) error {
	return q.rdb.Del(ctx, key).Err()
}

var _ domain.Queue = (*Queue)(nil)
