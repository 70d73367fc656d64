package bot

import (
	"context"
	"time"

	"github.com/ragequit-tracker/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

const pollLockKey = "bot:poll:lock"

// PollLock is a redis lease preventing two poll cycles from running
// concurrently against the same cursor when the scheduler double-fires.
// With a nil client it degrades to a no-op for single-instance setups.
type PollLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPollLock(client *redis.Client, ttl time.Duration) *PollLock {
	if client == nil {
		logger.Log.Warn("poll lock disabled: redis not configured")
	}
	return &PollLock{client: client, ttl: ttl}
}

// Acquire claims the lease. Returns false when another cycle holds it.
func (l *PollLock) Acquire(ctx context.Context) (bool, error) {
	if l.client == nil {
		return true, nil
	}
	return l.client.SetNX(ctx, pollLockKey, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
}

func (l *PollLock) Release(ctx context.Context) {
	if l.client == nil {
		return
	}
	if err := l.client.Del(ctx, pollLockKey).Err(); err != nil {
		logger.Log.WithError(err).Warn("failed to release poll lock")
	}
}
