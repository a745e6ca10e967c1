package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultLockKey = "pricewatch:run-lock"

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLock is a single-instance Redis lease shared by every process that
// points at the same key.
type RedisLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisLock(ctx context.Context, addr, password string, db int, key string, ttl time.Duration, log *slog.Logger) (*RedisLock, error) {
	const op = "scheduler.NewRedisLock"

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if key == "" {
		key = DefaultLockKey
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisLock{client: rdb, key: key, ttl: ttl, log: log}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (func(), bool, error) {
	const op = "scheduler.RedisLock.Acquire"

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// the run's ctx may already be cancelled
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{l.key}, token).Err(); err != nil {
			l.log.WarnContext(rctx, "failed to release run lock", slog.Any("error", err))
		}
	}
	return release, true, nil
}

func (l *RedisLock) Close() error {
	return l.client.Close()
}
