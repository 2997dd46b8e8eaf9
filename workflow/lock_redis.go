package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`

// NewRedisAppStoreLock 基于redis SETNX的分布式锁, 多实例共用一个存储时使用
func NewRedisAppStoreLock(redisClient redis.Cmdable) AppStoreLock {
	return &redisAppStoreLock{redisClient: redisClient}
}

type redisAppStoreLock struct {
	redisClient redis.Cmdable
}

func (d *redisAppStoreLock) NonBlockingSynchronized(ctx context.Context, key string, maxLockTimeDuration time.Duration, f func(ctx2 context.Context) error) error {
	if _, ok := ctx.Value(lockKey(key)).(string); ok {
		// 之前成功上锁了,继续执行即可
		return f(ctx)
	}
	value := uuid.NewString()
	isLock, err := d.redisClient.SetNX(ctx, key, value, maxLockTimeDuration).Result()
	if err != nil {
		return errors.WithMessagef(LockFailedError, "[redisAppStoreLock.NonBlockingSynchronized] err: %v", err)
	}
	if !isLock {
		return errors.WithMessagef(LockFailedError, "[redisAppStoreLock.NonBlockingSynchronized] %s has been locked", key)
	}
	defer d.release(key, value)
	return f(context.WithValue(ctx, lockKey(key), value))
}

func (d *redisAppStoreLock) release(key string, value string) {
	// ctx可能已经被cancel, 释放锁用新的context
	reply, err := d.redisClient.Eval(context.Background(), releaseLockScript, []string{key}, value).Int64()
	if err != nil {
		slog.Error("[redisAppStoreLock.release] release key failed", "key", key, "err", err)
		return
	}
	if reply != 1 {
		// 锁已经过期或者被别人拿走了
		slog.Warn("[redisAppStoreLock.release] key not released", "key", key, "reply", reply)
	}
}
