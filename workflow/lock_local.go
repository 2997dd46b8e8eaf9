package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NewLocalAppStoreLock 进程内的锁, 单实例部署使用
func NewLocalAppStoreLock() AppStoreLock {
	return &localAppStoreLock{
		locks: &sync.Map{},
	}
}

// 每个key只有一个holder, 创建后不删除, 所有竞争者抢的都是同一把mutex
// key是namespace级别的, 数量有限
type localAppStoreLock struct {
	locks *sync.Map // key -> *localLockHolder
}

type localLockHolder struct {
	mu sync.Mutex

	stateMu sync.Mutex  // 保护value和timer, 超时释放在另一个goroutine里
	value   string      // 持有者标识, 释放时校验
	timer   *time.Timer // 超时自动释放
}

func (l *localAppStoreLock) NonBlockingSynchronized(ctx context.Context, key string, maxLockTimeDuration time.Duration, f func(context.Context) error) error {
	if _, ok := ctx.Value(lockKey(key)).(string); ok {
		// 已经持有锁，可重入
		return f(ctx)
	}

	value := uuid.NewString()
	holderInterface, _ := l.locks.LoadOrStore(key, &localLockHolder{})
	holder := holderInterface.(*localLockHolder)
	if !holder.mu.TryLock() {
		return errors.WithMessagef(LockFailedError, "[localAppStoreLock.NonBlockingSynchronized] %s has been locked", key)
	}
	holder.stateMu.Lock()
	holder.value = value
	holder.timer = time.AfterFunc(maxLockTimeDuration, func() {
		l.release(key, value)
	})
	holder.stateMu.Unlock()
	defer l.release(key, value)

	return f(context.WithValue(ctx, lockKey(key), value))
}

func (l *localAppStoreLock) release(key string, value string) {
	holderInterface, ok := l.locks.Load(key)
	if !ok {
		return
	}
	holder := holderInterface.(*localLockHolder)
	holder.stateMu.Lock()
	if holder.value != value {
		holder.stateMu.Unlock()
		slog.Warn("[localAppStoreLock.release] value mismatch", "key", key)
		return
	}
	if holder.timer != nil {
		holder.timer.Stop()
	}
	holder.value = ""
	holder.timer = nil
	holder.stateMu.Unlock()
	holder.mu.Unlock()
}
