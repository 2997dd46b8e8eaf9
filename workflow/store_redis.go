package workflow

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisBlobFieldData     = "data"
	redisBlobFieldRevision = "revision"
)

var clearBlobScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
    return 0
end
redis.call("HSET", KEYS[1], ARGV[1], "")
return redis.call("HINCRBY", KEYS[1], ARGV[2], 1)
`)

// NewRedisAppStoreRepo redis存储, 每个namespace一个hash: data + revision
// prefix可以为空, 例如"ezyflow:"
func NewRedisAppStoreRepo(client redis.UniversalClient, prefix string) AppStoreRepo {
	return &redisAppStoreRepo{client: client, prefix: prefix}
}

type redisAppStoreRepo struct {
	client redis.UniversalClient
	prefix string
}

func (r *redisAppStoreRepo) key(namespace string) string {
	return r.prefix + namespace
}

func (r *redisAppStoreRepo) Load(ctx context.Context, namespace string) (*Blob, error) {
	values, err := r.client.HGetAll(ctx, r.key(namespace)).Result()
	if err != nil {
		return nil, errors.WithMessagef(err, "[redisAppStoreRepo.Load] namespace: %s", namespace)
	}
	if len(values) == 0 {
		return &Blob{}, nil
	}
	revision, err := readRevision(values[redisBlobFieldRevision])
	if err != nil {
		return nil, errors.WithMessagef(err, "[redisAppStoreRepo.Load] namespace: %s", namespace)
	}
	return &Blob{Data: []byte(values[redisBlobFieldData]), Revision: revision}, nil
}

// Save 用WATCH + MULTI做比较并交换, 事务被打断也算冲突
func (r *redisAppStoreRepo) Save(ctx context.Context, namespace string, data []byte, expectedRevision int64) (int64, error) {
	key := r.key(namespace)
	newRevision := expectedRevision + 1
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, redisBlobFieldRevision).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expectedRevision {
			return errors.WithMessagef(ErrStoreRevisionConflict, "namespace: %s, expected: %d, current: %d", namespace, expectedRevision, current)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, redisBlobFieldData, data, redisBlobFieldRevision, newRevision)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return 0, errors.WithMessagef(ErrStoreRevisionConflict, "namespace: %s, concurrent write", namespace)
	}
	if err != nil {
		return 0, errors.WithMessagef(err, "[redisAppStoreRepo.Save] namespace: %s", namespace)
	}
	return newRevision, nil
}

// Delete hash保留下来做墓碑, 清空data, revision加一
func (r *redisAppStoreRepo) Delete(ctx context.Context, namespace string) (int64, error) {
	revision, err := clearBlobScript.Run(ctx, r.client, []string{r.key(namespace)}, redisBlobFieldData, redisBlobFieldRevision).Int64()
	if err != nil {
		return 0, errors.WithMessagef(err, "[redisAppStoreRepo.Delete] namespace: %s", namespace)
	}
	return revision, nil
}

func readRevision(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	revision, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("revision %q is not a number", s)
	}
	return revision, nil
}
