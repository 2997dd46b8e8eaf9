package workflow

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newSqliteAppStoreRepo(t *testing.T) AppStoreRepo {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: 每个连接是一个独立的库
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&AppBlobPo{}))
	return NewGormAppStoreRepo(db)
}

func newRedisAppStoreRepo(t *testing.T) AppStoreRepo {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisAppStoreRepo(client, "ezyflow:")
}

func TestAppStoreRepo(t *testing.T) {
	repos := map[string]func(t *testing.T) AppStoreRepo{
		"memory": func(t *testing.T) AppStoreRepo { return NewMemoryAppStoreRepo() },
		"sqlite": newSqliteAppStoreRepo,
		"redis":  newRedisAppStoreRepo,
	}
	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			t.Run("没有数据", func(t *testing.T) {
				blob, err := repo.Load(ctx, "ns")
				require.NoError(t, err)
				assert.Empty(t, blob.Data)
				assert.Equal(t, int64(0), blob.Revision)
			})

			t.Run("比较并交换", func(t *testing.T) {
				revision, err := repo.Save(ctx, "ns", []byte(`[1]`), 0)
				require.NoError(t, err)
				assert.Equal(t, int64(1), revision)

				// 第二个写者拿着旧版本号
				_, err = repo.Save(ctx, "ns", []byte(`[2]`), 0)
				assert.True(t, errors.Is(err, ErrStoreRevisionConflict))

				revision, err = repo.Save(ctx, "ns", []byte(`[1,2]`), 1)
				require.NoError(t, err)
				assert.Equal(t, int64(2), revision)

				_, err = repo.Save(ctx, "ns", []byte(`[3]`), 1)
				assert.True(t, errors.Is(err, ErrStoreRevisionConflict))
				_, err = repo.Save(ctx, "ns", []byte(`[3]`), 5)
				assert.True(t, errors.Is(err, ErrStoreRevisionConflict))

				blob, err := repo.Load(ctx, "ns")
				require.NoError(t, err)
				assert.Equal(t, `[1,2]`, string(blob.Data))
				assert.Equal(t, int64(2), blob.Revision)
			})

			t.Run("namespace隔离", func(t *testing.T) {
				blob, err := repo.Load(ctx, "other")
				require.NoError(t, err)
				assert.Equal(t, int64(0), blob.Revision)
			})

			t.Run("删除后版本号继续递增", func(t *testing.T) {
				revision, err := repo.Delete(ctx, "ns")
				require.NoError(t, err)
				assert.Equal(t, int64(3), revision)
				blob, err := repo.Load(ctx, "ns")
				require.NoError(t, err)
				assert.Empty(t, blob.Data)
				assert.Equal(t, int64(3), blob.Revision)

				// 删除前的版本号都写不进去
				for _, stale := range []int64{0, 1, 2} {
					_, err = repo.Save(ctx, "ns", []byte(`[9]`), stale)
					assert.True(t, errors.Is(err, ErrStoreRevisionConflict), stale)
				}
				revision, err = repo.Save(ctx, "ns", []byte(`[]`), 3)
				require.NoError(t, err)
				assert.Equal(t, int64(4), revision)

				// 删除不存在的namespace不报错
				revision, err = repo.Delete(ctx, "missing")
				require.NoError(t, err)
				assert.Equal(t, int64(0), revision)
				blob, err = repo.Load(ctx, "missing")
				require.NoError(t, err)
				assert.Equal(t, int64(0), blob.Revision)
			})
		})
	}
}

func TestGormAppStoreRepoTransaction(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&AppBlobPo{}))
	repo := &appStoreRepo{db: db}
	ctx := context.Background()

	t.Run("事务失败回滚", func(t *testing.T) {
		err := repo.Transaction(ctx, func(ctx context.Context) error {
			if _, err := repo.Save(ctx, "tx", []byte(`[]`), 0); err != nil {
				return err
			}
			return errors.New("boom")
		})
		require.Error(t, err)
		blob, err := repo.Load(ctx, "tx")
		require.NoError(t, err)
		assert.Equal(t, int64(0), blob.Revision)
	})

	t.Run("嵌套事务共用外层", func(t *testing.T) {
		err := repo.Transaction(ctx, func(ctx context.Context) error {
			_, err := repo.Save(ctx, "tx", []byte(`[]`), 0)
			return err
		})
		require.NoError(t, err)
		blob, err := repo.Load(ctx, "tx")
		require.NoError(t, err)
		assert.Equal(t, int64(1), blob.Revision)
	})
}
