package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AppBlobPo 应用列表blob, 一个namespace一行
type AppBlobPo struct {
	Namespace string `gorm:"column:namespace;primaryKey;size:128" json:"namespace"`
	Data      []byte `gorm:"column:data" json:"data"` // 应用列表json
	Revision  int64  `gorm:"column:revision" json:"revision"`
	CreatedAt int64  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt int64  `gorm:"column:updated_at" json:"updated_at"`
}

func (AppBlobPo) TableName() string {
	return "app_blob"
}

type appStoreRepo struct {
	db *gorm.DB
}

func NewGormAppStoreRepo(db *gorm.DB) AppStoreRepo {
	return &appStoreRepo{
		db: db,
	}
}

func (r *appStoreRepo) Load(ctx context.Context, namespace string) (*Blob, error) {
	pos := make([]*AppBlobPo, 0)
	if err := r.GetDBWithContext(ctx).Model(&AppBlobPo{}).Where("namespace = ?", namespace).Limit(1).Find(&pos).Error; err != nil {
		return nil, errors.WithMessagef(err, "Load failed, namespace: %s", namespace)
	}
	if len(pos) == 0 {
		return &Blob{}, nil
	}
	return &Blob{Data: pos[0].Data, Revision: pos[0].Revision}, nil
}

func (r *appStoreRepo) Save(ctx context.Context, namespace string, data []byte, expectedRevision int64) (int64, error) {
	if data == nil {
		return 0, fmt.Errorf("nil data")
	}
	newRevision := expectedRevision + 1
	err := r.Transaction(ctx, func(ctx context.Context) error {
		db := r.GetDBWithContext(ctx)
		if expectedRevision == 0 {
			// 第一次写入, 行不能已经存在
			var count int64
			if err := db.Model(&AppBlobPo{}).Where("namespace = ?", namespace).Count(&count).Error; err != nil {
				return errors.WithMessage(err, "count app blob failed")
			}
			if count > 0 {
				return errors.WithMessagef(ErrStoreRevisionConflict, "namespace: %s already exists", namespace)
			}
			now := time.Now().Unix()
			if err := db.Create(&AppBlobPo{
				Namespace: namespace,
				Data:      data,
				Revision:  newRevision,
				CreatedAt: now,
				UpdatedAt: now,
			}).Error; err != nil {
				return errors.WithMessage(err, "create app blob failed")
			}
			return nil
		}
		// 比较并交换: 只有revision没变才更新
		result := db.Model(&AppBlobPo{}).
			Where("namespace = ? AND revision = ?", namespace, expectedRevision).
			Updates(map[string]any{
				"data":       data,
				"revision":   newRevision,
				"updated_at": time.Now().Unix(),
			})
		if result.Error != nil {
			return errors.WithMessage(result.Error, "update app blob failed")
		}
		if result.RowsAffected != 1 {
			return errors.WithMessagef(ErrStoreRevisionConflict, "namespace: %s, expected revision: %d", namespace, expectedRevision)
		}
		return nil
	})
	if err != nil {
		return 0, errors.WithMessagef(err, "Save failed, namespace: %s", namespace)
	}
	return newRevision, nil
}

// Delete 行保留下来做墓碑, 只清空data
func (r *appStoreRepo) Delete(ctx context.Context, namespace string) (int64, error) {
	var revision int64
	err := r.Transaction(ctx, func(ctx context.Context) error {
		db := r.GetDBWithContext(ctx)
		result := db.Model(&AppBlobPo{}).
			Where("namespace = ?", namespace).
			Updates(map[string]any{
				"data":       []byte{},
				"revision":   gorm.Expr("revision + 1"),
				"updated_at": time.Now().Unix(),
			})
		if result.Error != nil {
			return errors.WithMessage(result.Error, "clear app blob failed")
		}
		if result.RowsAffected == 0 {
			return nil
		}
		pos := make([]*AppBlobPo, 0)
		if err := db.Model(&AppBlobPo{}).Where("namespace = ?", namespace).Limit(1).Find(&pos).Error; err != nil {
			return errors.WithMessage(err, "reload app blob failed")
		}
		if len(pos) > 0 {
			revision = pos[0].Revision
		}
		return nil
	})
	if err != nil {
		return 0, errors.WithMessagef(err, "Delete failed, namespace: %s", namespace)
	}
	return revision, nil
}

type contextKey string

const (
	transactionContextKey contextKey = "transaction"
)

func (r *appStoreRepo) GetDBWithContext(ctx context.Context) *gorm.DB {
	tx := ctx.Value(transactionContextKey)
	if tx == nil {
		// 没有事务，直接返回db即可
		return r.db.WithContext(ctx)
	}
	return tx.(*gorm.DB)
}

func (r *appStoreRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctxTX := ctx.Value(transactionContextKey)
	if ctxTX == nil {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return errors.WithMessage(tx.Error, "begin transaction failed")
		}
		defer func() {
			if err != nil {
				tx.Rollback()
			} else {
				err = tx.Commit().Error
			}
		}()
		newCtx := context.WithValue(ctx, transactionContextKey, tx)
		err = fn(newCtx)
		return err
	}
	return fn(ctx)
}
