package workflow

import (
	"context"
)

// Blob 存储里的一份数据和它的版本号, 版本号0表示还没有数据
type Blob struct {
	Data     []byte
	Revision int64
}

// AppStoreRepo 应用列表的存储, 整个列表是一个按namespace存放的blob
type AppStoreRepo interface {
	// Load 读取blob, 不存在返回空Data和Revision 0, 不返回错误
	Load(ctx context.Context, namespace string) (*Blob, error)
	// Save 只有存储里的版本号等于expectedRevision时才写入, 否则返回ErrStoreRevisionConflict
	// 写入成功返回新的版本号
	Save(ctx context.Context, namespace string, data []byte, expectedRevision int64) (int64, error)
	// Delete 清空blob, 版本号加一并返回, 不会回到0
	// 其他实例缓存里的旧版本号因此不会和清空后的数据撞上
	// namespace不存在时什么都不做, 返回0
	Delete(ctx context.Context, namespace string) (int64, error)
}
