package filter

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的存储接口。
// 列表以 JSON 文章 ID 数组存储；key 不存在视为空列表。
type StoreAdapter struct {
	store core.Store
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetBlacklist 从 Store 读取黑名单。
func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]int64, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, core.NewInvalidInputError(core.ModuleStore, "decode %s: %v", key, err)
	}
	return ids, nil
}

// GetUserBlocks 从 Store 读取用户屏蔽列表。
func (a *StoreAdapter) GetUserBlocks(ctx context.Context, userID int64, keyPrefix string) ([]int64, error) {
	return a.GetBlacklist(ctx, keyPrefix+":"+strconv.FormatInt(userID, 10))
}

// SetList 写入一个 ID 列表（黑名单或屏蔽列表）。
func (a *StoreAdapter) SetList(ctx context.Context, key string, ids []int64) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}

var (
	_ BlacklistStore = (*StoreAdapter)(nil)
	_ UserBlockStore = (*StoreAdapter)(nil)
)
