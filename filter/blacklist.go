package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
)

// BlacklistFilter 是全局黑名单过滤器（下架、违规文章）。
type BlacklistFilter struct {
	// ArticleIDs 是内存中的黑名单
	ArticleIDs []int64

	// Store 用于从存储中读取黑名单（可选）
	Store BlacklistStore

	// Key 是 Store 中的黑名单 key（可选）
	Key string

	ids map[int64]struct{}
}

// BlacklistStore 是黑名单存储接口。
type BlacklistStore interface {
	// GetBlacklist 获取黑名单文章 ID 列表
	GetBlacklist(ctx context.Context, key string) ([]int64, error)
}

// NewBlacklistFilter 创建一个黑名单过滤器。storeAdapter 为 nil 时只使用内存列表。
func NewBlacklistFilter(articleIDs []int64, storeAdapter *StoreAdapter, key string) *BlacklistFilter {
	f := &BlacklistFilter{ArticleIDs: articleIDs, Key: key}
	if storeAdapter != nil {
		f.Store = storeAdapter
	}
	f.ids = make(map[int64]struct{}, len(articleIDs))
	for _, id := range articleIDs {
		f.ids[id] = struct{}{}
	}
	return f
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	if f.ids != nil {
		if _, ok := f.ids[item.ID]; ok {
			return true, nil
		}
	} else {
		for _, id := range f.ArticleIDs {
			if item.ID == id {
				return true, nil
			}
		}
	}

	if f.Store != nil && f.Key != "" {
		blacklist, err := f.Store.GetBlacklist(ctx, f.Key)
		if err != nil {
			return false, err
		}
		for _, id := range blacklist {
			if item.ID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

var _ Filter = (*BlacklistFilter)(nil)
