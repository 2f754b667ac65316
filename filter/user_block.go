package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
)

// UserBlockFilter 过滤用户主动屏蔽的文章，key 为 {KeyPrefix}:{UserID}。
type UserBlockFilter struct {
	Store     UserBlockStore
	KeyPrefix string
}

// UserBlockStore 是用户屏蔽列表的存储接口。
type UserBlockStore interface {
	GetUserBlocks(ctx context.Context, userID int64, keyPrefix string) ([]int64, error)
}

// NewUserBlockFilter 创建一个用户屏蔽过滤器。
func NewUserBlockFilter(storeAdapter *StoreAdapter, keyPrefix string) *UserBlockFilter {
	f := &UserBlockFilter{KeyPrefix: keyPrefix}
	if storeAdapter != nil {
		f.Store = storeAdapter
	}
	return f
}

func (f *UserBlockFilter) Name() string {
	return "filter.user_block"
}

func (f *UserBlockFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Store == nil || rctx == nil {
		return false, nil
	}
	// TODO: 同一请求内每个候选都会读一次存储，可在 rctx 上缓存屏蔽列表
	blocked, err := f.Store.GetUserBlocks(ctx, rctx.UserID, f.KeyPrefix)
	if err != nil {
		return false, err
	}
	for _, id := range blocked {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}

var _ Filter = (*UserBlockFilter)(nil)
