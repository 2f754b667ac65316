package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/recall"
)

// SeenFilter 过滤当前用户已经交互过的文章。
// 已读集合来自快照，是精确集合，不存在误判。
type SeenFilter struct {
	Snapshots recall.SnapshotProvider
}

func (f *SeenFilter) Name() string { return "filter.seen" }

func (f *SeenFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil || f.Snapshots == nil {
		return false, nil
	}
	snap, err := f.Snapshots.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return snap.Seen(rctx.UserID, item.ID), nil
}

var _ Filter = (*SeenFilter)(nil)
