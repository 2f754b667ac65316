// Package postprocess 在 Pipeline 末端补充展示字段。
package postprocess

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/recall"
)

// TitleNode 按快照的标题索引填充 Item.Title。
// 未知文章填充占位标题 "title not found: {id}"，条目本身从不丢弃。
// 已有标题的条目保持不变。
type TitleNode struct {
	Snapshots recall.SnapshotProvider
}

func (n *TitleNode) Name() string { return "postprocess.titles" }

func (n *TitleNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *TitleNode) Process(
	ctx context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	var titles *core.TitleIndex
	if n.Snapshots != nil {
		snap, err := n.Snapshots.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		titles = snap.Titles
	}
	for _, it := range items {
		if it == nil || it.Title != "" {
			continue
		}
		it.Title = titles.Title(it.ID)
	}
	return items, nil
}

var _ pipeline.Node = (*TitleNode)(nil)
