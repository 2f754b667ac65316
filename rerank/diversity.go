package rerank

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
)

// Diversity 按分组限制每组保留的文章数，避免单一召回源占满结果。
// 分组来源优先级：
// - label[LabelKey].Value
// - meta[LabelKey] (string)
//
// 没有分组的文章不受限制。
type Diversity struct {
	LabelKey string // 默认 "recall_source"

	// MaxPerGroup 每组最多保留的条数，默认 1
	MaxPerGroup int
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.LabelKey
	if key == "" {
		key = "recall_source"
	}
	limit := n.MaxPerGroup
	if limit <= 0 {
		limit = 1
	}

	counts := make(map[string]int, 8)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		group := groupOf(it, key)
		if group == "" {
			out = append(out, it)
			continue
		}
		if counts[group] >= limit {
			continue
		}
		counts[group]++
		out = append(out, it)
	}
	return out, nil
}

func groupOf(it *core.Item, key string) string {
	if lbl, ok := it.Labels[key]; ok && lbl.Value != "" {
		return lbl.Value
	}
	if v, ok := it.Meta[key].(string); ok {
		return v
	}
	return ""
}
