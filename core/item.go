package core

import "github.com/rushteam/artrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：文章 ID、分数、展示标题、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
// Title 只在输出边界（postprocess）填充，召回与过滤只依赖 ID。
type Item struct {
	ID     int64
	Score  float64
	Title  string
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id int64) *Item {
	return &Item{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// NewScoredItem 创建带分数的 Item。
func NewScoredItem(id int64, score float64) *Item {
	it := NewItem(id)
	it.Score = score
	return it
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// ItemIDs 提取 ID 列表，保持顺序。
func ItemIDs(items []*Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it.ID)
		}
	}
	return out
}
