package pipeline

import (
	"context"

	"github.com/rushteam/artrec/core"
)

// Kind 用于标记 Node 类型，方便观测与按阶段打点。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回阶段：生成候选文章
	KindFilter      Kind = "filter"      // 过滤阶段：剔除已读、黑名单等
	KindReRank      Kind = "rerank"      // 重排阶段：排序与截断
	KindPostProcess Kind = "postprocess" // 后处理阶段：补充标题等展示字段
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态：Recall 生成、Filter 剔除、ReRank 重排。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
