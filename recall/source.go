package recall

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
)

// Source 表示一个可复用的召回源（协同过滤/内容/隐因子/热门/...）。
// 可以把它理解为“可并发 fan-out 的策略单元”。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// SourceNode 把单个召回源包装为 Pipeline 的 Recall Node。
// 上游传入的 items 会被召回结果替换。
type SourceNode struct {
	Source Source
}

func (n *SourceNode) Name() string        { return n.Source.Name() }
func (n *SourceNode) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *SourceNode) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return n.Source.Recall(ctx, rctx)
}

var _ pipeline.Node = (*SourceNode)(nil)
