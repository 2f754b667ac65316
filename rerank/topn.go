package rerank

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
)

// TopNNode 在排序后截取前 N 篇文章。
// 请求参数 limit 优先于 N；两者都不大于 0 时不截断。
//
// 示例：
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Fanout{...},
//	        &rerank.SortNode{},
//	        &rerank.TopNNode{N: 20},
//	    },
//	}
type TopNNode struct {
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if v, ok := rctx.ParamInt64(core.ParamLimit); ok && v > 0 {
		limit = int(v)
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
