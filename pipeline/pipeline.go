package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/metrics"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链，前一个 Node 的输出是后一个的输入。
type Pipeline struct {
	Name   string
	Nodes  []Node
	Logger *zerolog.Logger
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	log := logging.Or(p.Logger, "pipeline")
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			log.Error().Err(err).
				Str("pipeline", p.Name).
				Str("node", node.Name()).
				Msg("node failed")
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		metrics.ObserveNode(node.Name(), string(node.Kind()), start, len(next))
		log.Debug().
			Str("node", node.Name()).
			Int("in", len(cur)).
			Int("out", len(next)).
			Dur("took", time.Since(start)).
			Msg("node done")
		cur = next
	}
	return cur, nil
}
