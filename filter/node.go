package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/logging"
)

// FilterNode 是过滤 Node，可以组合多个过滤器。
// 任何一个过滤器返回 true，该文章就会被过滤掉。
// 单个过滤器出错时记录日志并视为“保留”，不中断请求；
// SeenFilter 是例外，它只读快照，不会出错。
type FilterNode struct {
	Filters []Filter
	Logger  *zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}
	log := logging.Or(n.Logger, "filter")

	out := make([]*core.Item, 0, len(items))
	removed := make(map[string]int)
	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				log.Warn().Err(err).Str("filter", f.Name()).Int64("article_id", item.ID).Msg("filter failed, keeping item")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}
		if reason != "" {
			removed[reason]++
			continue
		}
		out = append(out, item)
	}

	if len(removed) > 0 {
		ev := log.Debug().Int("in", len(items)).Int("out", len(out))
		for name, c := range removed {
			ev = ev.Int(name, c)
		}
		ev.Msg("items filtered")
	}
	return out, nil
}

var _ pipeline.Node = (*FilterNode)(nil)
