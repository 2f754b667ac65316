package recall

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/metrics"
	"github.com/rushteam/artrec/pkg/utils"
)

// MergeStrategy 决定多路召回结果如何合并。
// 输入按召回源顺序排列（第 i 个切片来自 Sources[i]）。
type MergeStrategy interface {
	Merge(results [][]*core.Item) []*core.Item
}

// FirstMergeStrategy 按 ID 去重，保留第一个出现的，后来者的 labels 合并到已有项。
type FirstMergeStrategy struct{}

func (FirstMergeStrategy) Merge(results [][]*core.Item) []*core.Item {
	seen := make(map[int64]*core.Item)
	var out []*core.Item
	for _, items := range results {
		for _, it := range items {
			if it == nil {
				continue
			}
			if old, ok := seen[it.ID]; ok {
				for k, v := range it.Labels {
					old.PutLabel(k, v)
				}
				continue
			}
			seen[it.ID] = it
			out = append(out, it)
		}
	}
	return out
}

// UnionMergeStrategy 合并所有结果，不去重（用于需要保留所有来源的场景）。
type UnionMergeStrategy struct{}

func (UnionMergeStrategy) Merge(results [][]*core.Item) []*core.Item {
	var out []*core.Item
	for _, items := range results {
		for _, it := range items {
			if it != nil {
				out = append(out, it)
			}
		}
	}
	return out
}

// PriorityMergeStrategy 按 ID 去重，分数取优先级最高（Sources 中最靠前）的来源，
// 与 First 的区别是同一来源内部重复时保留分数更高的一项。
type PriorityMergeStrategy struct{}

func (PriorityMergeStrategy) Merge(results [][]*core.Item) []*core.Item {
	type slot struct {
		item     *core.Item
		priority int
	}
	seen := make(map[int64]*slot)
	var order []int64
	for p, items := range results {
		for _, it := range items {
			if it == nil {
				continue
			}
			old, ok := seen[it.ID]
			if !ok {
				seen[it.ID] = &slot{item: it, priority: p}
				order = append(order, it.ID)
				continue
			}
			if old.priority == p && it.Score > old.item.Score {
				for k, v := range old.item.Labels {
					it.PutLabel(k, v)
				}
				old.item = it
				continue
			}
			for k, v := range it.Labels {
				old.item.PutLabel(k, v)
			}
		}
	}
	out := make([]*core.Item, 0, len(order))
	for _, id := range order {
		out = append(out, seen[id].item)
	}
	return out
}

// MergeStrategyByName 解析配置中的合并策略名：first / union / priority，未知名称回落到 first。
func MergeStrategyByName(name string) MergeStrategy {
	switch name {
	case "union":
		return UnionMergeStrategy{}
	case "priority":
		return PriorityMergeStrategy{}
	default:
		return FirstMergeStrategy{}
	}
}

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
// 单个召回源出错或超时只会让该路为空，不会中断其他召回源。
// 合并顺序只取决于 Sources 的顺序，与各路完成的先后无关。
type Fanout struct {
	Sources       []Source
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy MergeStrategy // 默认 FirstMergeStrategy
	Logger        *zerolog.Logger
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}
	log := logging.Or(n.Logger, "recall.fanout")

	results := make([][]*core.Item, len(n.Sources))
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			start := time.Now()
			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				metrics.RecallErrors.WithLabelValues(src.Name()).Inc()
				log.Warn().Err(err).Str("source", src.Name()).Msg("recall source failed")
				return nil
			}
			metrics.ObserveNode(src.Name(), string(pipeline.KindRecall), start, len(items))

			// 记录召回来源 label，方便 explain / 观测
			for _, it := range items {
				it.PutLabel("recall_source", utils.NewLabel(src.Name(), "recall"))
				it.PutLabel("recall_priority", utils.NewLabel(strconv.Itoa(i), "recall"))
			}
			results[i] = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	strategy := n.MergeStrategy
	if strategy == nil {
		strategy = FirstMergeStrategy{}
	}
	return strategy.Merge(results), nil
}

var _ pipeline.Node = (*Fanout)(nil)
