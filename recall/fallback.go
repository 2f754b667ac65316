package recall

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/metrics"
	"github.com/rushteam/artrec/pkg/utils"
)

// Fallback 组合两个召回源：Primary 没有结果（冷启动用户、未知文章）或出错时使用 Secondary。
// 典型用法是 User-CF 回落到热门。
// 回落只标记在返回的 Item 上；Fanout 会并发调用多个源，共享的 rctx 对召回源只读。
type Fallback struct {
	Primary   Source
	Secondary Source
	Logger    *zerolog.Logger
}

func (f *Fallback) Name() string { return "recall.fallback" }

func (f *Fallback) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if f.Primary != nil {
		items, err := f.Primary.Recall(ctx, rctx)
		if err == nil && len(items) > 0 {
			return items, nil
		}
		if err != nil {
			l := logging.Or(f.Logger, "recall.fallback")
			l.Warn().Err(err).Str("source", f.Primary.Name()).Msg("primary source failed, falling back")
		}
	}
	if f.Secondary == nil {
		return nil, nil
	}

	metrics.Fallbacks.WithLabelValues(f.Secondary.Name()).Inc()
	items, err := f.Secondary.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.PutLabel("fallback", utils.NewLabel(f.Secondary.Name(), "recall"))
	}
	return items, nil
}

var _ Source = (*Fallback)(nil)
