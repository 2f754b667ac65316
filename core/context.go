package core

import "github.com/rushteam/artrec/pkg/utils"

// 常用的请求参数 key。
const (
	ParamArticleID = "article_id" // 相似文章召回的种子文章
	ParamLimit     = "limit"      // 期望返回条数
)

// RecommendContext 承载用户/场景/请求参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID    int64
	RequestID string
	Scene     string

	// Labels 是用户级标签，可驱动整个 Pipeline 行为（例如冷启动）
	Labels map[string]utils.Label

	// Params 请求级参数，例如 article_id（相似文章）、limit
	Params map[string]any
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// ParamInt64 读取整数参数，兼容 YAML/JSON 常见的 int / float64。
func (rctx *RecommendContext) ParamInt64(key string) (int64, bool) {
	if rctx == nil || rctx.Params == nil {
		return 0, false
	}
	switch v := rctx.Params[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
