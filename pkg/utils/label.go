package utils

// Label 记录一个 Item 经过的策略与原因：哪个召回源、是否走了兜底、被哪个过滤器移除。
// Value 与 Source 的语义由调用方定义；这里只提供标准化的合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank / postprocess
}

// NewLabel 创建 Label。
func NewLabel(value, source string) Label {
	return Label{Value: value, Source: source}
}

// MergeLabel 合并同名 Label，保留历史：
// Value 以 '|' 累积，Source 以 ',' 累积，任一侧为空时取另一侧。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	case existing.Source == incoming.Source:
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
