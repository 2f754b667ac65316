// Package builders 注册内置 Node 的配置构建器。
package builders

import (
	"fmt"
	"time"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/conv"
	"github.com/rushteam/artrec/postprocess"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/rerank"
)

func init() {
	config.Register("recall.fanout", BuildFanoutNode)
	config.Register("recall.usercf", sourceNode("usercf"))
	config.Register("recall.content", sourceNode("content"))
	config.Register("recall.mf", sourceNode("mf"))
	config.Register("recall.hot", sourceNode("hot"))
	config.Register("recall.fallback", sourceNode("fallback"))
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.sort", BuildSortNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("postprocess.titles", BuildTitleNode)
}

// sourceNode 把单个召回源包装为独立的 Node 类型。
func sourceNode(sourceType string) config.NodeBuilder {
	return func(deps *config.Deps, cfg map[string]any) (pipeline.Node, error) {
		src, err := BuildSource(deps, sourceType, cfg)
		if err != nil {
			return nil, err
		}
		return &recall.SourceNode{Source: src}, nil
	}
}

func BuildFanoutNode(deps *config.Deps, cfg map[string]any) (pipeline.Node, error) {
	sourcesConfig := conv.ConfigGetMaps(cfg, "sources")
	if len(sourcesConfig) == 0 {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for i, sc := range sourcesConfig {
		src, err := BuildSource(deps, conv.ConfigGet(sc, "type", ""), sc)
		if err != nil {
			return nil, fmt.Errorf("source #%d: %w", i, err)
		}
		sources = append(sources, src)
	}
	fanout := &recall.Fanout{
		Sources:       sources,
		MergeStrategy: recall.MergeStrategyByName(conv.ConfigGet(cfg, "merge_strategy", "first")),
		Logger:        deps.Logger,
	}
	if ms := conv.ConfigGetInt64(cfg, "timeout_ms", 0); ms > 0 {
		fanout.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n := conv.ConfigGetInt(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = n
	}
	return fanout, nil
}

// BuildSource 根据类型构建召回源：usercf / usercf.weighted / content / mf / hot / fallback。
func BuildSource(deps *config.Deps, sourceType string, cfg map[string]any) (recall.Source, error) {
	rc := deps.Recall
	topK := conv.ConfigGetInt(cfg, "top_k", rc.TopK)
	switch sourceType {
	case "usercf", "usercf.weighted":
		return &recall.UserBasedCF{
			Snapshots:          deps.Snapshots,
			TopKItems:          topK,
			VotePoolFactor:     conv.ConfigGetInt(cfg, "vote_pool_factor", rc.VotePoolFactor),
			WeightedPoolFactor: conv.ConfigGetInt(cfg, "weighted_pool_factor", rc.WeightedPoolFactor),
			Weighted:           sourceType == "usercf.weighted" || conv.ConfigGet(cfg, "weighted", false),
		}, nil
	case "content":
		return &recall.ContentRecall{Snapshots: deps.Snapshots, TopK: topK}, nil
	case "mf":
		return &recall.MFRecall{
			Snapshots: deps.Snapshots,
			Rank:      conv.ConfigGetInt(cfg, "rank", rc.FactorRank),
			TopK:      topK,
		}, nil
	case "hot":
		hot := &recall.Hot{TopK: topK, Key: conv.ConfigGet(cfg, "key", "")}
		if conv.ConfigGet(cfg, "from_store", false) && deps.Store != nil {
			hot.Store = deps.Store
			if hot.Key == "" {
				hot.Key = recall.NewStoreInteractionAdapter(deps.Store, deps.KeyPrefix).PopularKey()
			}
		} else {
			hot.Snapshots = deps.Snapshots
		}
		return hot, nil
	case "fallback":
		primaryCfg, _ := cfg["primary"].(map[string]any)
		secondaryCfg, _ := cfg["secondary"].(map[string]any)
		if primaryCfg == nil || secondaryCfg == nil {
			return nil, fmt.Errorf("fallback needs primary and secondary")
		}
		primary, err := BuildSource(deps, conv.ConfigGet(primaryCfg, "type", ""), primaryCfg)
		if err != nil {
			return nil, fmt.Errorf("primary: %w", err)
		}
		secondary, err := BuildSource(deps, conv.ConfigGet(secondaryCfg, "type", ""), secondaryCfg)
		if err != nil {
			return nil, fmt.Errorf("secondary: %w", err)
		}
		return &recall.Fallback{Primary: primary, Secondary: secondary, Logger: deps.Logger}, nil
	default:
		return nil, core.NewInvalidInputError(core.ModuleConfig, "unknown source type: %q", sourceType)
	}
}

func BuildFilterNode(deps *config.Deps, cfg map[string]any) (pipeline.Node, error) {
	filtersConfig := conv.ConfigGetMaps(cfg, "filters")
	if len(filtersConfig) == 0 {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	var adapter *filter.StoreAdapter
	if deps.Store != nil {
		adapter = filter.NewStoreAdapter(deps.Store)
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		switch filterType := conv.ConfigGet(fc, "type", ""); filterType {
		case "seen":
			filters = append(filters, &filter.SeenFilter{Snapshots: deps.Snapshots})
		case "blacklist":
			ids := conv.SliceAnyToInt64(fc["article_ids"])
			filters = append(filters, filter.NewBlacklistFilter(ids, adapter, conv.ConfigGet(fc, "key", "")))
		case "user_block":
			filters = append(filters, filter.NewUserBlockFilter(adapter, conv.ConfigGet(fc, "key_prefix", "block")))
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(fc, "expr", ""))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, core.NewInvalidInputError(core.ModuleConfig, "unknown filter type: %q", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters, Logger: deps.Logger}, nil
}

func BuildSortNode(*config.Deps, map[string]any) (pipeline.Node, error) {
	return &rerank.SortNode{}, nil
}

func BuildTopNNode(_ *config.Deps, cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}

func BuildDiversityNode(_ *config.Deps, cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{
		LabelKey:    conv.ConfigGet(cfg, "label_key", "recall_source"),
		MaxPerGroup: conv.ConfigGetInt(cfg, "max_per_group", 1),
	}, nil
}

func BuildTitleNode(deps *config.Deps, _ map[string]any) (pipeline.Node, error) {
	return &postprocess.TitleNode{Snapshots: deps.Snapshots}, nil
}
