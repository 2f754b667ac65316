package recall

import (
	"context"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/utils"
)

// ArticleCount 是文章及其不同交互用户数。
type ArticleCount struct {
	ArticleID int64 `json:"article_id"`
	Users     int   `json:"users"`
}

// RankArticlesByPopularity 按不同用户数降序、文章 ID 升序返回所有文章。
func RankArticlesByPopularity(log core.InteractionLog) []ArticleCount {
	counts := log.DistinctUserCounts()
	out := make([]ArticleCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, ArticleCount{ArticleID: id, Users: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Users != out[j].Users {
			return out[i].Users > out[j].Users
		}
		return out[i].ArticleID < out[j].ArticleID
	})
	return out
}

// TopNArticleIDs 返回最热门的 n 篇文章 ID。n <= 0 返回空。
func TopNArticleIDs(n int, log core.InteractionLog) []int64 {
	if n <= 0 {
		return nil
	}
	ranked := RankArticlesByPopularity(log)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]int64, len(ranked))
	for i, a := range ranked {
		out[i] = a.ArticleID
	}
	return out
}

// TopNArticleTitles 返回最热门的 n 篇文章标题，与 TopNArticleIDs 一一对应。
func TopNArticleTitles(n int, log core.InteractionLog) []string {
	ids := TopNArticleIDs(n, log)
	if len(ids) == 0 {
		return nil
	}
	return core.NewTitleIndex(log).Resolve(ids)
}

// Hot 是热门召回源。
//   - 配置了 Snapshots 时，直接从快照按不同用户数精确排序
//   - 否则从 Store 读取预计算榜单：KeyValueStore 用 ZRange（有序集合，分数降序），
//     普通 Store 读取 JSON 数组（StoreInteractionAdapter 在每次写入后发布）
//
// 有序集合同分时的次序由后端决定，需要精确平局规则时应使用 Snapshots。
type Hot struct {
	Snapshots SnapshotProvider
	Store     core.Store
	Key       string // 存储 key，例如 "artrec:popular"
	TopK      int    // 返回条数，默认 10
}

func (r *Hot) Name() string { return "recall.hot" }

func (r *Hot) topK(rctx *core.RecommendContext) int {
	if rctx != nil {
		if n := limitParam(rctx); n > 0 {
			return n
		}
	}
	if r.TopK > 0 {
		return r.TopK
	}
	return core.Defaults.DefaultTopKItems()
}

// Recall 实现 Source 接口。分数为不同用户数；从存储榜单读取时为 0。
func (r *Hot) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	k := r.topK(rctx)

	if r.Snapshots != nil {
		snap, err := r.Snapshots.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		ranked := RankArticlesByPopularity(snap.Log)
		if len(ranked) > k {
			ranked = ranked[:k]
		}
		out := make([]*core.Item, 0, len(ranked))
		for _, a := range ranked {
			it := core.NewScoredItem(a.ArticleID, float64(a.Users))
			it.PutLabel("hot_source", utils.NewLabel("snapshot", "recall"))
			out = append(out, it)
		}
		return out, nil
	}

	if r.Store == nil || r.Key == "" {
		return nil, nil
	}
	ids, err := r.fromStore(ctx, k)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := core.NewItem(id)
		it.PutLabel("hot_source", utils.NewLabel(r.Store.Name(), "recall"))
		out = append(out, it)
	}
	return out, nil
}

func (r *Hot) fromStore(ctx context.Context, k int) ([]int64, error) {
	if kv, ok := r.Store.(core.KeyValueStore); ok {
		members, err := kv.ZRange(ctx, r.Key, 0, int64(k-1))
		if err == nil && len(members) > 0 {
			ids := make([]int64, 0, len(members))
			for _, m := range members {
				if id, err := strconv.ParseInt(m, 10, 64); err == nil {
					ids = append(ids, id)
				}
			}
			return ids, nil
		}
		// 不是有序集合（WRONGTYPE）或为空时按 JSON 数组读取
	}

	data, err := r.Store.Get(ctx, r.Key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, core.NewInvalidInputError(core.ModuleStore, "hot list %s: %v", r.Key, err)
	}
	if len(ids) > k {
		ids = ids[:k]
	}
	return ids, nil
}

var _ Source = (*Hot)(nil)
