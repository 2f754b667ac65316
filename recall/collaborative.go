package recall

import (
	"context"
	"math"
	"sort"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/matrix"
	"github.com/rushteam/artrec/pkg/utils"
	"github.com/rushteam/artrec/similarity"
)

// Neighbor 是邻居用户及其相似度、不同文章交互数。
type Neighbor struct {
	UserID       int64
	Similarity   float64
	Interactions int
}

// RankNeighbors 返回 userID 的邻居排序：相似度降序、交互数降序、用户 ID 升序。
// 用户不在矩阵中时返回空（冷启动不是错误）。结果不包含用户自己。
func RankNeighbors(userID int64, log core.InteractionLog, im *matrix.InteractionMatrix) []Neighbor {
	if im == nil {
		return nil
	}
	if _, ok := im.UserIndex(userID); !ok {
		return nil
	}
	sims, err := similarity.Cosine(im.Users(), im.Matrix())
	if err != nil {
		return nil
	}
	return rankNeighbors(userID, log.DistinctArticleCounts(), sims)
}

func rankNeighbors(userID int64, counts map[int64]int, sims *similarity.Matrix) []Neighbor {
	row := sims.Row(userID)
	if row == nil {
		return nil
	}
	out := make([]Neighbor, 0, len(row))
	for i, s := range row {
		id := sims.KeyAt(i)
		if id == userID {
			continue
		}
		out = append(out, Neighbor{UserID: id, Similarity: s, Interactions: counts[id]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if out[i].Interactions != out[j].Interactions {
			return out[i].Interactions > out[j].Interactions
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// FindSimilarUsers 返回与 userID 最相似的 k 个用户（相似度降序，ID 升序），不含自己。
// k <= 0 返回全部；未知用户返回空。
func FindSimilarUsers(userID int64, im *matrix.InteractionMatrix, k int) []int64 {
	if im == nil {
		return nil
	}
	if _, ok := im.UserIndex(userID); !ok {
		return nil
	}
	sims, err := similarity.Cosine(im.Users(), im.Matrix())
	if err != nil {
		return nil
	}
	return findSimilarUsers(userID, sims, k)
}

func findSimilarUsers(userID int64, sims *similarity.Matrix, k int) []int64 {
	i, ok := sims.Index(userID)
	if !ok {
		return nil
	}
	row := sims.Row(userID)
	scored := make([]similarity.Scored, 0, len(row))
	for j, s := range row {
		if j == i {
			continue
		}
		scored = append(scored, similarity.Scored{Index: j, Score: s})
	}
	// 键升序，因此按下标打破平局即按用户 ID 打破平局
	similarity.SortScored(scored)
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	out := make([]int64, len(scored))
	for n, s := range scored {
		out[n] = sims.KeyAt(s.Index)
	}
	return out
}

// UserArticles 返回用户交互过的文章 ID 与标题（首次出现顺序，按文章去重）。
func UserArticles(userID int64, log core.InteractionLog) ([]int64, []string) {
	ids := log.ArticlesOf(userID)
	return ids, core.NewTitleIndex(log).Resolve(ids)
}

// ScoredArticle 是带分数的文章。
type ScoredArticle struct {
	ArticleID int64
	Score     float64
}

func sortScoredArticles(s []ScoredArticle) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].ArticleID < s[j].ArticleID
	})
}

func articleIDs(s []ScoredArticle) []int64 {
	out := make([]int64, len(s))
	for i, a := range s {
		out[i] = a.ArticleID
	}
	return out
}

// UserBasedCF 是基于用户的协同过滤（User-CF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的文章"
//
// 算法流程：
//  1. 用户 → 二值交互向量
//  2. 余弦相似度排序邻居（相似度、交互数、ID 三级排序）
//  3. 按邻居顺序收集用户未看过的文章：计票或按 相似度×ln(1+交互数) 加权
//  4. 候选池达到 factor*m 篇后停止扫描邻居
//
// 已看过的文章是硬排除，任何情况下都不会被推荐。
type UserBasedCF struct {
	// Snapshots 为 Recall 提供数据快照；直接调用 RecommendByXXX 时不需要
	Snapshots SnapshotProvider

	// TopKItems 默认推荐条数 m
	TopKItems int

	// VotePoolFactor 计票推荐的候选池系数，默认 3
	VotePoolFactor int

	// WeightedPoolFactor 加权推荐的候选池系数，默认 5
	WeightedPoolFactor int

	// Weighted 为 true 时 Recall 使用加权推荐，否则使用计票推荐
	Weighted bool
}

func (r *UserBasedCF) Name() string {
	if r.Weighted {
		return "recall.usercf.weighted"
	}
	return "recall.usercf"
}

func (r *UserBasedCF) topK(m int) int {
	if m > 0 {
		return m
	}
	if r.TopKItems > 0 {
		return r.TopKItems
	}
	return core.Defaults.DefaultTopKItems()
}

func (r *UserBasedCF) votePoolFactor() int {
	if r.VotePoolFactor > 0 {
		return r.VotePoolFactor
	}
	return core.Defaults.DefaultVotePoolFactor()
}

func (r *UserBasedCF) weightedPoolFactor() int {
	if r.WeightedPoolFactor > 0 {
		return r.WeightedPoolFactor
	}
	return core.Defaults.DefaultWeightedPoolFactor()
}

// RecommendByVoteCount 计票推荐，返回至多 m 个文章 ID 及其标题。
// m <= 0 时返回空。
func (r *UserBasedCF) RecommendByVoteCount(userID int64, log core.InteractionLog, im *matrix.InteractionMatrix, m int) ([]int64, []string) {
	if m <= 0 {
		return nil, nil
	}
	neighbors := RankNeighbors(userID, log, im)
	ids := articleIDs(r.voteCount(userID, log.ArticlesByUser(), neighbors, m))
	return ids, core.NewTitleIndex(log).Resolve(ids)
}

// RecommendByWeightedScore 加权推荐，返回至多 m 个文章 ID。m <= 0 时返回空。
func (r *UserBasedCF) RecommendByWeightedScore(userID int64, log core.InteractionLog, im *matrix.InteractionMatrix, m int) []int64 {
	if m <= 0 {
		return nil
	}
	neighbors := RankNeighbors(userID, log, im)
	return articleIDs(r.weightedScore(userID, log.ArticlesByUser(), neighbors, m))
}

// voteCount：每个邻居给每篇新文章投 1 票；票数降序、ID 升序。
func (r *UserBasedCF) voteCount(userID int64, byUser map[int64][]int64, neighbors []Neighbor, m int) []ScoredArticle {
	return aggregate(userID, byUser, neighbors, m*r.votePoolFactor(), m, func(Neighbor) float64 { return 1 })
}

// weightedScore：每个邻居贡献 similarity × ln(1+interactions)；分数降序、ID 升序。
func (r *UserBasedCF) weightedScore(userID int64, byUser map[int64][]int64, neighbors []Neighbor, m int) []ScoredArticle {
	return aggregate(userID, byUser, neighbors, m*r.weightedPoolFactor(), m, func(n Neighbor) float64 {
		return n.Similarity * math.Log1p(float64(n.Interactions))
	})
}

func aggregate(userID int64, byUser map[int64][]int64, neighbors []Neighbor, pool, m int, weight func(Neighbor) float64) []ScoredArticle {
	seen := make(map[int64]struct{}, len(byUser[userID]))
	for _, a := range byUser[userID] {
		seen[a] = struct{}{}
	}

	scores := make(map[int64]float64)
	for _, n := range neighbors {
		w := weight(n)
		for _, a := range byUser[n.UserID] {
			if _, ok := seen[a]; ok {
				continue
			}
			scores[a] += w
		}
		if len(scores) >= pool {
			break
		}
	}

	out := make([]ScoredArticle, 0, len(scores))
	for a, s := range scores {
		out = append(out, ScoredArticle{ArticleID: a, Score: s})
	}
	sortScoredArticles(out)
	if len(out) > m {
		out = out[:m]
	}
	return out
}

// Recall 实现 Source：从快照计算当前用户的推荐，分数为票数或加权分。
func (r *UserBasedCF) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Snapshots == nil || rctx == nil {
		return nil, nil
	}
	snap, err := r.Snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Matrix.UserIndex(rctx.UserID); !ok {
		return nil, nil
	}

	m := r.topK(limitParam(rctx))
	neighbors := rankNeighbors(rctx.UserID, snap.ArticleCounts(), snap.UserSimilarity())
	var scored []ScoredArticle
	mode := "vote"
	if r.Weighted {
		mode = "weighted"
		scored = r.weightedScore(rctx.UserID, snap.ArticlesByUser(), neighbors, m)
	} else {
		scored = r.voteCount(rctx.UserID, snap.ArticlesByUser(), neighbors, m)
	}

	out := make([]*core.Item, 0, len(scored))
	for _, s := range scored {
		it := core.NewScoredItem(s.ArticleID, s.Score)
		it.PutLabel("cf_mode", utils.NewLabel(mode, "recall"))
		out = append(out, it)
	}
	return out, nil
}

func limitParam(rctx *core.RecommendContext) int {
	if n, ok := rctx.ParamInt64(core.ParamLimit); ok && n > 0 {
		return int(n)
	}
	return 0
}

var _ Source = (*UserBasedCF)(nil)
