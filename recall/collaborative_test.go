package recall

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/matrix"
)

func scenarioLog() core.InteractionLog {
	return core.InteractionLog{
		{UserID: 1, ArticleID: 10, Title: "A"},
		{UserID: 1, ArticleID: 11, Title: "B"},
		{UserID: 2, ArticleID: 10, Title: "A"},
		{UserID: 2, ArticleID: 12, Title: "C"},
		{UserID: 3, ArticleID: 10, Title: "A"},
		{UserID: 3, ArticleID: 11, Title: "B"},
	}
}

func mustMatrix(t *testing.T, log core.InteractionLog) *matrix.InteractionMatrix {
	t.Helper()
	im, err := matrix.Build(log)
	if err != nil {
		t.Fatalf("matrix.Build() error = %v", err)
	}
	return im
}

func TestRankNeighbors_Scenario(t *testing.T) {
	log := scenarioLog()
	got := RankNeighbors(1, log, mustMatrix(t, log))
	if len(got) != 2 {
		t.Fatalf("RankNeighbors() = %+v, want 2 neighbors", got)
	}
	if got[0].UserID != 3 || math.Abs(got[0].Similarity-1) > 1e-12 {
		t.Errorf("first neighbor = %+v, want user 3 with sim 1.0", got[0])
	}
	if got[1].UserID != 2 || math.Abs(got[1].Similarity-0.5) > 1e-12 {
		t.Errorf("second neighbor = %+v, want user 2 with sim 0.5", got[1])
	}
	if got[0].Interactions != 2 || got[1].Interactions != 2 {
		t.Errorf("interaction counts = %d, %d, want 2, 2", got[0].Interactions, got[1].Interactions)
	}
}

func TestRankNeighbors_TieBreak(t *testing.T) {
	// 相似度与交互数都相同时按用户 ID 升序
	log := core.InteractionLog{
		{UserID: 1, ArticleID: 10}, {UserID: 1, ArticleID: 11},
		{UserID: 4, ArticleID: 10}, {UserID: 4, ArticleID: 11},
		{UserID: 3, ArticleID: 10}, {UserID: 3, ArticleID: 11},
		{UserID: 2, ArticleID: 10}, {UserID: 2, ArticleID: 11},
	}
	got := RankNeighbors(1, log, mustMatrix(t, log))
	var ids []int64
	for _, n := range got {
		ids = append(ids, n.UserID)
	}
	if !slices.Equal(ids, []int64{2, 3, 4}) {
		t.Errorf("neighbor order = %v, want [2 3 4]", ids)
	}
}

func TestRecommendByVoteCount_Scenario(t *testing.T) {
	log := scenarioLog()
	r := &UserBasedCF{}
	ids, titles := r.RecommendByVoteCount(1, log, mustMatrix(t, log), 1)
	if !slices.Equal(ids, []int64{12}) {
		t.Errorf("ids = %v, want [12]", ids)
	}
	if !slices.Equal(titles, []string{"C"}) {
		t.Errorf("titles = %v, want [C]", titles)
	}
}

func TestRecommendByWeightedScore_Scenario(t *testing.T) {
	log := scenarioLog()
	r := &UserBasedCF{}
	if got := r.RecommendByWeightedScore(1, log, mustMatrix(t, log), 5); !slices.Equal(got, []int64{12}) {
		t.Errorf("RecommendByWeightedScore() = %v, want [12]", got)
	}
}

func TestRecommend_EdgeCases(t *testing.T) {
	log := scenarioLog()
	im := mustMatrix(t, log)
	r := &UserBasedCF{}

	tests := []struct {
		name   string
		userID int64
		m      int
	}{
		{"cold start user", 99, 3},
		{"zero m", 1, 0},
		{"negative m", 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ids, titles := r.RecommendByVoteCount(tt.userID, log, im, tt.m); len(ids) != 0 || len(titles) != 0 {
				t.Errorf("RecommendByVoteCount() = %v, %v, want empty", ids, titles)
			}
			if ids := r.RecommendByWeightedScore(tt.userID, log, im, tt.m); len(ids) != 0 {
				t.Errorf("RecommendByWeightedScore() = %v, want empty", ids)
			}
		})
	}
}

func TestRecommend_NeverReturnsSeen(t *testing.T) {
	log := core.InteractionLog{
		{UserID: 1, ArticleID: 1}, {UserID: 1, ArticleID: 2},
		{UserID: 2, ArticleID: 1}, {UserID: 2, ArticleID: 3}, {UserID: 2, ArticleID: 4},
		{UserID: 3, ArticleID: 2}, {UserID: 3, ArticleID: 4}, {UserID: 3, ArticleID: 5},
		{UserID: 4, ArticleID: 1}, {UserID: 4, ArticleID: 2}, {UserID: 4, ArticleID: 5},
		{UserID: 5, ArticleID: 6},
	}
	im := mustMatrix(t, log)
	r := &UserBasedCF{}
	for _, u := range log.Users() {
		seen := log.SeenSet(u)
		vote, _ := r.RecommendByVoteCount(u, log, im, 10)
		weighted := r.RecommendByWeightedScore(u, log, im, 10)
		for _, id := range append(vote, weighted...) {
			if _, ok := seen[id]; ok {
				t.Errorf("user %d got already seen article %d", u, id)
			}
		}
		if len(vote) > 10 || len(weighted) > 10 {
			t.Errorf("user %d got more than m results", u)
		}
	}
}

func TestRecommendByVoteCount_PoolCutoff(t *testing.T) {
	// 用户 9 只看过文章 1。邻居 A(=2) 相似度 0.5，带来 {2,3,4}；邻居 B(=3) 相似度 ≈0.447，会给 4 再投一票。
	log := core.InteractionLog{
		{UserID: 9, ArticleID: 1},
		{UserID: 2, ArticleID: 1}, {UserID: 2, ArticleID: 2}, {UserID: 2, ArticleID: 3}, {UserID: 2, ArticleID: 4},
		{UserID: 3, ArticleID: 1}, {UserID: 3, ArticleID: 4}, {UserID: 3, ArticleID: 7}, {UserID: 3, ArticleID: 8}, {UserID: 3, ArticleID: 9},
	}
	im := mustMatrix(t, log)

	// 候选池 3*1 在第一个邻居后就满了，B 的票不计入
	cut := &UserBasedCF{VotePoolFactor: 3}
	if ids, _ := cut.RecommendByVoteCount(9, log, im, 1); !slices.Equal(ids, []int64{2}) {
		t.Errorf("with pool 3: %v, want [2]", ids)
	}
	wide := &UserBasedCF{VotePoolFactor: 10}
	if ids, _ := wide.RecommendByVoteCount(9, log, im, 1); !slices.Equal(ids, []int64{4}) {
		t.Errorf("with pool 10: %v, want [4]", ids)
	}
}

func TestRecommendByWeightedScore_OrdersDifferentlyFromVotes(t *testing.T) {
	// 邻居 2 与用户 1 高度相似（≈0.894，5 篇）只带来 120；
	// 邻居 3、4 相似度 ≈0.354（各 2 篇），都带来 121。
	log := core.InteractionLog{
		{UserID: 1, ArticleID: 101}, {UserID: 1, ArticleID: 102}, {UserID: 1, ArticleID: 103}, {UserID: 1, ArticleID: 104},
		{UserID: 2, ArticleID: 101}, {UserID: 2, ArticleID: 102}, {UserID: 2, ArticleID: 103}, {UserID: 2, ArticleID: 104}, {UserID: 2, ArticleID: 120},
		{UserID: 3, ArticleID: 101}, {UserID: 3, ArticleID: 121},
		{UserID: 4, ArticleID: 102}, {UserID: 4, ArticleID: 121},
	}
	im := mustMatrix(t, log)
	r := &UserBasedCF{}

	// 计票：121 两票，120 一票
	if ids, _ := r.RecommendByVoteCount(1, log, im, 2); !slices.Equal(ids, []int64{121, 120}) {
		t.Errorf("RecommendByVoteCount() = %v, want [121 120]", ids)
	}
	// 加权：120 ≈ 0.894·ln6 ≈ 1.60，121 ≈ 2×0.354·ln3 ≈ 0.78
	if ids := r.RecommendByWeightedScore(1, log, im, 2); !slices.Equal(ids, []int64{120, 121}) {
		t.Errorf("RecommendByWeightedScore() = %v, want [120 121]", ids)
	}
}

func TestRecommendByWeightedScore_PoolCutoff(t *testing.T) {
	// 邻居 A(=2) 相似度 ≈0.577、3 篇，权重 ≈0.800，带来 {201,202}；
	// 邻居 B(=3) 相似度 0.5、4 篇，权重 ≈0.805，带来 {301,302,303}。
	log := core.InteractionLog{
		{UserID: 9, ArticleID: 100},
		{UserID: 2, ArticleID: 100}, {UserID: 2, ArticleID: 201}, {UserID: 2, ArticleID: 202},
		{UserID: 3, ArticleID: 100}, {UserID: 3, ArticleID: 301}, {UserID: 3, ArticleID: 302}, {UserID: 3, ArticleID: 303},
	}
	im := mustMatrix(t, log)
	tests := []struct {
		name   string
		factor int
		m      int
		want   []int64
	}{
		{"pool reached after first neighbor", 1, 2, []int64{201, 202}},
		{"default factor scans both neighbors", 0, 2, []int64{301, 302}},
		{"default pool 5m still needs second neighbor", 0, 1, []int64{301}},
		{"pool 1 stops at first neighbor", 1, 1, []int64{201}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &UserBasedCF{WeightedPoolFactor: tt.factor}
			if got := r.RecommendByWeightedScore(9, log, im, tt.m); !slices.Equal(got, tt.want) {
				t.Errorf("RecommendByWeightedScore(m=%d) = %v, want %v", tt.m, got, tt.want)
			}
		})
	}
}

func TestFindSimilarUsers(t *testing.T) {
	log := scenarioLog()
	im := mustMatrix(t, log)

	tests := []struct {
		name   string
		userID int64
		k      int
		want   []int64
	}{
		{"top one", 1, 1, []int64{3}},
		{"all", 1, 0, []int64{3, 2}},
		{"user 2", 2, 2, []int64{1, 3}},
		{"unknown", 42, 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindSimilarUsers(tt.userID, im, tt.k); !slices.Equal(got, tt.want) {
				t.Errorf("FindSimilarUsers(%d, %d) = %v, want %v", tt.userID, tt.k, got, tt.want)
			}
		})
	}
}

func TestUserArticles(t *testing.T) {
	log := append(scenarioLog(), core.Interaction{UserID: 1, ArticleID: 10, Title: "dup"})
	ids, titles := UserArticles(1, log)
	if !slices.Equal(ids, []int64{10, 11}) || !slices.Equal(titles, []string{"A", "B"}) {
		t.Errorf("UserArticles() = %v, %v", ids, titles)
	}
	if ids, titles := UserArticles(7, log); len(ids) != 0 || len(titles) != 0 {
		t.Errorf("UserArticles(unknown) = %v, %v, want empty", ids, titles)
	}
}

func TestUserBasedCF_Recall(t *testing.T) {
	snap, err := NewSnapshot(1, scenarioLog(), nil, feature.Options{})
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	r := &UserBasedCF{Snapshots: StaticSnapshot{S: snap}}

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 1})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if got := core.ItemIDs(items); !slices.Equal(got, []int64{12}) {
		t.Fatalf("Recall() ids = %v, want [12]", got)
	}
	if items[0].Score != 1 {
		t.Errorf("vote score = %v, want 1", items[0].Score)
	}
	if lbl, ok := items[0].Labels["cf_mode"]; !ok || lbl.Value != "vote" {
		t.Errorf("cf_mode label = %+v", lbl)
	}

	items, err = r.Recall(context.Background(), &core.RecommendContext{UserID: 100})
	if err != nil || len(items) != 0 {
		t.Errorf("Recall(cold start) = %v, %v, want empty", items, err)
	}
}
