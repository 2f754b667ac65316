package service

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/logging"
)

func scenario() []core.Interaction {
	return []core.Interaction{
		{UserID: 1, ArticleID: 10, Title: "A"},
		{UserID: 1, ArticleID: 11, Title: "B"},
		{UserID: 2, ArticleID: 10, Title: "A"},
		{UserID: 2, ArticleID: 12, Title: "C"},
		{UserID: 3, ArticleID: 10, Title: "A"},
		{UserID: 3, ArticleID: 11, Title: "B"},
	}
}

func openTest(t *testing.T, mutate func(cfg *config.EngineConfig)) *Recommender {
	t.Helper()
	cfg := config.DefaultEngineConfig()
	cfg.Log.Level = "disabled"
	if mutate != nil {
		mutate(cfg)
	}
	r, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		logging.Init(logging.DefaultConfig())
	})
	return r
}

func TestRecommender_EmptyLog(t *testing.T) {
	r := openTest(t, nil)
	ctx := context.Background()

	rec, err := r.ForUser(ctx, 1, 5, false)
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	if len(rec.IDs) != 0 || rec.RequestID == "" {
		t.Errorf("ForUser() = %+v, want empty result with a request id", rec)
	}
	if rec, err := r.Popular(ctx, 3); err != nil || len(rec.IDs) != 0 {
		t.Errorf("Popular() = %+v, %v, want empty", rec, err)
	}
}

func TestRecommender_ForUser(t *testing.T) {
	r := openTest(t, nil)
	ctx := context.Background()
	if err := r.Record(ctx, scenario()...); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	tests := []struct {
		name         string
		userID       int64
		m            int
		weighted     bool
		wantIDs      []int64
		wantTitles   []string
		wantStrategy string
	}{
		{name: "vote", userID: 1, m: 1, wantIDs: []int64{12}, wantTitles: []string{"C"}, wantStrategy: StrategyVote},
		{name: "weighted", userID: 2, m: 1, weighted: true, wantIDs: []int64{11}, wantTitles: []string{"B"}, wantStrategy: StrategyWeighted},
		{name: "cold user falls back to popular", userID: 99, m: 2, wantIDs: []int64{10, 11}, wantTitles: []string{"A", "B"}, wantStrategy: StrategyPopular},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := r.ForUser(ctx, tt.userID, tt.m, tt.weighted)
			if err != nil {
				t.Fatalf("ForUser() error = %v", err)
			}
			if !slices.Equal(rec.IDs, tt.wantIDs) || !slices.Equal(rec.Titles, tt.wantTitles) {
				t.Errorf("ForUser() = %v %q, want %v %q", rec.IDs, rec.Titles, tt.wantIDs, tt.wantTitles)
			}
			if rec.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %q, want %q", rec.Strategy, tt.wantStrategy)
			}
		})
	}
}

func TestRecommender_RecordIsVisible(t *testing.T) {
	r := openTest(t, nil)
	ctx := context.Background()
	if err := r.Record(ctx, scenario()...); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	// 用户 1 读过 12 之后，邻居再没有新文章，回落到热门且不含已读
	if err := r.Record(ctx, core.Interaction{UserID: 1, ArticleID: 12, Title: "C"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	rec, err := r.ForUser(ctx, 1, 3, false)
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	if len(rec.IDs) != 0 {
		t.Errorf("ForUser() = %v, want empty (every article seen)", rec.IDs)
	}

	ids, titles, err := r.UserArticles(ctx, 1)
	if err != nil {
		t.Fatalf("UserArticles() error = %v", err)
	}
	if !slices.Equal(ids, []int64{10, 11, 12}) || !slices.Equal(titles, []string{"A", "B", "C"}) {
		t.Errorf("UserArticles() = %v %q", ids, titles)
	}
}

func TestRecommender_SimilarByFactorsSkipsUnknownArticle(t *testing.T) {
	r := openTest(t, nil)
	ctx := context.Background()
	// 只有一个用户：1×N 矩阵
	if err := r.Record(ctx,
		core.Interaction{UserID: 1, ArticleID: 10, Title: "A"},
		core.Interaction{UserID: 1, ArticleID: 11, Title: "B"},
	); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	tests := []struct {
		name      string
		articleID int64
		m         int
	}{
		{"unknown article", 404, 3},
		{"non-positive m", 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := r.SimilarByFactors(ctx, tt.articleID, tt.m, 0)
			if err != nil {
				t.Fatalf("SimilarByFactors() error = %v", err)
			}
			if len(rec.IDs) != 0 {
				t.Errorf("SimilarByFactors() = %v, want empty", rec.IDs)
			}
		})
	}
}

func TestRecommender_PopularAndFactors(t *testing.T) {
	r := openTest(t, nil)
	ctx := context.Background()
	if err := r.Record(ctx, scenario()...); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	rec, err := r.Popular(ctx, 2)
	if err != nil {
		t.Fatalf("Popular() error = %v", err)
	}
	if !slices.Equal(rec.IDs, []int64{10, 11}) {
		t.Errorf("Popular() = %v, want [10 11]", rec.IDs)
	}

	// 秩 2 下文章 12 与 10 的隐向量夹角余弦为 0.5，与 11 为 -0.5
	rec, err = r.SimilarByFactors(ctx, 12, 1, 0)
	if err != nil {
		t.Fatalf("SimilarByFactors() error = %v", err)
	}
	if !slices.Equal(rec.IDs, []int64{10}) || !slices.Equal(rec.Titles, []string{"A"}) {
		t.Errorf("SimilarByFactors() = %v %q, want [10] [A]", rec.IDs, rec.Titles)
	}

	users, err := r.SimilarUsers(ctx, 1, 1)
	if err != nil {
		t.Fatalf("SimilarUsers() error = %v", err)
	}
	if !slices.Equal(users, []int64{3}) {
		t.Errorf("SimilarUsers() = %v, want [3]", users)
	}
}

func TestRecommender_SimilarArticles(t *testing.T) {
	r := openTest(t, nil)
	ctx := context.Background()
	err := r.Record(ctx,
		core.Interaction{UserID: 1, ArticleID: 10, Title: "redis cache tuning"},
		core.Interaction{UserID: 1, ArticleID: 11, Title: "redis cluster cache"},
		core.Interaction{UserID: 2, ArticleID: 12, Title: "tomato gardening tips"},
	)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	rec, err := r.SimilarArticles(ctx, 10, 1)
	if err != nil {
		t.Fatalf("SimilarArticles() error = %v", err)
	}
	if !slices.Equal(rec.IDs, []int64{11}) || !slices.Equal(rec.Titles, []string{"redis cluster cache"}) {
		t.Errorf("SimilarArticles() = %v %q", rec.IDs, rec.Titles)
	}

	rec, err = r.SimilarArticles(ctx, 404, 3)
	if err != nil || len(rec.IDs) != 0 {
		t.Errorf("SimilarArticles(unknown) = %v, %v, want empty", rec.IDs, err)
	}
}

func TestRecommender_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	data := []byte(`
pipeline:
  name: home
  nodes:
    - type: recall.fanout
      config:
        sources:
          - type: fallback
            primary: {type: usercf}
            secondary: {type: hot}
    - type: filter
      config:
        filters:
          - type: seen
    - type: rerank.sort
    - type: rerank.topn
      config: {n: 2}
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write pipeline: %v", err)
	}
	r := openTest(t, func(cfg *config.EngineConfig) { cfg.Pipeline = path })
	ctx := context.Background()
	if err := r.Record(ctx, scenario()...); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	rec, err := r.Run(ctx, &core.RecommendContext{UserID: 99, RequestID: "req-1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rec.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", rec.RequestID)
	}
	if !slices.Equal(rec.IDs, []int64{10, 11}) || !slices.Equal(rec.Titles, []string{"A", "B"}) {
		t.Errorf("Run() = %v %q, want [10 11] [A B]", rec.IDs, rec.Titles)
	}
}

func TestRecommender_RunWithoutPipeline(t *testing.T) {
	r := openTest(t, nil)
	if _, err := r.Run(context.Background(), nil); !core.IsNotSupported(err) {
		t.Errorf("Run() error = %v, want NOT_SUPPORTED", err)
	}
}

func TestOpen_SQLite(t *testing.T) {
	r := openTest(t, func(cfg *config.EngineConfig) {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.DSN = ":memory:"
	})
	ctx := context.Background()
	if err := r.Record(ctx, scenario()...); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	rec, err := r.ForUser(ctx, 1, 1, false)
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	if !slices.Equal(rec.IDs, []int64{12}) || !slices.Equal(rec.Titles, []string{"C"}) {
		t.Errorf("ForUser() = %v %q, want [12] [C]", rec.IDs, rec.Titles)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StoreConfig{Driver: "mongo"}, nil)
	if !core.IsInvalidInput(err) {
		t.Errorf("OpenStore() error = %v, want INVALID_INPUT", err)
	}
}
