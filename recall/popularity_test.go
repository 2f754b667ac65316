package recall

import (
	"context"
	"slices"
	"testing"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/store"
)

func TestRankArticlesByPopularity(t *testing.T) {
	log := append(scenarioLog(),
		core.Interaction{UserID: 1, ArticleID: 10, Title: "A"}, // 重复交互不增加用户数
		core.Interaction{UserID: 4, ArticleID: 12, Title: "C"},
	)
	got := RankArticlesByPopularity(log)
	want := []ArticleCount{{10, 3}, {11, 2}, {12, 2}}
	if !slices.Equal(got, want) {
		t.Errorf("RankArticlesByPopularity() = %v, want %v", got, want)
	}
}

func TestTopNArticles(t *testing.T) {
	log := scenarioLog()
	tests := []struct {
		n      int
		ids    []int64
		titles []string
	}{
		{1, []int64{10}, []string{"A"}},
		{2, []int64{10, 11}, []string{"A", "B"}},
		{10, []int64{10, 11, 12}, []string{"A", "B", "C"}},
		{0, nil, nil},
	}
	for _, tt := range tests {
		if got := TopNArticleIDs(tt.n, log); !slices.Equal(got, tt.ids) {
			t.Errorf("TopNArticleIDs(%d) = %v, want %v", tt.n, got, tt.ids)
		}
		if got := TopNArticleTitles(tt.n, log); !slices.Equal(got, tt.titles) {
			t.Errorf("TopNArticleTitles(%d) = %v, want %v", tt.n, got, tt.titles)
		}
	}
}

func TestHot_FromSnapshot(t *testing.T) {
	snap, err := NewSnapshot(1, scenarioLog(), nil, feature.Options{})
	if err != nil {
		t.Fatal(err)
	}
	h := &Hot{Snapshots: StaticSnapshot{S: snap}, TopK: 2}
	items, err := h.Recall(context.Background(), &core.RecommendContext{})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if got := core.ItemIDs(items); !slices.Equal(got, []int64{10, 11}) {
		t.Errorf("Recall() = %v, want [10 11]", got)
	}
	if items[0].Score != 3 {
		t.Errorf("score = %v, want 3 distinct users", items[0].Score)
	}
}

func TestHot_FromStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	data, _ := json.Marshal([]int64{7, 8, 9})
	_ = s.Set(ctx, "popular", data)
	_ = s.ZAdd(ctx, "zhot", 5, "3")
	_ = s.ZAdd(ctx, "zhot", 9, "1")

	tests := []struct {
		name string
		key  string
		want []int64
	}{
		{"json list", "popular", []int64{7, 8}},
		{"sorted set", "zhot", []int64{1, 3}},
		{"missing key", "nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Hot{Store: s, Key: tt.key, TopK: 2}
			items, err := h.Recall(ctx, nil)
			if err != nil {
				t.Fatalf("Recall() error = %v", err)
			}
			if got := core.ItemIDs(items); !slices.Equal(got, tt.want) {
				t.Errorf("Recall() = %v, want %v", got, tt.want)
			}
		})
	}
}
