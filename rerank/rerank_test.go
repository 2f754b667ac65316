package rerank

import (
	"context"
	"slices"
	"testing"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/utils"
)

func TestSortNode(t *testing.T) {
	in := []*core.Item{
		core.NewScoredItem(12, 1),
		core.NewScoredItem(11, 2),
		nil,
		core.NewScoredItem(10, 2),
		core.NewScoredItem(9, 0.5),
	}
	got, err := (&SortNode{}).Process(context.Background(), &core.RecommendContext{}, in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if ids := core.ItemIDs(got); !slices.Equal(ids, []int64{10, 11, 12, 9}) {
		t.Errorf("Process() = %v, want [10 11 12 9]", ids)
	}
}

func TestTopNNode(t *testing.T) {
	in := []*core.Item{core.NewItem(1), core.NewItem(2), core.NewItem(3)}
	tests := []struct {
		name   string
		n      int
		params map[string]any
		want   int
	}{
		{name: "truncate", n: 2, want: 2},
		{name: "no limit", n: 0, want: 3},
		{name: "larger than input", n: 10, want: 3},
		{name: "limit param wins", n: 2, params: map[string]any{core.ParamLimit: 1}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rctx := &core.RecommendContext{Params: tt.params}
			got, err := (&TopNNode{N: tt.n}).Process(context.Background(), rctx, in)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDiversity(t *testing.T) {
	mk := func(id int64, source string) *core.Item {
		it := core.NewItem(id)
		if source != "" {
			it.PutLabel("recall_source", utils.NewLabel(source, "recall"))
		}
		return it
	}
	in := []*core.Item{mk(1, "hot"), mk(2, "hot"), mk(3, "usercf"), mk(4, ""), mk(5, "hot")}

	got, _ := (&Diversity{MaxPerGroup: 2}).Process(context.Background(), &core.RecommendContext{}, in)
	if ids := core.ItemIDs(got); !slices.Equal(ids, []int64{1, 2, 3, 4}) {
		t.Errorf("MaxPerGroup=2: %v, want [1 2 3 4]", ids)
	}
	got, _ = (&Diversity{}).Process(context.Background(), &core.RecommendContext{}, in)
	if ids := core.ItemIDs(got); !slices.Equal(ids, []int64{1, 3, 4}) {
		t.Errorf("default: %v, want [1 3 4]", ids)
	}
}
