package postprocess

import (
	"context"
	"slices"
	"testing"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/recall"
)

func TestTitleNode(t *testing.T) {
	log := core.InteractionLog{
		{UserID: 1, ArticleID: 10, Title: "A"},
		{UserID: 2, ArticleID: 11, Title: "B"},
	}
	snap, err := recall.NewSnapshot(1, log, nil, feature.Options{})
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	in := []*core.Item{core.NewItem(11), core.NewItem(99), core.NewItem(10)}
	in[2].Title = "kept"

	node := &TitleNode{Snapshots: recall.StaticSnapshot{S: snap}}
	got, err := node.Process(context.Background(), &core.RecommendContext{}, in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	var titles []string
	for _, it := range got {
		titles = append(titles, it.Title)
	}
	want := []string{"B", "title not found: 99", "kept"}
	if !slices.Equal(titles, want) {
		t.Errorf("titles = %q, want %q", titles, want)
	}
}

func TestTitleNode_NoSnapshot(t *testing.T) {
	node := &TitleNode{Snapshots: recall.StaticSnapshot{}}
	_, err := node.Process(context.Background(), &core.RecommendContext{}, []*core.Item{core.NewItem(1)})
	if !core.IsNotFound(err) {
		t.Errorf("Process() error = %v, want NOT_FOUND", err)
	}
}
